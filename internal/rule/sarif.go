package rule

import "fmt"

// SARIFText is a SARIF multiformatMessageString fragment.
type SARIFText struct {
	Text string `json:"text"`
}

// SARIFConfiguration is a SARIF reportingConfiguration fragment.
type SARIFConfiguration struct {
	Level string `json:"level"`
}

// SARIFProperties is the property bag attached to a SARIF rule descriptor.
type SARIFProperties struct {
	Precision string   `json:"precision"`
	Tags      []string `json:"tags"`
}

// SARIFRule is a SARIF v2.1.0 reportingDescriptor fragment for a compiled
// rule.
type SARIFRule struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	ShortDescription     SARIFText          `json:"shortDescription"`
	FullDescription      SARIFText          `json:"fullDescription"`
	DefaultConfiguration SARIFConfiguration `json:"defaultConfiguration"`
	Properties           SARIFProperties    `json:"properties"`
}

// ToSARIF projects the rule to its SARIF descriptor. Pure function of the
// rule's id, message, severity and metadata.
func (r *Rule) ToSARIF() SARIFRule {
	return SARIFRule{
		ID:               r.ID(),
		Name:             r.ID(),
		ShortDescription: SARIFText{Text: r.Message()},
		FullDescription:  SARIFText{Text: r.Message()},
		DefaultConfiguration: SARIFConfiguration{
			Level: r.sarifLevel(),
		},
		Properties: SARIFProperties{
			Precision: "very-high",
			Tags:      r.sarifTags(),
		},
	}
}

// sarifLevel maps the rule severity to a SARIF level. The table is total over
// the validated severities; anything else means upstream validation was
// bypassed, which is a bug rather than a bad document.
func (r *Rule) sarifLevel() string {
	switch r.Severity() {
	case SeverityInfo:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	panic(fmt.Sprintf("rule %s has unvalidated severity %q", r.ID(), r.Severity()))
}

// sarifTags derives the tags shown by SARIF-compliant UIs. Only the `cwe` and
// `owasp` metadata keys contribute.
func (r *Rule) sarifTags() []string {
	tags := []string{}
	md := r.Metadata()
	if _, ok := md["cwe"]; ok {
		tags = append(tags, "cwe")
	}
	if _, ok := md["owasp"]; ok {
		tags = append(tags, "owasp")
	}
	return tags
}
