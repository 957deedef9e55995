package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Level indicates the severity of a diagnostic.
type Level string

const (
	LevelWarning Level = "warn"
	LevelError   Level = "error"
)

// Error is the single diagnostic kind raised when a rule document violates
// the expected structure: wrong container types for pattern lists, unknown
// operator keys, missing top-level pattern families, malformed paths
// mappings. It carries enough context (observed type, offending key, source
// spans) for the author to fix the document.
type Error struct {
	Short string `json:"short"`
	Long  string `json:"long"`
	Level Level  `json:"level"`
	Help  string `json:"help,omitempty"`
	Spans []Span `json:"spans"`
}

// NewError creates a schema violation diagnostic. Spans without location
// information are replaced by the placeholder span so the error path itself
// never fails.
func NewError(short, long string, help string, spans ...Span) *Error {
	if len(spans) == 0 {
		spans = []Span{DummySpan}
	}
	return &Error{
		Short: short,
		Long:  long,
		Level: LevelError,
		Help:  help,
		Spans: spans,
	}
}

// Errorf creates a schema violation whose short and long message coincide.
func Errorf(span Span, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return NewError(msg, msg, "", span)
}

// Error implements the error interface, rendering the long message with
// source locations and the remediation hint when present.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Long)
	locs := make([]string, 0, len(e.Spans))
	for _, s := range e.Spans {
		locs = append(locs, s.String())
	}
	b.WriteString(" (at ")
	b.WriteString(strings.Join(locs, "; "))
	b.WriteString(")")
	if e.Help != "" {
		b.WriteString("\nhelp: ")
		b.WriteString(e.Help)
	}
	return b.String()
}

// IsSchemaError reports whether err is (or wraps) a schema violation,
// returning the diagnostic when it is.
func IsSchemaError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
