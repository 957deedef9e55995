package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codesift/rule-compiler/internal/api"
	"github.com/codesift/rule-compiler/internal/cache"
	"github.com/codesift/rule-compiler/internal/config"
	"github.com/codesift/rule-compiler/internal/health"
	"github.com/codesift/rule-compiler/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Initialize components
	store := storage.NewStore(cfg.Rules.Dir)
	lruCache := cache.NewLRUCache(cfg.Cache.MaxSize)
	healthChecker := health.NewSystemHealthChecker(store, lruCache)

	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		fmt.Printf("Failed to load rules: %v\n", err)
		return
	}

	// Rule documents for performance testing. Distinct documents exercise
	// cold compiles, repeated documents exercise the compile cache.
	testDocuments := []string{
		`id: bench-single
message: single pattern rule
severity: WARNING
languages: [go]
pattern: db.Query($X)
`,
		`id: bench-regex
message: regex rule
severity: ERROR
languages: [go]
pattern-regex: (password|secret)\s*=
`,
		`id: bench-nested
message: nested composite rule
severity: INFO
languages: [go, python]
patterns:
  - pattern: source($X)
  - pattern-not: sanitize($X)
  - pattern-either:
      - pattern: sink($X)
      - pattern-inside: |
          func handler(...) { ... }
paths:
  include:
    - src
  exclude:
    - "*_test.go"
`,
		`id: bench-metadata
message: rule with metadata and fix
severity: WARNING
languages: [javascript]
pattern: eval($X)
fix: JSON.parse($X)
metadata:
  cwe: CWE-95
  owasp: A03:2021
`,
	}

	// Start HTTP server
	routerConfig := api.RouterConfig{
		CORSOrigins: cfg.Security.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
	}
	result := api.SetupRouter(api.RouterDependencies{
		Store:         store,
		Cache:         lruCache,
		HealthChecker: healthChecker,
	}, routerConfig)
	app := result.App
	defer result.Cleanup()

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	compileURL := fmt.Sprintf("http://localhost:%d/v1/rules/compile", cfg.Server.Port)

	// Pre-warm the cache so the steady-state numbers reflect cached compiles
	fmt.Printf("Pre-warming compile cache...\n")
	client := &http.Client{
		Timeout: 1 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	for _, doc := range testDocuments {
		resp, err := client.Post(compileURL, "application/yaml", bytes.NewBufferString(doc))
		if err == nil {
			_ = resp.Body.Close()
		}
	}

	// Performance test parameters
	const (
		numConcurrentWorkers = 50
		numRequestsPerWorker = 20
		totalRequests        = numConcurrentWorkers * numRequestsPerWorker
	)

	fmt.Printf("Starting performance test with %d concurrent workers, %d requests each (%d total)\n",
		numConcurrentWorkers, numRequestsPerWorker, totalRequests)

	// Performance metrics
	var (
		successCount int64
		errorCount   int64
		totalLatency time.Duration
		maxLatency   time.Duration
		minLatency   = time.Hour // Initialize to a large value
		mu           sync.Mutex
	)

	startTime := time.Now()
	var wg sync.WaitGroup

	// Launch concurrent workers
	for i := 0; i < numConcurrentWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			client := &http.Client{
				Timeout: 1 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
					IdleConnTimeout:     30 * time.Second,
				},
			}

			for j := 0; j < numRequestsPerWorker; j++ {
				doc := testDocuments[j%len(testDocuments)]

				reqStart := time.Now()

				resp, err := client.Post(compileURL, "application/yaml", bytes.NewBufferString(doc))

				latency := time.Since(reqStart)

				mu.Lock()
				if err != nil {
					errorCount++
				} else {
					successCount++
					_ = resp.Body.Close()

					totalLatency += latency
					if latency > maxLatency {
						maxLatency = latency
					}
					if latency < minLatency {
						minLatency = latency
					}
				}
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	totalTime := time.Since(startTime)

	// Calculate metrics
	avgLatency := time.Duration(0)
	if successCount > 0 {
		avgLatency = totalLatency / time.Duration(successCount)
	}

	requestsPerSecond := float64(totalRequests) / totalTime.Seconds()

	fmt.Printf("\n=== Performance Test Results ===\n")
	fmt.Printf("Total time: %v\n", totalTime)
	fmt.Printf("Total requests: %d\n", totalRequests)
	fmt.Printf("Successful requests: %d\n", successCount)
	fmt.Printf("Failed requests: %d\n", errorCount)
	fmt.Printf("Success rate: %.2f%%\n", float64(successCount)/float64(totalRequests)*100)
	fmt.Printf("Requests per second: %.2f\n", requestsPerSecond)
	fmt.Printf("Average latency: %v\n", avgLatency)
	fmt.Printf("Min latency: %v\n", minLatency)
	fmt.Printf("Max latency: %v\n", maxLatency)

	// Test cached compile performance
	fmt.Printf("\n=== Compile Cache Performance Test ===\n")
	cacheTestStart := time.Now()

	cacheClient := &http.Client{
		Timeout: 1 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	var cacheHitLatencies []time.Duration
	for i := 0; i < 10; i++ {
		reqStart := time.Now()
		resp, err := cacheClient.Post(compileURL, "application/yaml", bytes.NewBufferString(testDocuments[0]))
		latency := time.Since(reqStart)

		if err == nil {
			cacheHitLatencies = append(cacheHitLatencies, latency)
			_ = resp.Body.Close()
		}
	}

	if len(cacheHitLatencies) > 0 {
		var totalCacheLatency time.Duration
		for _, lat := range cacheHitLatencies {
			totalCacheLatency += lat
		}
		avgCacheLatency := totalCacheLatency / time.Duration(len(cacheHitLatencies))
		fmt.Printf("Average cached compile latency: %v\n", avgCacheLatency)

		if avgCacheLatency < time.Millisecond {
			fmt.Printf("✓ Sub-millisecond cached compile performance achieved\n")
		} else {
			fmt.Printf("✗ Cached compile performance above 1ms threshold\n")
		}
	}

	cacheTestTime := time.Since(cacheTestStart)
	fmt.Printf("Cache test completed in: %v\n", cacheTestTime)

	// Get cache statistics
	stats := lruCache.Stats()
	fmt.Printf("Cache hits: %d\n", stats.Hits)
	fmt.Printf("Cache misses: %d\n", stats.Misses)
	if stats.Hits+stats.Misses > 0 {
		hitRate := float64(stats.Hits) / float64(stats.Hits+stats.Misses) * 100
		fmt.Printf("Cache hit rate: %.2f%%\n", hitRate)
	}

	// Shutdown server
	if err := app.Shutdown(); err != nil {
		fmt.Printf("Server shutdown error: %v\n", err)
	}

	fmt.Printf("\n=== Performance Requirements Check ===\n")
	if requestsPerSecond >= 100 {
		fmt.Printf("✓ Concurrent compile handling: %.2f RPS (target: >100)\n", requestsPerSecond)
	} else {
		fmt.Printf("✗ Concurrent compile handling: %.2f RPS (target: >100)\n", requestsPerSecond)
	}

	if avgLatency < 10*time.Millisecond {
		fmt.Printf("✓ Average response time: %v (target: <10ms)\n", avgLatency)
	} else {
		fmt.Printf("✗ Average response time: %v (target: <10ms)\n", avgLatency)
	}

	fmt.Printf("Performance test completed successfully\n")
}
