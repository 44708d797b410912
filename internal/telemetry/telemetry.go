// Package telemetry provides a minimal injected metrics sink. Components
// report which path produced a result (seeded vs llm questions, which
// evaluation tier settled a verdict) without knowing where the counts go.
package telemetry

import (
	"fmt"
	"sync"
)

// Sink receives categorized counter increments.
type Sink interface {
	// Increment bumps the counter for source within category,
	// e.g. ("question", "seeded") or ("judge", "deterministic").
	Increment(category, source string)
}

// Counters is an in-memory Sink safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCounters creates an empty Counters sink.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int)}
}

func (c *Counters) Increment(category, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key(category, source)]++
}

// Snapshot returns a copy of all counters keyed "category.source".
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func key(category, source string) string {
	return fmt.Sprintf("%s.%s", category, source)
}

// NopSink discards all increments.
type NopSink struct{}

func (NopSink) Increment(category, source string) {}
