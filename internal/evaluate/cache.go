package evaluate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/avikbasu/mathsprint/internal/question"
)

// DefaultCacheCapacity bounds the process-wide judgment cache.
const DefaultCacheCapacity = 200

// JudgmentCache is a bounded key→verdict store with strict FIFO eviction:
// when full, the oldest-inserted entry is removed regardless of access
// recency. Shared across sessions, so all access is mutex-guarded.
type JudgmentCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]question.Verdict
	order    []string // insertion order, oldest first
}

// NewJudgmentCache creates a cache with the given capacity. Non-positive
// capacities fall back to DefaultCacheCapacity.
func NewJudgmentCache(capacity int) *JudgmentCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &JudgmentCache{
		capacity: capacity,
		entries:  make(map[string]question.Verdict, capacity),
	}
}

// Get returns the cached verdict for key, if present.
func (c *JudgmentCache) Get(key string) (question.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put inserts a verdict, evicting the single oldest entry when at capacity.
// Re-inserting an existing key overwrites in place without changing its
// position in the eviction order.
func (c *JudgmentCache) Put(key string, v question.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = v
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = v
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *JudgmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheKey builds an exact-match key from the question's identity and a
// stable serialization of the normalized submission.
func CacheKey(q question.Question, sub question.Submission) string {
	identity := q.ID
	if identity == "" {
		identity = q.Prompt
	}

	numeric := "none"
	if sub.Numeric != nil {
		numeric = fmt.Sprintf("%g", *sub.Numeric)
	}

	names := make([]string, 0, len(sub.Parts))
	for name := range sub.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, sub.Parts[name]))
	}

	return fmt.Sprintf("%s|%s|%s|%s",
		identity,
		strings.ToLower(strings.TrimSpace(sub.Text)),
		numeric,
		strings.Join(parts, ","),
	)
}
