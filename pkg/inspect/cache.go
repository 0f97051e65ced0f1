package inspect

import "sync"

// MemoryCache is a minimal in-memory ProgramCache intended for tests
// and single-process harnesses.
type MemoryCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{programs: map[string]any{}}
}

// Get returns the cached program for key when present.
func (c *MemoryCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	program, ok := c.programs[key]
	c.mu.RUnlock()
	return program, ok
}

// Set stores program under key.
func (c *MemoryCache) Set(key string, program any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = program
	c.mu.Unlock()
}
