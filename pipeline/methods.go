package pipeline

import (
	"sync"

	"github.com/AndreasM009/entitystore-go/revision"
)

// methodCache remembers per entity type which quoting method decoded the last
// revision, so the failing method is not retried on every event.
type methodCache struct {
	fallback revision.Method
	methods  map[string]revision.Method
	mutex    sync.RWMutex
}

func newMethodCache(fallback revision.Method) *methodCache {
	return &methodCache{
		fallback: fallback,
		methods:  make(map[string]revision.Method),
	}
}

func (c *methodCache) get(entityType string) revision.Method {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if m, ok := c.methods[entityType]; ok {
		return m
	}
	return c.fallback
}

func (c *methodCache) set(entityType string, m revision.Method) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.methods[entityType] = m
}
