package probe

import (
	"reflect"
	"sync"
)

var defaultCache = NewCache()

// Cache memoizes structural shapes per type.
// Each type is probed at most once, even under concurrent first access.
type Cache struct {
	entries sync.Map // reflect.Type -> *cacheEntry
}

type cacheEntry struct {
	once  sync.Once
	shape *Shape
	err   error
}

// NewCache returns an empty Cache.
func NewCache() *Cache { return &Cache{} }

// Inspect returns the cached structural shape of target, probing it on first use.
// Callers must not mutate the returned Shape.
func (c *Cache) Inspect(target reflect.Type) (*Shape, error) {
	if target == nil {
		return inspectStructure(nil)
	}

	raw, _ := c.entries.LoadOrStore(target, &cacheEntry{})
	e := raw.(*cacheEntry)
	e.once.Do(func() {
		e.shape, e.err = inspectStructure(target)
	})
	return e.shape, e.err
}

// Len returns the number of probed types.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
