package auth

import (
	"reflect"
	"sort"
	"sync"
)

// Collection holds at most one Method per Kind, ordered by precedence.
// Lookups may run concurrently with Add.
type Collection struct {
	mu      sync.RWMutex
	methods []Method
}

// NewCollection creates a collection holding methods. Later methods replace
// earlier ones of the same kind.
func NewCollection(methods ...Method) *Collection {
	c := &Collection{}
	for _, m := range methods {
		c.Add(m)
	}
	return c
}

// Add inserts m, replacing any method of the same kind. A nil method is ignored.
func (c *Collection) Add(m Method) {
	if m == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Method, 0, len(c.methods)+1)
	for _, existing := range c.methods {
		if existing.Kind() != m.Kind() {
			next = append(next, existing)
		}
	}
	next = append(next, m)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].SortKey() < next[j].SortKey()
	})
	c.methods = next
}

func (c *Collection) snapshot() []Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.methods
}

// Acceptable returns the most preferred configured method whose kind is in kinds.
func (c *Collection) Acceptable(kinds ...Kind) (Method, error) {
	methods := c.snapshot()
	for _, m := range methods {
		for _, k := range kinds {
			if m.Kind() == k {
				return m, nil
			}
		}
	}

	acceptable := make([]string, len(kinds))
	for i, k := range kinds {
		acceptable[i] = k.String()
	}
	return nil, &NoAcceptableMethodError{Available: names(methods), Acceptable: acceptable}
}

// Get returns the configured method of the given kind.
func (c *Collection) Get(kind Kind) (Method, error) {
	return c.Acceptable(kind)
}

// Has reports whether a method of kind is configured.
func (c *Collection) Has(kind Kind) bool {
	_, err := c.Get(kind)
	return err == nil
}

// Kinds lists the configured kinds in precedence order.
func (c *Collection) Kinds() []Kind {
	methods := c.snapshot()
	kinds := make([]Kind, len(methods))
	for i, m := range methods {
		kinds[i] = m.Kind()
	}
	return kinds
}

// Len returns the number of configured methods.
func (c *Collection) Len() int {
	return len(c.snapshot())
}

// Lookup returns the most preferred method assignable to T, which may be a
// concrete method type or a capability interface such as HeaderAuth.
func Lookup[T Method](c *Collection) (T, error) {
	methods := c.snapshot()
	for _, m := range methods {
		if t, ok := m.(T); ok {
			return t, nil
		}
	}
	var zero T
	return zero, &NoAcceptableMethodError{
		Available:  names(methods),
		Acceptable: []string{reflect.TypeOf((*T)(nil)).Elem().String()},
	}
}

// Contains reports whether a method assignable to T is configured.
func Contains[T Method](c *Collection) bool {
	_, err := Lookup[T](c)
	return err == nil
}

func names(methods []Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.Kind().String()
	}
	return out
}
