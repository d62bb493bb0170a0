package di

import (
	"reflect"
	"sort"
	"sync"
)

// tracker records which interface types have been bound.
// A mark is set once and never cleared.
type tracker struct {
	mu    sync.RWMutex
	marks map[reflect.Type]struct{}
}

func newTracker() *tracker {
	return &tracker{marks: make(map[reflect.Type]struct{})}
}

// markRegistered sets the mark for t. It reports whether the mark is new;
// marking an already marked type is harmless.
func (tr *tracker) markRegistered(t reflect.Type) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, ok := tr.marks[t]; ok {
		return false
	}
	tr.marks[t] = struct{}{}
	return true
}

// assertRegistered fails with UnboundTypeError when t was never marked.
func (tr *tracker) assertRegistered(t, requiredBy reflect.Type) error {
	if tr.isRegistered(t) {
		return nil
	}
	return UnboundTypeError{Type: t, RequiredBy: requiredBy}
}

func (tr *tracker) isRegistered(t reflect.Type) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	_, ok := tr.marks[t]
	return ok
}

// registered returns the marked types ordered by name.
func (tr *tracker) registered() []reflect.Type {
	tr.mu.RLock()
	out := make([]reflect.Type, 0, len(tr.marks))
	for t := range tr.marks {
		out = append(out, t)
	}
	tr.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
