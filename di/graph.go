package di

import (
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// cycleWalker runs a depth-first search over bound types, following the
// probed or declared dependencies of each binding. Unbound types are leaves.
type cycleWalker struct {
	deps   func(reflect.Type) ([]reflect.Type, bool)
	state  map[reflect.Type]visitState
	stack  []reflect.Type
	cycles []CycleError
	first  bool
}

func (w *cycleWalker) walk(t reflect.Type) {
	if w.first && len(w.cycles) > 0 {
		return
	}

	switch w.state[t] {
	case visited:
		return
	case visiting:
		w.cycles = append(w.cycles, CycleError{Path: w.pathTo(t)})
		return
	}

	deps, ok := w.deps(t)
	if !ok {
		return
	}

	w.state[t] = visiting
	w.stack = append(w.stack, t)
	for _, d := range deps {
		w.walk(d)
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.state[t] = visited
}

// pathTo returns the stack suffix starting at t, closed with t again.
func (w *cycleWalker) pathTo(t reflect.Type) []reflect.Type {
	for i, s := range w.stack {
		if s == t {
			path := append([]reflect.Type(nil), w.stack[i:]...)
			return append(path, t)
		}
	}
	return []reflect.Type{t, t}
}

func (r *Registry) newWalker(first bool) *cycleWalker {
	return &cycleWalker{
		deps: func(t reflect.Type) ([]reflect.Type, bool) {
			b := r.lookup(t)
			if b == nil {
				return nil, false
			}
			return b.deps, true
		},
		state: make(map[reflect.Type]visitState),
		first: first,
	}
}

// checkAcyclic returns the first cycle reachable from t.
//
// It runs before t is first constructed so that a cyclic graph fails with a
// CycleError instead of recursing or blocking on its own barrier.
func (r *Registry) checkAcyclic(t reflect.Type) error {
	w := r.newWalker(true)
	w.walk(t)
	if len(w.cycles) > 0 {
		return w.cycles[0]
	}
	return nil
}

// Validate walks every binding and reports all problems at once: dependencies
// that are not bound and dependency cycles. Call it after all bindings are
// registered and before the first Get to surface wiring mistakes at startup.
func (r *Registry) Validate() error {
	bindings := r.snapshot()

	var errs error
	for _, b := range bindings {
		for _, d := range b.deps {
			if !r.tracker.isRegistered(d) {
				errs = multierr.Append(errs, UnboundTypeError{Type: d, RequiredBy: b.iface})
			}
		}
	}

	w := r.newWalker(false)
	for _, b := range bindings {
		w.walk(b.iface)
	}
	for _, c := range w.cycles {
		errs = multierr.Append(errs, c)
	}

	if errs != nil {
		r.log.Debug("validation failed", zap.Errors("errors", multierr.Errors(errs)))
	}
	return errs
}
