package di

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sghaida/autodi/probe"
)

// binding associates an interface type with the function that builds it and
// the cached instance. Fields other than inst never change after registration.
type binding struct {
	iface reflect.Type
	// impl is nil for Provide bindings.
	impl  reflect.Type
	shape *probe.Shape
	deps  []reflect.Type
	build func(r *Registry) (any, error)
	inst  instance
}

// instance is a one-shot barrier around a lazily built value.
//
// The first successful build is published exactly once; concurrent callers
// wait for it and then read the same value. A failed build leaves the
// barrier open so a later call may retry.
type instance struct {
	done atomic.Bool
	mu   sync.Mutex
	val  any
}

// load returns the published value without locking.
func (i *instance) load() (any, bool) {
	if i.done.Load() {
		return i.val, true
	}
	return nil, false
}

// get returns the published value, running build at most once successfully.
func (i *instance) get(build func() (any, error)) (any, error) {
	if v, ok := i.load(); ok {
		return v, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.done.Load() {
		return i.val, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}
	i.val = v
	i.done.Store(true)
	return v, nil
}
