package di

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sghaida/autodi/probe"
)

// Registry holds bindings and the singletons built from them.
//
// Every bound type has exactly one instance per Registry, built on first Get
// and shared by all later callers. A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]*binding
	tracker  *tracker

	log     *zap.Logger
	metrics *metrics
	policy  ConflictPolicy
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		bindings: make(map[reflect.Type]*binding),
		tracker:  newTracker(),
		log:      zap.NewNop(),
		policy:   ConflictFirstWins,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

//
// -----------------------------------------------------------------------------
// Binding
// -----------------------------------------------------------------------------

// Bind binds interface I to implementation Impl.
//
// Impl must be I itself or assignable to I. Its construction shape is probed:
// a type whose exported fields hold no shared handles is built from its zero
// value, otherwise every exported field is resolved through the registry.
//
//	err := di.Bind[Greeter, *EnglishGreeter](reg)
func Bind[I, Impl any](r *Registry) error {
	iface, impl := reflect.TypeFor[I](), reflect.TypeFor[Impl]()

	if impl != iface && !impl.AssignableTo(iface) {
		return InvalidBindingError{Interface: iface, Impl: impl, Reason: "does not implement " + typeName(iface)}
	}

	shape, err := probe.Inspect(impl)
	if err != nil {
		return InvalidBindingError{Interface: iface, Impl: impl, Reason: err.Error(), Err: err}
	}
	return r.bindShape(iface, impl, shape)
}

// BindSelf binds T to itself. It is shorthand for Bind[T, T].
func BindSelf[T any](r *Registry) error {
	return Bind[T, T](r)
}

// BindConstructor binds I to the value returned by one of ctors.
//
// Each constructor must return something assignable to I, optionally followed
// by an error. When several are given, the one with the fewest parameters is
// used; a tie is rejected as ambiguous. Every parameter must be a shared
// handle and is resolved through the registry.
//
//	err := di.BindConstructor[Greeter](reg, NewEnglishGreeter)
func BindConstructor[I any](r *Registry, ctors ...any) error {
	iface := reflect.TypeFor[I]()
	if len(ctors) == 0 {
		return InvalidBindingError{Interface: iface, Reason: "no constructor given"}
	}

	shape, err := probe.Inspect(iface, ctors...)
	if err != nil {
		return InvalidBindingError{Interface: iface, Reason: err.Error(), Err: err}
	}
	return r.bindShape(iface, shape.Result(), shape)
}

// Provide binds I to fn. deps lists the types fn resolves from the registry;
// they are used by Validate and cycle detection, so fn must not resolve
// anything it does not declare.
func Provide[I any](r *Registry, fn func(*Registry) (I, error), deps ...reflect.Type) error {
	iface := reflect.TypeFor[I]()
	if fn == nil {
		return InvalidBindingError{Interface: iface, Reason: "nil provider function"}
	}

	b := &binding{
		iface: iface,
		deps:  append([]reflect.Type(nil), deps...),
		build: func(r *Registry) (any, error) {
			v, err := fn(r)
			if err != nil {
				return nil, ConstructionError{Type: iface, Err: err}
			}
			return v, nil
		},
	}
	return r.register(b)
}

func (r *Registry) bindShape(iface, impl reflect.Type, shape *probe.Shape) error {
	for i, p := range shape.Params {
		if !probe.IsHandle(p) {
			return InvalidDependencyError{Impl: impl, Index: i, Param: p}
		}
	}

	b := &binding{
		iface: iface,
		impl:  impl,
		shape: shape,
		deps:  shape.Params,
	}
	b.build = func(r *Registry) (any, error) {
		args := make([]reflect.Value, len(shape.Params))
		for i, p := range shape.Params {
			v, err := r.resolve(p, iface)
			if err != nil {
				return nil, err
			}
			args[i] = valueOf(v, p)
		}

		out, err := shape.Build(args)
		if err != nil {
			return nil, ConstructionError{Type: impl, Err: err}
		}
		return out.Interface(), nil
	}
	return r.register(b)
}

func (r *Registry) register(b *binding) error {
	r.mu.Lock()
	existing, ok := r.bindings[b.iface]
	if !ok {
		r.bindings[b.iface] = b
	}
	r.mu.Unlock()

	if ok {
		if r.policy == ConflictError && (existing.impl == nil || existing.impl != b.impl) {
			return BindingConflictError{Interface: b.iface, Existing: existing.impl, Rejected: b.impl}
		}
		r.log.Debug("binding ignored, first binding wins",
			zap.Stringer("interface", b.iface),
			zap.String("kept", typeName(existing.impl)),
			zap.String("ignored", typeName(b.impl)),
		)
		return nil
	}

	r.tracker.markRegistered(b.iface)

	kind := "provider"
	if b.shape != nil {
		kind = b.shape.Kind.String()
	}
	r.log.Debug("bound",
		zap.Stringer("interface", b.iface),
		zap.String("impl", typeName(b.impl)),
		zap.String("shape", kind),
		zap.Int("deps", len(b.deps)),
	)
	return nil
}

// valueOf converts a resolved instance into an argument for a slot of type t.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

//
// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// Get returns the shared instance bound to T, building it on first use.
//
// Concurrent first callers observe a single construction and the same instance.
func Get[T any](r *Registry) (T, error) {
	var zero T

	t := reflect.TypeFor[T]()
	v, err := r.resolve(t, nil)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	out, ok := v.(T)
	if !ok {
		return zero, InvalidBindingError{
			Interface: t,
			Impl:      reflect.TypeOf(v),
			Reason:    fmt.Sprintf("built value of type %T is not a %v", v, t),
		}
	}
	return out, nil
}

// MustGet is like Get but panics on error.
// Useful in composition roots where a missing binding should fail fast.
func MustGet[T any](r *Registry) T {
	v, err := Get[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

func (r *Registry) resolve(t, requiredBy reflect.Type) (any, error) {
	if err := r.tracker.assertRegistered(t, requiredBy); err != nil {
		return nil, err
	}

	b := r.lookup(t)
	if b == nil {
		return nil, UnboundTypeError{Type: t, RequiredBy: requiredBy}
	}
	if v, ok := b.inst.load(); ok {
		return v, nil
	}

	if err := r.checkAcyclic(t); err != nil {
		return nil, err
	}
	return b.inst.get(func() (any, error) { return r.construct(b) })
}

func (r *Registry) construct(b *binding) (v any, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, ConstructionError{Type: b.iface, Err: fmt.Errorf("panic: %v", rec)}
		}

		took := time.Since(start)
		r.metrics.observe(b.iface, took, err)
		if err != nil {
			r.log.Warn("construction failed", zap.Stringer("type", b.iface), zap.Error(err))
			return
		}
		r.log.Debug("constructed", zap.Stringer("type", b.iface), zap.Duration("took", took))
	}()

	return b.build(r)
}

func (r *Registry) lookup(t reflect.Type) *binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[t]
}

//
// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

// Has reports whether T is bound.
func Has[T any](r *Registry) bool {
	return r.tracker.isRegistered(reflect.TypeFor[T]())
}

// Dependencies returns the parameter types T is built from, in slot order.
func Dependencies[T any](r *Registry) ([]reflect.Type, error) {
	t := reflect.TypeFor[T]()
	b := r.lookup(t)
	if b == nil {
		return nil, UnboundTypeError{Type: t}
	}
	return append([]reflect.Type(nil), b.deps...), nil
}

// Bound returns every bound interface type, ordered by name.
func (r *Registry) Bound() []reflect.Type {
	return r.tracker.registered()
}

// Built reports whether the instance for T has already been constructed.
func Built[T any](r *Registry) bool {
	b := r.lookup(reflect.TypeFor[T]())
	if b == nil {
		return false
	}
	_, ok := b.inst.load()
	return ok
}

// snapshot returns the bindings ordered by interface name.
func (r *Registry) snapshot() []*binding {
	r.mu.RLock()
	out := make([]*binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].iface.String() < out[j].iface.String() })
	return out
}
