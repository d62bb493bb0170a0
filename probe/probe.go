package probe

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotStruct is returned when a field probe is applied to a type that
	// is neither a struct nor a pointer to one.
	ErrNotStruct = errors.New("probe: type is not a struct")

	// ErrIndexOutOfRange is returned by ParameterType for a slot past the arity.
	ErrIndexOutOfRange = errors.New("probe: parameter index out of range")

	// ErrNotFunc is returned when a constructor candidate is not a function.
	ErrNotFunc = errors.New("probe: constructor is not a function")

	// ErrNoViableConstructor is returned when no candidate can build the target.
	ErrNoViableConstructor = errors.New("probe: no viable constructor")

	// ErrAmbiguousConstructor is returned when two candidates share the
	// shortest arity.
	ErrAmbiguousConstructor = errors.New("probe: ambiguous constructor")
)

// TagName is the struct tag consulted by the aggregate probe.
// A field tagged `di:"-"` is never treated as a slot.
const TagName = "di"

var errorType = reflect.TypeFor[error]()

// Kind is the construction strategy of a Shape.
type Kind uint8

const (
	KindDefault Kind = iota
	KindAggregate
	KindConstructor
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindAggregate:
		return "aggregate"
	case KindConstructor:
		return "constructor"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Shape describes how to construct Target.
//
// Params holds one entry per slot. For KindAggregate, Fields[i] is the struct
// field index filled by slot i. For KindConstructor, Func is the chosen
// constructor and ReturnsError reports a trailing error result.
type Shape struct {
	Kind         Kind
	Target       reflect.Type
	Params       []reflect.Type
	Fields       []int
	Func         reflect.Value
	ReturnsError bool
}

// Arity returns the number of parameter slots.
func (s *Shape) Arity() int { return len(s.Params) }

// Result returns the type produced by Build.
func (s *Shape) Result() reflect.Type {
	if s.Kind == KindConstructor {
		return s.Func.Type().Out(0)
	}
	return s.Target
}

// String renders the shape as a signature, e.g. "constructor(*app.Clock, app.Logger) *app.Greeter".
func (s *Shape) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return s.Kind.String() + "(" + strings.Join(parts, ", ") + ") " + s.Result().String()
}

// Build constructs a value from args, one per slot.
// A constructor error is returned unchanged.
func (s *Shape) Build(args []reflect.Value) (reflect.Value, error) {
	if len(args) != len(s.Params) {
		return reflect.Value{}, fmt.Errorf("probe: %v takes %d arguments, got %d", s.Result(), len(s.Params), len(args))
	}

	if s.Kind == KindConstructor {
		out := s.Func.Call(args)
		if s.ReturnsError && !out[1].IsNil() {
			return reflect.Value{}, out[1].Interface().(error)
		}
		return out[0], nil
	}

	ptr := s.Target.Kind() == reflect.Pointer
	var v reflect.Value
	if ptr {
		v = reflect.New(s.Target.Elem())
	} else {
		v = reflect.New(s.Target).Elem()
	}

	if s.Kind == KindAggregate {
		fields := v
		if ptr {
			fields = v.Elem()
		}
		for i, idx := range s.Fields {
			fields.Field(idx).Set(args[i])
		}
	}
	return v, nil
}

// IsHandle reports whether t is a shared handle: a pointer or an interface.
func IsHandle(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}

func structOf(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, ErrNotStruct
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	return t, nil
}

// FieldCount returns the number of positional slots of t's composite literal,
// i.e. its field count. t may be a struct or a pointer to a struct.
func FieldCount(t reflect.Type) (int, error) {
	st, err := structOf(t)
	if err != nil {
		return 0, err
	}
	return st.NumField(), nil
}

// ParameterType returns the declared type of slot index in t's composite literal.
func ParameterType(t reflect.Type, index int) (reflect.Type, error) {
	st, err := structOf(t)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= st.NumField() {
		return nil, fmt.Errorf("%w: %v has %d fields, asked for %d", ErrIndexOutOfRange, t, st.NumField(), index)
	}
	return st.Field(index).Type, nil
}

// Arity returns the number of fixed parameters fn takes.
// The variadic tail of a variadic function is not counted.
func Arity(fn any) (int, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return 0, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	return fixedParams(v.Type()), nil
}

func fixedParams(ft reflect.Type) int {
	if ft.IsVariadic() {
		return ft.NumIn() - 1
	}
	return ft.NumIn()
}

// Inspect returns the construction shape of target.
//
// With ctors, only candidates returning something assignable to target
// (optionally followed by error) are viable, and the shortest arity wins.
// Without ctors, the structural shape is probed and cached.
func Inspect(target reflect.Type, ctors ...any) (*Shape, error) {
	if len(ctors) > 0 {
		return inspectConstructors(target, ctors)
	}
	return defaultCache.Inspect(target)
}

func inspectConstructors(target reflect.Type, ctors []any) (*Shape, error) {
	if target == nil {
		return nil, ErrNoViableConstructor
	}

	var best *Shape
	ambiguous := false
	for _, c := range ctors {
		v := reflect.ValueOf(c)
		if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
			return nil, fmt.Errorf("%w: %T", ErrNotFunc, c)
		}

		shape, ok := constructorShape(target, v)
		if !ok {
			continue
		}
		switch {
		case best == nil || shape.Arity() < best.Arity():
			best, ambiguous = shape, false
		case shape.Arity() == best.Arity():
			ambiguous = true
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w for %v among %d candidates", ErrNoViableConstructor, target, len(ctors))
	}
	if ambiguous {
		return nil, fmt.Errorf("%w for %v: several candidates take %d arguments", ErrAmbiguousConstructor, target, best.Arity())
	}
	return best, nil
}

func constructorShape(target reflect.Type, fn reflect.Value) (*Shape, bool) {
	ft := fn.Type()
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, false
		}
	default:
		return nil, false
	}
	if !ft.Out(0).AssignableTo(target) {
		return nil, false
	}

	n := fixedParams(ft)
	params := make([]reflect.Type, n)
	for i := range n {
		params[i] = ft.In(i)
	}
	return &Shape{
		Kind:         KindConstructor,
		Target:       target,
		Params:       params,
		Func:         fn,
		ReturnsError: ft.NumOut() == 2,
	}, true
}

// inspectStructure probes target without a constructor.
func inspectStructure(target reflect.Type) (*Shape, error) {
	if target == nil {
		return nil, ErrNoViableConstructor
	}

	st := target
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
		if st.Kind() != reflect.Struct {
			return &Shape{Kind: KindDefault, Target: target}, nil
		}
	}
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w for %v: not a struct and no constructor given", ErrNoViableConstructor, target)
	}

	var (
		params  []reflect.Type
		fields  []int
		handles int
	)
	for i := range st.NumField() {
		f := st.Field(i)
		if !f.IsExported() || f.Tag.Get(TagName) == "-" {
			continue
		}
		params = append(params, f.Type)
		fields = append(fields, i)
		if IsHandle(f.Type) {
			handles++
		}
	}

	if handles == 0 {
		return &Shape{Kind: KindDefault, Target: target}, nil
	}
	return &Shape{Kind: KindAggregate, Target: target, Params: params, Fields: fields}, nil
}
