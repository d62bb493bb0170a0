package di

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrUnbound matches UnboundTypeError.
	ErrUnbound = errors.New("di: type not bound")

	// ErrInvalidBinding matches InvalidBindingError.
	ErrInvalidBinding = errors.New("di: invalid binding")

	// ErrInvalidDependency matches InvalidDependencyError.
	ErrInvalidDependency = errors.New("di: invalid dependency")

	// ErrBindingConflict matches BindingConflictError.
	ErrBindingConflict = errors.New("di: binding conflict")

	// ErrCycle matches CycleError.
	ErrCycle = errors.New("di: dependency cycle")

	// ErrConstruction matches ConstructionError.
	ErrConstruction = errors.New("di: construction failed")
)

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// UnboundTypeError is returned when a type is requested that was never bound.
//
// RequiredBy is set when the request came from another binding's parameter list.
type UnboundTypeError struct {
	Type       reflect.Type
	RequiredBy reflect.Type
}

// Error implements the error interface.
func (e UnboundTypeError) Error() string {
	// Example: di: type *app.Clock not bound (required by app.Greeter)
	msg := "di: type " + typeName(e.Type) + " not bound"
	if e.RequiredBy != nil {
		msg += " (required by " + typeName(e.RequiredBy) + ")"
	}
	return msg
}

// Is reports whether target is ErrUnbound.
func (e UnboundTypeError) Is(target error) bool { return target == ErrUnbound }

// InvalidBindingError is returned when an implementation cannot serve an interface
// or has no usable construction shape.
type InvalidBindingError struct {
	Interface reflect.Type
	Impl      reflect.Type
	Reason    string
	Err       error
}

// Error implements the error interface.
func (e InvalidBindingError) Error() string {
	// Example: di: invalid binding app.Greeter -> *app.Clock: does not implement app.Greeter
	return "di: invalid binding " + typeName(e.Interface) + " -> " + typeName(e.Impl) + ": " + e.Reason
}

// Is reports whether target is ErrInvalidBinding.
func (e InvalidBindingError) Is(target error) bool { return target == ErrInvalidBinding }

// Unwrap returns the probe error, if any.
func (e InvalidBindingError) Unwrap() error { return e.Err }

// InvalidDependencyError is returned when a probed parameter is not a shared handle.
type InvalidDependencyError struct {
	Impl  reflect.Type
	Index int
	Param reflect.Type
}

// Error implements the error interface.
func (e InvalidDependencyError) Error() string {
	// Example: di: *app.Server parameter 1 (int): constructor argument must be a shared handle to a registered dependency type
	return "di: " + typeName(e.Impl) + " parameter " + strconv.Itoa(e.Index) + " (" + typeName(e.Param) +
		"): constructor argument must be a shared handle to a registered dependency type"
}

// Is reports whether target is ErrInvalidDependency.
func (e InvalidDependencyError) Is(target error) bool { return target == ErrInvalidDependency }

// BindingConflictError is returned under ConflictError when an interface is
// bound again to a different implementation.
type BindingConflictError struct {
	Interface reflect.Type
	Existing  reflect.Type
	Rejected  reflect.Type
}

// Error implements the error interface.
func (e BindingConflictError) Error() string {
	return "di: " + typeName(e.Interface) + " already bound to " + typeName(e.Existing) +
		", refusing " + typeName(e.Rejected)
}

// Is reports whether target is ErrBindingConflict.
func (e BindingConflictError) Is(target error) bool { return target == ErrBindingConflict }

// CycleError is returned when resolving a type would re-enter itself.
// Path starts and ends with the same type.
type CycleError struct {
	Path []reflect.Type
}

// Error implements the error interface.
func (e CycleError) Error() string {
	// Example: di: dependency cycle a.A -> a.B -> a.A
	names := make([]string, len(e.Path))
	for i, t := range e.Path {
		names[i] = typeName(t)
	}
	return "di: dependency cycle " + strings.Join(names, " -> ")
}

// Is reports whether target is ErrCycle.
func (e CycleError) Is(target error) bool { return target == ErrCycle }

// ConstructionError wraps an error returned, or a panic raised, by a constructor.
type ConstructionError struct {
	Type reflect.Type
	Err  error
}

// Error implements the error interface.
func (e ConstructionError) Error() string {
	return "di: constructing " + typeName(e.Type) + ": " + e.Err.Error()
}

// Is reports whether target is ErrConstruction.
func (e ConstructionError) Is(target error) bool { return target == ErrConstruction }

// Unwrap returns the underlying constructor error.
func (e ConstructionError) Unwrap() error { return e.Err }
