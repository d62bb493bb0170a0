// Package di is a registry of singleton bindings with automatic constructor wiring.
//
// Types are bound to the interfaces they serve, and the registry builds each
// one on first request. Constructor parameters are discovered by the probe
// package rather than declared: a struct's exported handle fields, or the
// parameters of a constructor function. Each parameter must be a shared
// handle (a pointer or an interface) and is itself resolved through the
// registry.
//
// Semantics:
//
//   - One instance per bound type per Registry, built lazily and exactly once
//     even when many goroutines ask for it at the same time.
//   - First binding wins by default. WithConflictPolicy(ConflictError) turns a
//     conflicting rebind into a BindingConflictError instead.
//   - Requesting a type that was never bound returns UnboundTypeError.
//   - Dependency cycles are reported as CycleError before construction starts.
//   - Validate checks the whole graph at startup and reports every problem at once.
//
// Example:
//
//	reg := di.New(di.WithLogger(log))
//	_ = di.BindSelf[*Clock](reg)
//	_ = di.BindConstructor[Greeter](reg, NewEnglishGreeter) // func(*Clock) *EnglishGreeter
//	if err := reg.Validate(); err != nil {
//		return err
//	}
//	g := di.MustGet[Greeter](reg)
//
// cmd/digen generates the same wiring from source, with a typed accessor per
// bound type so that a request for an unbound type fails to compile.
package di
