// Command digen generates a typed dependency container from a bindings manifest.
//
// digen reads a small YAML or JSON manifest that lists which types a package
// binds, probes each implementation from the package source, and writes a
// container whose accessors are ordinary typed methods. Asking for a type that
// was never bound is then a compile error instead of a runtime one.
//
// No annotations are needed on the bound types. For every implementation digen
// looks for a constructor first and falls back to the struct itself:
//
//   - Constructor: a free function named New... (or the one pinned with
//     `constructor:`) that returns the implementation, optionally followed by
//     an error. When several match, the one with the fewest parameters wins;
//     two with the same fewest count are rejected as ambiguous.
//   - Aggregate: a struct with at least one exported pointer or interface
//     field. Every exported field not tagged `di:"-"` is injected.
//   - Default: anything else that can be built from its zero value.
//
// Every constructor parameter and aggregate field must be a pointer or an
// interface naming another bound type.
//
// Manifest
//
//	package: greeter
//	container: App
//	out: container.gen.go
//	bindings:
//	  - type: "*Clock"
//	  - interface: Greeter
//	    impl: "*EnglishGreeter"
//	  - type: "*Service"
//	    constructor: NewService
//
// The first binding for an interface wins; later ones are ignored with a
// warning, or rejected when `onConflict: error` is set.
//
// Generated output
//
// For the manifest above digen writes:
//
//   - var _ Greeter = (*EnglishGreeter)(nil) for every interface binding
//   - type App struct wrapping a *di.Registry
//   - NewApp(opts ...di.Option) (*App, error), which binds everything and
//     runs Validate
//   - Clock, Greeter and Service accessors plus Must variants
//
// Unbound dependencies, non-handle parameters, missing or ambiguous
// constructors, and dependency cycles are all reported together when the
// generator runs, before any code is written.
//
// Usage
//
//	//go:generate go run github.com/sghaida/autodi/cmd/digen generate --manifest bindings.yaml
//
//	digen generate --manifest bindings.yaml [--out container.gen.go] [--watch]
//	digen inspect --dir ./greeter Clock "*Service"
//	digen version
//
// Environment
//
// DIGEN_ENV selects the log format (development or production),
// DIGEN_LOG_LEVEL the log level and DIGEN_DI_IMPORT overrides the import path
// of the di runtime package. A .env file in the working directory is loaded
// first when present.
package main
