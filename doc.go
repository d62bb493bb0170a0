// Package autodi is a dependency container that works out how to build your
// types by looking at them.
//
// Bind an interface to an implementation and ask for it. The container finds
// the implementation's shortest New... constructor, or fills its exported
// handle fields, builds every dependency the same way and hands out one shared
// instance per bound type, even under concurrent first use.
//
// See subpackages:
//   - probe: structural inspection of structs and constructor functions
//   - di: the registry (Bind, BindSelf, BindConstructor, Provide, Get, Validate)
//   - cmd/digen: generates a typed container from a bindings manifest
//   - examples/greeter: a go:generate wired example with its generated container
package autodi
