// Package probe discovers the construction shape of a Go type without any
// cooperation from the type's author.
//
// A shape is the ordered list of parameters needed to build a value:
//
//   - Default: the zero value is usable as is (new(T)).
//   - Aggregate: a struct whose exported fields include shared handles
//     (pointers or interfaces). Each exported field is one slot, in
//     declaration order, exactly like a positional composite literal T{a, b}.
//   - Constructor: a constructor function. When several are offered, the one
//     with the shortest unambiguous parameter list wins.
//
// Structural shapes are computed once per type and cached; probing the same
// type again returns the first result.
//
// Usage:
//
//	n, _ := probe.FieldCount(reflect.TypeFor[Point]())          // 3 for struct{X, Y, Z int}
//	s, _ := probe.Inspect(reflect.TypeFor[*Service](), NewService)
//	fmt.Println(s.Kind, s.Arity())
package probe
