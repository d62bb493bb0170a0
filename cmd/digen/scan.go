package main

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sghaida/autodi/probe"
)

// sourcePackage is the non-generated, non-test source of one package directory.
type sourcePackage struct {
	dir     string
	name    string
	types   map[string]*ast.TypeSpec
	funcs   []*ast.FuncDecl
	imports []goImport
}

// sourceShape is the construction shape of a type, probed from source.
// It mirrors probe.Shape with type expressions in place of reflect types.
type sourceShape struct {
	Kind         probe.Kind
	Result       string
	Ctor         string
	Params       []string
	Fields       []string
	ReturnsError bool
}

func (s sourceShape) String() string {
	switch s.Kind {
	case probe.KindConstructor:
		return fmt.Sprintf("constructor %s(%s) %s", s.Ctor, strings.Join(s.Params, ", "), s.Result)
	case probe.KindAggregate:
		fields := make([]string, len(s.Fields))
		for i := range s.Fields {
			fields[i] = s.Fields[i] + " " + s.Params[i]
		}
		return fmt.Sprintf("aggregate %s{%s}", s.Result, strings.Join(fields, "; "))
	default:
		return fmt.Sprintf("%v %s", s.Kind, s.Result)
	}
}

// isSourceFile skips tests and generated outputs so they never feed back into probing.
func isSourceFile(name string) bool {
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return !strings.HasSuffix(name, ".gen.go") && !strings.HasSuffix(name, "_gen.go")
}

// scanPackage parses every source file in dir concurrently.
func scanPackage(ctx context.Context, dir string) (*sourcePackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isSourceFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no Go source files in %s", filepath.ToSlash(dir))
	}

	fset := token.NewFileSet()
	files := make([]*ast.File, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments|parser.SkipObjectResolution)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkg := &sourcePackage{dir: dir, types: make(map[string]*ast.TypeSpec)}
	for _, f := range files {
		if buildIgnored(f) {
			continue
		}
		switch {
		case pkg.name == "":
			pkg.name = f.Name.Name
		case pkg.name != f.Name.Name:
			return nil, fmt.Errorf("%s: found packages %s and %s", filepath.ToSlash(dir), pkg.name, f.Name.Name)
		}
		pkg.collect(f)
	}
	if pkg.name == "" {
		return nil, fmt.Errorf("no buildable Go source files in %s", filepath.ToSlash(dir))
	}
	pkg.imports = dedupeAndSortImports(pkg.imports)
	return pkg, nil
}

// buildIgnored reports a //go:build ignore constraint above the package clause.
func buildIgnored(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		for _, c := range cg.List {
			if strings.HasPrefix(c.Text, "//go:build") && strings.Contains(c.Text, "ignore") {
				return true
			}
		}
	}
	return false
}

func (p *sourcePackage) collect(f *ast.File) {
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		gi := goImport{Path: path}
		if imp.Name != nil {
			gi.Name = imp.Name.Name
		}
		p.imports = append(p.imports, gi)
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, s := range d.Specs {
				ts := s.(*ast.TypeSpec)
				p.types[ts.Name.Name] = ts
			}
		case *ast.FuncDecl:
			if d.Recv == nil && d.Type.TypeParams == nil {
				p.funcs = append(p.funcs, d)
			}
		}
	}
}

// parseTypeExpr parses a manifest type such as "*Clock" and checks that it
// names a type declared in the package.
func (p *sourcePackage) parseTypeExpr(s string) (string, error) {
	expr, err := parser.ParseExpr(s)
	if err != nil {
		return "", fmt.Errorf("type %q: %w", s, err)
	}
	base := expr
	if star, ok := base.(*ast.StarExpr); ok {
		base = star.X
	}
	id, ok := base.(*ast.Ident)
	if !ok {
		return "", fmt.Errorf("type %q must be T or *T", s)
	}
	if _, ok := p.types[id.Name]; !ok {
		return "", fmt.Errorf("type %s is not declared in package %s", id.Name, p.name)
	}
	return types.ExprString(expr), nil
}

// underlying follows local named types and aliases down to a type literal.
// It returns nil for types declared elsewhere.
func (p *sourcePackage) underlying(name string) ast.Expr {
	for range len(p.types) + 1 {
		ts, ok := p.types[name]
		if !ok {
			return nil
		}
		id, ok := ts.Type.(*ast.Ident)
		if !ok {
			return ts.Type
		}
		name = id.Name
	}
	return nil
}

func (p *sourcePackage) isInterface(name string) bool {
	switch name {
	case "any", "error":
		return true
	}
	_, ok := p.underlying(name).(*ast.InterfaceType)
	return ok
}

// isHandle reports whether expr is a pointer or an interface. Types from other
// packages count as handles here; they fail later as unbound.
func (p *sourcePackage) isHandle(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.StarExpr, *ast.InterfaceType, *ast.SelectorExpr:
		return true
	case *ast.Ident:
		return p.isInterface(e.Name)
	case *ast.ParenExpr:
		return p.isHandle(e.X)
	default:
		return false
	}
}

func (p *sourcePackage) isHandleString(s string) bool {
	expr, err := parser.ParseExpr(s)
	return err == nil && p.isHandle(expr)
}

//
// -----------------------------------------------------------------------------
// Probing
// -----------------------------------------------------------------------------

// probe finds how impl is built. pinned, when set, names the only constructor considered.
func (p *sourcePackage) probe(impl, pinned string) (sourceShape, error) {
	ctors, err := p.constructors(impl, pinned)
	if err != nil {
		return sourceShape{}, err
	}
	if len(ctors) > 0 {
		return pickConstructor(impl, ctors)
	}
	return p.probeStructure(impl)
}

// constructors returns the viable constructors for impl: free functions named
// New... (or pinned) returning impl, optionally followed by an error.
func (p *sourcePackage) constructors(impl, pinned string) ([]sourceShape, error) {
	var out []sourceShape
	for _, fn := range p.funcs {
		name := fn.Name.Name
		if pinned != "" && name != pinned {
			continue
		}
		if pinned == "" && !strings.HasPrefix(name, "New") {
			continue
		}

		results := expandFields(fn.Type.Results)
		switch {
		case len(results) == 1:
		case len(results) == 2 && types.ExprString(results[1]) == "error":
		default:
			continue
		}
		if types.ExprString(results[0]) != impl {
			continue
		}

		var params []string
		for _, pt := range expandFields(fn.Type.Params) {
			if _, variadic := pt.(*ast.Ellipsis); variadic {
				break
			}
			params = append(params, types.ExprString(pt))
		}
		out = append(out, sourceShape{
			Kind:         probe.KindConstructor,
			Result:       impl,
			Ctor:         name,
			Params:       params,
			ReturnsError: len(results) == 2,
		})
	}

	if pinned != "" && len(out) == 0 {
		return nil, fmt.Errorf("%w: %s does not exist or does not return %s", probe.ErrNoViableConstructor, pinned, impl)
	}
	return out, nil
}

// expandFields flattens a field list so that "a, b int" yields two entries.
func expandFields(fl *ast.FieldList) []ast.Expr {
	if fl == nil {
		return nil
	}
	var out []ast.Expr
	for _, f := range fl.List {
		n := max(len(f.Names), 1)
		for range n {
			out = append(out, f.Type)
		}
	}
	return out
}

// pickConstructor keeps the constructor with the fewest parameters.
func pickConstructor(impl string, ctors []sourceShape) (sourceShape, error) {
	sort.SliceStable(ctors, func(i, j int) bool { return len(ctors[i].Params) < len(ctors[j].Params) })
	best := ctors[0]
	if len(ctors) > 1 && len(ctors[1].Params) == len(best.Params) {
		return sourceShape{}, fmt.Errorf("%w for %s: %s and %s both take %d arguments",
			probe.ErrAmbiguousConstructor, impl, best.Ctor, ctors[1].Ctor, len(best.Params))
	}
	return best, nil
}

func (p *sourcePackage) probeStructure(impl string) (sourceShape, error) {
	name, ptr := strings.CutPrefix(impl, "*")
	u := p.underlying(name)

	switch t := u.(type) {
	case *ast.InterfaceType:
		return sourceShape{}, fmt.Errorf("%w for %s: interfaces need a constructor or an implementation", probe.ErrNoViableConstructor, impl)
	case *ast.StructType:
		return p.probeStruct(impl, t), nil
	default:
		if ptr {
			return sourceShape{Kind: probe.KindDefault, Result: impl}, nil
		}
		return sourceShape{}, fmt.Errorf("%w for %s: not a struct and no New... function returns it", probe.ErrNoViableConstructor, impl)
	}
}

// probeStruct is Aggregate when an injectable field is a handle, otherwise Default.
func (p *sourcePackage) probeStruct(impl string, st *ast.StructType) sourceShape {
	shape := sourceShape{Kind: probe.KindDefault, Result: impl}

	var handles int
	for _, f := range st.Fields.List {
		if skippedByTag(f.Tag) {
			continue
		}
		names := fieldNames(f)
		for _, n := range names {
			if !token.IsExported(n) {
				continue
			}
			shape.Fields = append(shape.Fields, n)
			shape.Params = append(shape.Params, types.ExprString(f.Type))
			if p.isHandle(f.Type) {
				handles++
			}
		}
	}

	if handles == 0 {
		return sourceShape{Kind: probe.KindDefault, Result: impl}
	}
	shape.Kind = probe.KindAggregate
	return shape
}

// fieldNames returns the declared names, or the type name for an embedded field.
func fieldNames(f *ast.Field) []string {
	if len(f.Names) > 0 {
		out := make([]string, len(f.Names))
		for i, n := range f.Names {
			out[i] = n.Name
		}
		return out
	}

	t := f.Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	switch e := t.(type) {
	case *ast.Ident:
		return []string{e.Name}
	case *ast.SelectorExpr:
		return []string{e.Sel.Name}
	}
	return nil
}

func skippedByTag(tag *ast.BasicLit) bool {
	if tag == nil {
		return false
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return false
	}
	return reflect.StructTag(raw).Get(probe.TagName) == "-"
}
