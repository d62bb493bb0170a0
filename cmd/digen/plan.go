package main

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sghaida/autodi/di"
	"github.com/sghaida/autodi/probe"
)

// plan is everything the template needs to render one container.
type plan struct {
	Package      string
	Container    string
	DIImport     string
	ManifestPath string
	ManifestHash string
	StrictPolicy bool

	Bindings []planBinding
}

type planBinding struct {
	Interface string
	Impl      string
	Shape     sourceShape
	Accessor  string
}

// Call renders the di call that registers the binding.
func (b planBinding) Call() string {
	switch {
	case b.Shape.Kind == probe.KindConstructor:
		return fmt.Sprintf("di.BindConstructor[%s](reg, %s)", b.Interface, b.Shape.Ctor)
	case b.Interface == b.Impl:
		return fmt.Sprintf("di.BindSelf[%s](reg)", b.Interface)
	default:
		return fmt.Sprintf("di.Bind[%s, %s](reg)", b.Interface, b.Impl)
	}
}

// Assertion renders a compile-time check that Impl implements Interface,
// or "" when the binding is to the type itself.
func (b planBinding) Assertion() string {
	if b.Interface == b.Impl {
		return ""
	}
	if name, ok := strings.CutPrefix(b.Impl, "*"); ok {
		return fmt.Sprintf("var _ %s = (*%s)(nil)", b.Interface, name)
	}
	return fmt.Sprintf("var _ %s = *new(%s)", b.Interface, b.Impl)
}

// buildPlan resolves every binding against the package source and reports
// all wiring problems together.
func buildPlan(m *Manifest, pkg *sourcePackage, log *zap.Logger) (*plan, error) {
	policy, err := m.conflictPolicy()
	if err != nil {
		return nil, err
	}

	p := &plan{
		Package:      m.Package,
		Container:    m.Container,
		StrictPolicy: policy == di.ConflictError,
	}

	var errs error
	index := make(map[string]int)
	failed := make(map[string]bool)
	accessors := map[string]string{"Registry": "the container's Registry method"}

	for i, mb := range m.Bindings {
		ifaceRaw, implRaw := mb.key()
		iface, err := pkg.parseTypeExpr(ifaceRaw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: %w", i, err))
			continue
		}
		impl, err := pkg.parseTypeExpr(implRaw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: %w", i, err))
			continue
		}
		if iface != impl && !pkg.isInterface(iface) {
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: %w %s -> %s: %s is not an interface", i, di.ErrInvalidBinding, iface, impl, iface))
			continue
		}

		if prev, dup := index[iface]; dup {
			kept := p.Bindings[prev].Impl
			if policy == di.ConflictError && kept != impl {
				errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: %w: %s already bound to %s, refusing %s", i, di.ErrBindingConflict, iface, kept, impl))
				continue
			}
			log.Warn("binding ignored, first binding wins",
				zap.String("interface", iface),
				zap.String("kept", kept),
				zap.String("ignored", impl),
			)
			continue
		}

		shape, err := pkg.probe(impl, mb.Constructor)
		if err != nil {
			failed[iface] = true
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: %w", i, err))
			continue
		}
		for j, param := range shape.Params {
			if !pkg.isHandleString(param) {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s parameter %d (%s): constructor argument must be a shared handle to a registered dependency type",
					di.ErrInvalidDependency, impl, j, param))
			}
		}

		name := accessorName(iface)
		if other, taken := accessors[name]; taken {
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: accessor %s for %s collides with %s", i, name, iface, other))
			continue
		}
		accessors[name] = iface

		index[iface] = len(p.Bindings)
		p.Bindings = append(p.Bindings, planBinding{Interface: iface, Impl: impl, Shape: shape, Accessor: name})
		log.Debug("planned", zap.String("interface", iface), zap.Stringer("shape", shape))
	}

	for _, b := range p.Bindings {
		for _, dep := range b.Shape.Params {
			if _, ok := index[dep]; !ok && !failed[dep] && pkg.isHandleString(dep) {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s (required by %s)", di.ErrUnbound, dep, b.Interface))
			}
		}
	}

	for _, cycle := range findCycles(p.Bindings, index) {
		errs = multierr.Append(errs, fmt.Errorf("%w %s", di.ErrCycle, strings.Join(cycle, " -> ")))
	}

	if errs != nil {
		return nil, errs
	}
	return p, nil
}

// accessorName turns "*Clock" into "Clock".
func accessorName(t string) string {
	name := strings.TrimPrefix(t, "*")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// findCycles returns every dependency cycle, each closed with its first type.
func findCycles(bindings []planBinding, index map[string]int) [][]string {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(bindings))
	var (
		stack  []string
		cycles [][]string
		walk   func(t string)
	)
	walk = func(t string) {
		switch state[t] {
		case visited:
			return
		case visiting:
			for i, s := range stack {
				if s == t {
					path := append([]string(nil), stack[i:]...)
					cycles = append(cycles, append(path, t))
					return
				}
			}
			return
		}

		i, ok := index[t]
		if !ok {
			return
		}
		state[t] = visiting
		stack = append(stack, t)
		for _, dep := range bindings[i].Shape.Params {
			walk(dep)
		}
		stack = stack[:len(stack)-1]
		state[t] = visited
	}

	for _, b := range bindings {
		if state[b.Interface] == unvisited {
			walk(b.Interface)
		}
	}
	return cycles
}
