package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/autodi/di"
)

const (
	defaultContainer = "Container"
	defaultOut       = "container.gen.go"
)

// Manifest is the input schema consumed by digen generate.
type Manifest struct {
	Package string `yaml:"package" json:"package"`

	// Container is the name of the generated container type.
	Container string `yaml:"container" json:"container"`

	// Out is the generated file, relative to the manifest directory.
	Out string `yaml:"out" json:"out"`

	// OnConflict is "first-wins" (default) or "error".
	OnConflict string `yaml:"onConflict" json:"onConflict"`

	Imports  Imports   `yaml:"imports" json:"imports"`
	Bindings []Binding `yaml:"bindings" json:"bindings"`
}

// Imports overrides import paths used by the generated code.
type Imports struct {
	DI string `yaml:"di" json:"di"`
}

// Binding is one manifest entry: either Type alone (bind a type to itself) or
// Interface with Impl.
type Binding struct {
	Type      string `yaml:"type" json:"type"`
	Interface string `yaml:"interface" json:"interface"`
	Impl      string `yaml:"impl" json:"impl"`

	// Constructor pins the constructor function instead of searching New... functions.
	Constructor string `yaml:"constructor" json:"constructor"`
}

// key returns the bound type and its implementation, as written in the manifest.
func (b Binding) key() (iface, impl string) {
	if b.Type != "" {
		return b.Type, b.Type
	}
	return b.Interface, b.Impl
}

// loadManifest reads and validates a manifest. The raw bytes are returned
// for hashing into the generated header.
func loadManifest(path string) (*Manifest, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &m)
	case ".json":
		err = json.Unmarshal(raw, &m)
	default:
		return nil, nil, fmt.Errorf("manifest %s: unsupported extension %q (want .yaml, .yml or .json)", path, ext)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, raw, nil
}

func (m *Manifest) applyDefaults() {
	m.Package = strings.TrimSpace(m.Package)
	if strings.TrimSpace(m.Container) == "" {
		m.Container = defaultContainer
	}
	if strings.TrimSpace(m.Out) == "" {
		m.Out = defaultOut
	}
	if m.OnConflict == "" {
		m.OnConflict = di.ConflictFirstWins.String()
	}
	for i := range m.Bindings {
		b := &m.Bindings[i]
		b.Type = strings.TrimSpace(b.Type)
		b.Interface = strings.TrimSpace(b.Interface)
		b.Impl = strings.TrimSpace(b.Impl)
		b.Constructor = strings.TrimSpace(b.Constructor)
	}
}

// validate reports every schema problem at once.
func (m *Manifest) validate() error {
	var errs error

	if m.Package == "" {
		errs = multierr.Append(errs, errors.New("missing package"))
	} else if !token.IsIdentifier(m.Package) {
		errs = multierr.Append(errs, fmt.Errorf("package %q is not an identifier", m.Package))
	}
	if !token.IsIdentifier(m.Container) || !token.IsExported(m.Container) {
		errs = multierr.Append(errs, fmt.Errorf("container %q must be an exported identifier", m.Container))
	}
	if _, err := m.conflictPolicy(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if len(m.Bindings) == 0 {
		errs = multierr.Append(errs, errors.New("bindings must be non-empty"))
	}

	for i, b := range m.Bindings {
		switch {
		case b.Type != "" && (b.Interface != "" || b.Impl != ""):
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: use either type or interface/impl", i))
		case b.Type == "" && (b.Interface == "" || b.Impl == ""):
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: interface and impl are both required", i))
		}
		if b.Constructor != "" && !token.IsIdentifier(b.Constructor) {
			errs = multierr.Append(errs, fmt.Errorf("bindings[%d]: constructor %q is not an identifier", i, b.Constructor))
		}
	}
	return errs
}

func (m *Manifest) conflictPolicy() (di.ConflictPolicy, error) {
	for _, p := range []di.ConflictPolicy{di.ConflictFirstWins, di.ConflictError} {
		if m.OnConflict == p.String() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("onConflict must be %q or %q, got %q", di.ConflictFirstWins, di.ConflictError, m.OnConflict)
}
