package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"text/template"
)

const generatedHeader = "// Code generated by digen; DO NOT EDIT."

// render executes the container template and gofmts the result.
func render(p *plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := containerTpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Container, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("gofmt %s: %w", p.Container, err)
	}
	return src, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var containerTpl = template.Must(template.New("container").Parse(generatedHeader + `
// Manifest: {{.ManifestPath}}
// Manifest SHA256: {{.ManifestHash}}

package {{.Package}}

import (
	di "{{.DIImport}}"
)
{{range .Bindings}}{{with .Assertion}}
{{.}}{{end}}{{end}}

// {{.Container}} holds one shared instance of every type bound in {{.ManifestPath}}.
type {{.Container}} struct {
	reg *di.Registry
}

// New{{.Container}} binds every type from {{.ManifestPath}} and validates the graph.
func New{{.Container}}(opts ...di.Option) (*{{.Container}}, error) {
{{- if .StrictPolicy}}
	opts = append([]di.Option{di.WithConflictPolicy(di.ConflictError)}, opts...)
{{- end}}
	reg := di.New(opts...)
{{range .Bindings}}
	// {{.Shape}}
	if err := {{.Call}}; err != nil {
		return nil, err
	}
{{end}}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &{{.Container}}{reg: reg}, nil
}

// Registry returns the underlying registry.
func (c *{{.Container}}) Registry() *di.Registry { return c.reg }
{{range .Bindings}}
// {{.Accessor}} returns the shared {{.Interface}}, building it on first use.
func (c *{{$.Container}}) {{.Accessor}}() ({{.Interface}}, error) {
	return di.Get[{{.Interface}}](c.reg)
}

// Must{{.Accessor}} is like {{.Accessor}} but panics on error.
func (c *{{$.Container}}) Must{{.Accessor}}() {{.Interface}} {
	return di.MustGet[{{.Interface}}](c.reg)
}
{{end}}`))
