package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// generator turns a manifest into a container source file.
type generator struct {
	cfg config
	log *zap.Logger
}

// generate writes the container for manifestPath and returns the output path.
// out overrides the manifest's out field when set.
func (g *generator) generate(ctx context.Context, manifestPath, out string) (string, error) {
	m, raw, err := loadManifest(manifestPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(manifestPath)
	pkg, err := scanPackage(ctx, dir)
	if err != nil {
		return "", err
	}
	if pkg.name != m.Package {
		return "", fmt.Errorf("manifest package %q does not match package %q in %s", m.Package, pkg.name, filepath.ToSlash(dir))
	}

	p, err := buildPlan(m, pkg, g.log)
	if err != nil {
		return "", err
	}
	p.DIImport = resolveDIImport(m, g.cfg, pkg)
	p.ManifestPath = filepath.Base(manifestPath)
	p.ManifestHash = sha256Hex(raw)

	src, err := render(p)
	if err != nil {
		return "", err
	}

	if out == "" {
		out = m.Out
		if !filepath.IsAbs(out) {
			out = filepath.Join(dir, out)
		}
	}
	out = filepath.Clean(out)
	if err := writeFileAtomic(out, src, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.ToSlash(out), err)
	}

	g.log.Info("generated",
		zap.String("container", p.Container),
		zap.String("package", g.importPath(dir, pkg.name)),
		zap.Int("bindings", len(p.Bindings)),
		zap.String("out", filepath.ToSlash(out)),
	)
	return out, nil
}

// importPath names the package for logs, falling back to its bare name
// outside a module.
func (g *generator) importPath(dir, name string) string {
	modRoot, modPath, err := findModule(dir)
	if err != nil {
		return name
	}
	path, err := moduleImportPathForDir(modRoot, modPath, dir)
	if err != nil {
		return name
	}
	return path
}
