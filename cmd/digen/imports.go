package main

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultDIImport = "github.com/sghaida/autodi/di"

type goImport struct {
	Name string // optional alias
	Path string
}

// resolveDIImport picks the di runtime import path, in order: the manifest,
// DIGEN_DI_IMPORT, an existing import in the package sources, a di package at
// the root of the enclosing module (a fork), and finally the default.
func resolveDIImport(m *Manifest, cfg config, pkg *sourcePackage) string {
	if p := strings.TrimSpace(m.Imports.DI); p != "" {
		return p
	}
	if p := strings.TrimSpace(cfg.DIImport); p != "" {
		return p
	}
	if gi, ok := findImportByAliasOrSuffix(pkg.imports, "di", "/autodi/di"); ok {
		return gi.Path
	}
	if modRoot, modPath, err := findModule(pkg.dir); err == nil && modPath != strings.TrimSuffix(defaultDIImport, "/di") {
		if fileExists(filepath.Join(modRoot, "di", "registry.go")) {
			return modPath + "/di"
		}
	}
	return defaultDIImport
}

// findImportByAliasOrSuffix prefers an alias match, then a path suffix match.
func findImportByAliasOrSuffix(imports []goImport, alias, suffix string) (goImport, bool) {
	if alias != "" {
		for _, gi := range imports {
			if gi.Name == alias {
				return gi, true
			}
		}
	}
	if suffix != "" {
		for _, gi := range imports {
			if strings.HasSuffix(gi.Path, suffix) {
				return gi, true
			}
		}
	}
	return goImport{}, false
}

func dedupeAndSortImports(imps []goImport) []goImport {
	seen := make(map[goImport]bool, len(imps))
	out := make([]goImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// -------------------------
// go.mod helpers
// -------------------------

var errNoModule = errors.New("go.mod not found")

type cmdError struct{ msg string }

func (e *cmdError) Error() string { return e.msg }

// findModule walks up from startDir to the nearest go.mod and returns its
// directory and module path.
func findModule(startDir string) (modRoot string, modPath string, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", err
	}
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			for _, ln := range strings.Split(string(b), "\n") {
				ln = strings.TrimSpace(ln)
				if strings.HasPrefix(ln, "module ") {
					mod := strings.Trim(strings.TrimSpace(strings.TrimPrefix(ln, "module ")), `"`)
					if mod == "" {
						return "", "", &cmdError{msg: "go.mod has empty module path at " + filepath.ToSlash(gomod)}
					}
					return dir, mod, nil
				}
			}
			return "", "", &cmdError{msg: "go.mod missing module directive at " + filepath.ToSlash(gomod)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", errNoModule
}

// moduleImportPathForDir returns the import path of dir inside the module rooted at modRoot.
func moduleImportPathForDir(modRoot, modPath, dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(modRoot, absDir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if rel == "." {
		return modPath, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", &cmdError{msg: "directory is outside module root: dir=" + filepath.ToSlash(dir) + " modRoot=" + filepath.ToSlash(modRoot)}
	}
	return modPath + "/" + rel, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
