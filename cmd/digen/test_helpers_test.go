package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

//
// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

// greeterSource is a small package exercising every construction shape.
const greeterSource = `package greeter

import "fmt"

type Clock struct{ ticks int }

type Greeter interface{ Greet(name string) string }

type EnglishGreeter struct {
	Clock *Clock
}

func (g *EnglishGreeter) Greet(name string) string { return fmt.Sprintf("hello %s", name) }

type FrenchGreeter struct{ Clock *Clock }

func (g *FrenchGreeter) Greet(name string) string { return "bonjour " + name }

type Service struct {
	clock   *Clock
	greeter Greeter
}

func NewService(c *Clock, g Greeter) *Service { return &Service{clock: c, greeter: g} }

func NewServiceWithAudit(c *Clock, g Greeter, audit *Clock) (*Service, error) {
	return NewService(c, g), nil
}
`

const greeterManifest = `package: greeter
container: App
bindings:
  - type: "*Clock"
  - interface: Greeter
    impl: "*EnglishGreeter"
  - interface: Greeter
    impl: "*FrenchGreeter"
  - type: "*Service"
`

//
// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// writePackage writes files into a fresh temp dir and returns the dir.
func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

// greeterPackage writes the greeter fixture plus its manifest and returns the manifest path.
func greeterPackage(t *testing.T) string {
	t.Helper()
	dir := writePackage(t, map[string]string{
		"greeter.go":    greeterSource,
		"bindings.yaml": greeterManifest,
	})
	return filepath.Join(dir, "bindings.yaml")
}

func mustReadString(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
