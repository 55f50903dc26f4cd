package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestLoad_FullConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
sourceRoots:
  - src
useGlobalModuleNames: true
environments:
  - node
  - jest
completion:
  allow:
    - "src/**"
diagnostics:
  allow:
    - "src/**/*.ts"
scan:
  include:
    - "src/**/*.ts"
  exclude:
    - "src/generated/**"
`)

	ws := Load(root, nil)

	assert.Equal(t, root, ws.Root)
	require.Len(t, ws.SourceRoots, 1)
	assert.Equal(t, filepath.Join(root, "src"), ws.SourceRoots[0])
	assert.True(t, ws.UseGlobalModuleNames)
	assert.Equal(t, []string{"node", "jest"}, ws.Environments)
	assert.Equal(t, []string{"src/**/*.ts"}, ws.Scan.Include)
}

// No config file means the server comes up with both features off.
func TestLoad_MissingFile(t *testing.T) {
	root := t.TempDir()

	ws := Load(root, nil)

	assert.Equal(t, root, ws.Root)
	assert.False(t, ws.CompletionEnabled(filepath.Join(root, "src/app.ts")))
	assert.False(t, ws.DiagnosticsEnabled(filepath.Join(root, "src/app.ts")))
}

func TestLoad_BrokenYAMLFallsBack(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "completion: [not: a: map")

	ws := Load(root, nil)
	assert.False(t, ws.CompletionEnabled(filepath.Join(root, "src/app.ts")))
}

func TestLoad_UnknownEnvironmentFallsBack(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
environments:
  - deno
completion:
  allow:
    - "**"
`)

	ws := Load(root, nil)
	assert.Empty(t, ws.Environments)
	assert.False(t, ws.CompletionEnabled(filepath.Join(root, "src/app.ts")))
}

func TestLoad_InvalidPatternFallsBack(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
completion:
  allow:
    - "src/[**"
`)

	ws := Load(root, nil)
	assert.False(t, ws.CompletionEnabled(filepath.Join(root, "src/app.ts")))
}

func TestFeatureGating(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
completion:
  allow:
    - "src/**"
diagnostics:
  allow:
    - "src/**/*.ts"
`)

	ws := Load(root, nil)

	assert.True(t, ws.CompletionEnabled(filepath.Join(root, "src/app.ts")))
	assert.True(t, ws.CompletionEnabled(filepath.Join(root, "src/deep/app.js")))
	assert.False(t, ws.CompletionEnabled(filepath.Join(root, "scripts/build.ts")))

	assert.True(t, ws.DiagnosticsEnabled(filepath.Join(root, "src/app.ts")))
	assert.False(t, ws.DiagnosticsEnabled(filepath.Join(root, "src/app.js")))
}

func TestGlobals(t *testing.T) {
	ws := &Workspace{Root: "/ws", Environments: []string{"node"}}

	globals := ws.Globals()
	assert.True(t, globals["Promise"], "baseline always applies")
	assert.True(t, globals["process"], "node environment requested")
	assert.False(t, globals["window"], "browser environment not requested")
}

func TestGlobals_Baseline(t *testing.T) {
	ws := &Workspace{Root: "/ws"}

	globals := ws.Globals()
	assert.True(t, globals["JSON"])
	assert.True(t, globals["Partial"])
	assert.False(t, globals["describe"])
}
