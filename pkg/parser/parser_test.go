package parser

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkat5694/nuclide/pkg/util"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"/ws/app.ts", LanguageTypeScript},
		{"/ws/app.mts", LanguageTypeScript},
		{"/ws/app.cts", LanguageTypeScript},
		{"/ws/App.tsx", LanguageTypeScript},
		{"/ws/app.js", LanguageJavaScript},
		{"/ws/App.jsx", LanguageJavaScript},
		{"/ws/app.mjs", LanguageJavaScript},
		{"/ws/app.cjs", LanguageJavaScript},
		{"/ws/README.md", LanguageUnknown},
		{"/ws/noext", LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.path))
		})
	}
}

func TestIsTSXFile(t *testing.T) {
	assert.True(t, IsTSXFile("/ws/App.tsx"))
	assert.False(t, IsTSXFile("/ws/app.ts"))
	assert.False(t, IsTSXFile("/ws/App.jsx"))
}

func TestStripResolvableExtension(t *testing.T) {
	assert.Equal(t, "./util", StripResolvableExtension("./util.ts"))
	assert.Equal(t, "./App", StripResolvableExtension("./App.tsx"))
	assert.Equal(t, "./legacy", StripResolvableExtension("./legacy.cjs"))
	assert.Equal(t, "./data.json", StripResolvableExtension("./data.json"))
}

func TestParse_TypeScript(t *testing.T) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	tree, err := pm.Parse([]byte("export const x: number = 1;"), LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Kind())
	assert.False(t, root.HasError())
}

func TestParse_TSXNeedsTSXGrammar(t *testing.T) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	source := []byte("export const el = <div>hi</div>;")

	tree, err := pm.Parse(source, LanguageTypeScript, true)
	require.NoError(t, err)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())
}

// Syntax errors still yield a tree; extraction works on partial trees.
func TestParse_BrokenSourceStillReturnsTree(t *testing.T) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	tree, err := pm.Parse([]byte("const = = {{{"), LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()
	assert.True(t, tree.RootNode().HasError())
}

func TestParse_UnknownLanguage(t *testing.T) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	_, err := pm.Parse([]byte("x"), LanguageUnknown, false)
	assert.Error(t, err)
}

func TestParse_Concurrent(t *testing.T) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			source := []byte(fmt.Sprintf("export const v%d = %d;", n, n))
			tree, err := pm.Parse(source, LanguageTypeScript, false)
			assert.NoError(t, err)
			if tree != nil {
				tree.Close()
			}
		}(i)
	}
	wg.Wait()

	stats := pm.Stats()
	assert.Equal(t, 32, stats.ParsesCalled)
	assert.Greater(t, stats.ParsersCreated, 0)
}

func BenchmarkParse(b *testing.B) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	source := []byte("export function run(input: string): number { return input.length; }")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree, err := pm.Parse(source, LanguageTypeScript, false)
		if err != nil {
			b.Fatal(err)
		}
		tree.Close()
	}
}

func BenchmarkParseParallel(b *testing.B) {
	pm := NewParserManager(util.NewLogger(util.DefaultLoggerConfig()))
	defer pm.Close()

	source := []byte("export function run(input: string): number { return input.length; }")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tree, err := pm.Parse(source, LanguageTypeScript, false)
			if err != nil {
				b.Fatal(err)
			}
			tree.Close()
		}
	})
}
