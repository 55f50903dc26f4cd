// Package parser wraps tree-sitter with language detection and a pooled
// parser manager so many goroutines can parse JavaScript and TypeScript
// sources concurrently.
package parser

import (
	"path/filepath"
	"strings"
)

// Language identifies a supported source language.
type Language int

const (
	// LanguageTypeScript covers .ts, .mts, .cts and (via the TSX grammar) .tsx.
	LanguageTypeScript Language = iota
	// LanguageJavaScript covers .js, .jsx, .mjs and .cjs.
	LanguageJavaScript
	// LanguageUnknown marks an unsupported file.
	LanguageUnknown
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// resolvableExtensions are the extensions module specifiers may omit, in
// resolution order.
var resolvableExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

// DetectLanguage detects the source language from a file path.
// Returns LanguageUnknown for unrecognized extensions.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ts", ".mts", ".cts", ".tsx":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsTSXFile reports whether the path needs the TSX grammar variant.
func IsTSXFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".tsx"
}

// IsSupportedFile reports whether the path has an indexable extension.
func IsSupportedFile(filePath string) bool {
	return DetectLanguage(filePath) != LanguageUnknown
}

// StripResolvableExtension removes a trailing module extension, if any.
// "src/foo.ts" becomes "src/foo"; paths without a resolvable extension are
// returned unchanged.
func StripResolvableExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range resolvableExtensions {
		if ext == candidate {
			return path[:len(path)-len(filepath.Ext(path))]
		}
	}
	return path
}
