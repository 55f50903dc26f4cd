// Package diagnostics reports missing and unused imports for open files.
package diagnostics

import (
	"fmt"
	"log/slog"
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"
	"go.lsp.dev/protocol"

	"github.com/Venkat5694/nuclide/pkg/config"
	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
)

// Source tags every diagnostic this engine publishes.
const Source = "js-imports"

// Kind classifies a diagnostic for code-action matching.
type Kind string

const (
	// KindMissingImport marks an identifier the index can resolve but no
	// import binds.
	KindMissingImport Kind = "missing-import"
	// KindUnusedImport marks an import binding with no uses.
	KindUnusedImport Kind = "unused-import"
)

// FileDiagnostic is a published diagnostic plus the context the code
// action provider needs to build its fix.
type FileDiagnostic struct {
	Diagnostic protocol.Diagnostic
	Kind       Kind

	// Symbol is the missing identifier, or the unused local binding name.
	Symbol string

	// Statement is the statement holding the unused binding.
	// Nil for missing-import diagnostics.
	Statement *extractor.ImportStatement
}

// Engine analyzes files for import problems.
//
// Fail-soft: files that cannot be parsed produce no diagnostics. A syntax
// error mid-edit is the editor's business, not ours.
type Engine struct {
	parserManager *parser.ParserManager
	extractor     *extractor.Extractor
	index         *index.WorkspaceIndex
	workspace     *config.Workspace
	logger        *slog.Logger
}

// NewEngine creates a diagnostics engine. A nil logger uses slog.Default().
func NewEngine(
	pm *parser.ParserManager,
	ext *extractor.Extractor,
	idx *index.WorkspaceIndex,
	ws *config.Workspace,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		parserManager: pm,
		extractor:     ext,
		index:         idx,
		workspace:     ws,
		logger:        logger,
	}
}

// Analyze returns the import diagnostics for a file. The file is parsed
// once; imports and identifier usage both come from that tree.
func (e *Engine) Analyze(filePath string, source []byte) []FileDiagnostic {
	if !e.workspace.DiagnosticsEnabled(filePath) {
		return nil
	}

	lang := parser.DetectLanguage(filePath)
	if lang == parser.LanguageUnknown {
		return nil
	}

	tree, err := e.parserManager.Parse(source, lang, parser.IsTSXFile(filePath))
	if err != nil {
		e.logger.Debug("skipping diagnostics for unparseable file",
			"file", filePath,
			"error", err)
		return nil
	}
	defer tree.Close()

	stmts, err := e.extractor.ImportsFromTree(tree, filePath, source)
	if err != nil {
		e.logger.Debug("skipping diagnostics, import extraction failed",
			"file", filePath,
			"error", err)
		return nil
	}

	usage := collectUsage(tree.RootNode(), source)

	importedLocals := make(map[string]bool)
	for _, stmt := range stmts {
		if stmt.Default != "" {
			importedLocals[stmt.Default] = true
		}
		if stmt.Namespace != "" {
			importedLocals[stmt.Namespace] = true
		}
		for _, b := range stmt.Named {
			importedLocals[b.LocalName()] = true
		}
	}

	var out []FileDiagnostic
	out = append(out, e.missingImports(filePath, usage, importedLocals)...)
	out = append(out, unusedImports(stmts, usage)...)

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Diagnostic.Range.Start, out[j].Diagnostic.Range.Start
		if ri.Line != rj.Line {
			return ri.Line < rj.Line
		}
		return ri.Character < rj.Character
	})

	return out
}

// missingImports flags used identifiers that nothing declares, no import
// binds, no ambient global covers, and the index can resolve.
func (e *Engine) missingImports(
	filePath string,
	usage *usageInfo,
	importedLocals map[string]bool,
) []FileDiagnostic {
	globals := e.workspace.Globals()

	var out []FileDiagnostic
	for name, loc := range usage.used {
		if usage.declared[name] || importedLocals[name] || globals[name] {
			continue
		}

		resolvable := false
		for _, entry := range e.index.Query(name) {
			if entry.Identity.AbsolutePath != filePath {
				resolvable = true
				break
			}
		}
		if !resolvable {
			continue
		}

		out = append(out, FileDiagnostic{
			Diagnostic: protocol.Diagnostic{
				Range:    rangeFromLoc(loc),
				Severity: protocol.DiagnosticSeverityInformation,
				Source:   Source,
				Message:  fmt.Sprintf("%q is undefined; a workspace module exports it", name),
			},
			Kind:   KindMissingImport,
			Symbol: name,
		})
	}

	return out
}

// unusedImports flags import bindings with no uses in the file.
// Side-effect imports are never flagged; the import is the point.
func unusedImports(stmts []extractor.ImportStatement, usage *usageInfo) []FileDiagnostic {
	var out []FileDiagnostic

	flag := func(stmt extractor.ImportStatement, local string, loc queries.Location) {
		if _, used := usage.used[local]; used {
			return
		}
		s := stmt
		out = append(out, FileDiagnostic{
			Diagnostic: protocol.Diagnostic{
				Range:    rangeFromLoc(loc),
				Severity: protocol.DiagnosticSeverityWarning,
				Source:   Source,
				Message:  fmt.Sprintf("%q is imported but never used", local),
			},
			Kind:      KindUnusedImport,
			Symbol:    local,
			Statement: &s,
		})
	}

	for _, stmt := range stmts {
		if stmt.SideEffectOnly {
			continue
		}

		if stmt.Default != "" {
			loc := stmt.Loc
			if stmt.DefaultLoc != nil {
				loc = *stmt.DefaultLoc
			}
			flag(stmt, stmt.Default, loc)
		}
		if stmt.Namespace != "" {
			flag(stmt, stmt.Namespace, stmt.Loc)
		}
		for _, b := range stmt.Named {
			flag(stmt, b.LocalName(), b.Loc)
		}
	}

	return out
}

// usageInfo holds the identifier facts of one file.
type usageInfo struct {
	// declared holds every identifier some declaration in the file
	// introduces. Not scope-aware: any local declaration of a name
	// suppresses diagnostics for that name everywhere in the file.
	declared map[string]bool

	// used maps an identifier to its first reference.
	used map[string]queries.Location
}

// collectUsage walks the tree once, classifying identifiers as
// declarations or references. Import statements are skipped entirely;
// their bindings are handled through the statement model.
func collectUsage(root *ts.Node, source []byte) *usageInfo {
	info := &usageInfo{
		declared: make(map[string]bool),
		used:     make(map[string]queries.Location),
	}
	walkUsage(root, source, info)
	return info
}

func walkUsage(node *ts.Node, source []byte, info *usageInfo) {
	kind := node.Kind()
	if kind == "import_statement" {
		return
	}

	switch kind {
	case "identifier", "type_identifier":
		name := node.Utf8Text(source)
		if isDeclarationName(node) {
			info.declared[name] = true
		} else {
			recordUse(info, name, node)
		}
		return

	case "shorthand_property_identifier":
		// { foo } in an object literal reads foo.
		recordUse(info, node.Utf8Text(source), node)
		return

	case "shorthand_property_identifier_pattern":
		// { foo } in a destructuring pattern declares foo.
		info.declared[node.Utf8Text(source)] = true
		return
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil {
			walkUsage(child, source, info)
		}
	}
}

func recordUse(info *usageInfo, name string, node *ts.Node) {
	if _, seen := info.used[name]; !seen {
		info.used[name] = queries.NodeLocation(node)
	}
}

// declarationParents are node kinds whose name field introduces a binding.
var declarationParents = map[string]bool{
	"variable_declarator":            true,
	"function_declaration":           true,
	"generator_function_declaration": true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"interface_declaration":          true,
	"type_alias_declaration":         true,
	"enum_declaration":               true,
	"module":                         true,
	"function_expression":            true,
	"generator_function":             true,
	"class":                          true,
}

// patternAncestors are node kinds whose identifier descendants are
// parameter or destructuring bindings.
var patternAncestors = map[string]bool{
	"formal_parameters":  true,
	"required_parameter": true,
	"optional_parameter": true,
	"object_pattern":     true,
	"array_pattern":      true,
	"rest_pattern":       true,
}

// isDeclarationName reports whether an identifier node introduces a
// binding rather than referencing one.
func isDeclarationName(node *ts.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}

	if declarationParents[parent.Kind()] {
		if nameField := parent.ChildByFieldName("name"); nameField != nil && sameNode(nameField, node) {
			return true
		}
	}

	// catch (err) { ... }
	if parent.Kind() == "catch_clause" {
		return true
	}

	// Parameters and destructuring targets. Default values live inside
	// these subtrees too; treating them as declarations only suppresses
	// a diagnostic, never fabricates one.
	for p := parent; p != nil; p = p.Parent() {
		k := p.Kind()
		if patternAncestors[k] {
			return true
		}
		if k == "statement_block" || k == "program" || k == "class_body" {
			break
		}
	}

	return false
}

func sameNode(a, b *ts.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func rangeFromLoc(loc queries.Location) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: loc.StartLine - 1, Character: loc.StartColumn - 1},
		End:   protocol.Position{Line: loc.EndLine - 1, Character: loc.EndColumn - 1},
	}
}
