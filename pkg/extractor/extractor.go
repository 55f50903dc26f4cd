// Package extractor turns JavaScript and TypeScript source into export
// descriptors (the index's input) and import statement models (the
// formatter's and diagnostics engine's input).
package extractor

import (
	"fmt"
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
)

// Extractor extracts module-level facts from parse trees.
//
// Export extraction is fail-soft: files that cannot be parsed or queried
// yield an empty result and a log entry, never an error. A broken file in
// the workspace must not break indexing.
type Extractor struct {
	parserManager *parser.ParserManager
	queryManager  *queries.QueryManager
	logger        *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(pm *parser.ParserManager, qm *queries.QueryManager, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		parserManager: pm,
		queryManager:  qm,
		logger:        logger,
	}
}

// Extract returns the exported symbols of a source file.
//
// Unsupported extensions and unparseable files yield nil.
func (e *Extractor) Extract(filePath string, source []byte) []ExportDescriptor {
	lang := parser.DetectLanguage(filePath)
	if lang == parser.LanguageUnknown {
		return nil
	}

	tree, err := e.parserManager.Parse(source, lang, parser.IsTSXFile(filePath))
	if err != nil {
		e.logger.Warn("failed to parse file for export extraction",
			"file", filePath,
			"error", err)
		return nil
	}
	defer tree.Close()

	return e.ExportsFromTree(tree, filePath, source)
}

// ExportsFromTree extracts exports from an already-parsed tree. The tree
// remains owned by the caller.
func (e *Extractor) ExportsFromTree(tree *ts.Tree, filePath string, source []byte) []ExportDescriptor {
	lang := parser.DetectLanguage(filePath)
	isTSX := parser.IsTSXFile(filePath)

	query, err := e.queryManager.GetQuery(lang, queries.QueryTypeExports, isTSX)
	if err != nil {
		e.logger.Error("failed to get export query",
			"file", filePath,
			"error", err)
		return nil
	}

	matches, err := e.queryManager.ExecuteQuery(tree, query, source)
	if err != nil {
		e.logger.Warn("export query failed",
			"file", filePath,
			"error", err)
		return nil
	}

	var out []ExportDescriptor

	// A default export can satisfy several patterns for one statement
	// (wildcard value vs identifier value vs named declaration), so
	// candidates are ranked per statement and flushed at the end.
	type defaultCandidate struct {
		desc ExportDescriptor
		rank int
	}
	defaults := make(map[uint32]defaultCandidate)

	// Specifier patterns overlap the same way; dedup by node position.
	seenSpecs := make(map[uint32]bool)

	addDefault := func(node *ts.Node, name string, rank int, loc queries.Location) {
		stmt := enclosingExportStatement(node)
		if stmt == nil {
			return
		}
		key := uint32(stmt.StartByte())
		if existing, ok := defaults[key]; ok && existing.rank >= rank {
			return
		}
		defaults[key] = defaultCandidate{
			desc: ExportDescriptor{
				Name:      name,
				Kind:      KindValue,
				IsDefault: true,
				Loc:       loc,
			},
			rank: rank,
		}
	}

	for _, m := range matches {
		// Paired captures (re-export name + source) arrive in the same
		// match; pull the source out first.
		var origin string
		for _, c := range m.Captures {
			if c.Name == "export.reexport.source" || c.Name == "export.star.source" {
				origin = c.Text
			}
		}

		for _, c := range m.Captures {
			switch c.Name {
			case "export.function", "export.class", "export.variable", "export.enum":
				if statementHasToken(enclosingExportStatement(c.Node), "default") {
					// Handled by the default patterns below.
					continue
				}
				out = append(out, ExportDescriptor{
					Name: c.Text,
					Kind: KindValue,
					Loc:  c.Location,
				})

			case "export.interface", "export.typealias":
				out = append(out, ExportDescriptor{
					Name: c.Text,
					Kind: KindType,
					Loc:  c.Location,
				})

			case "export.default.name":
				addDefault(c.Node, c.Text, 3, c.Location)

			case "export.default.ident":
				addDefault(c.Node, c.Text, 2, c.Location)

			case "export.default.value":
				addDefault(c.Node, "default", 1, c.Location)

			case "export.spec", "export.reexport.spec":
				if seenSpecs[c.Location.StartByte] {
					continue
				}
				seenSpecs[c.Location.StartByte] = true

				specOrigin := ""
				if c.Name == "export.reexport.spec" {
					specOrigin = origin
				}
				if desc, ok := specifierExport(c.Node, source, specOrigin); ok {
					out = append(out, desc)
				}

			case "export.star.alias":
				out = append(out, ExportDescriptor{
					Name:       c.Text,
					Kind:       KindValue,
					IsReExport: true,
					Origin:     origin,
					Loc:        c.Location,
				})

			case "export.commonjs.default":
				out = append(out, ExportDescriptor{
					Name:      c.Text,
					Kind:      KindValue,
					IsDefault: true,
					Loc:       c.Location,
				})

			case "export.commonjs.name":
				out = append(out, ExportDescriptor{
					Name: c.Text,
					Kind: KindValue,
					Loc:  c.Location,
				})
			}
		}
	}

	for _, cand := range defaults {
		out = append(out, cand.desc)
	}

	return out
}

// Imports returns the import statement models of a source file.
func (e *Extractor) Imports(filePath string, source []byte) ([]ImportStatement, error) {
	lang := parser.DetectLanguage(filePath)
	if lang == parser.LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", filePath)
	}

	tree, err := e.parserManager.Parse(source, lang, parser.IsTSXFile(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	defer tree.Close()

	return e.ImportsFromTree(tree, filePath, source)
}

// ImportsFromTree extracts imports from an already-parsed tree so callers
// that also need the tree (diagnostics) parse each file once. The tree
// remains owned by the caller.
func (e *Extractor) ImportsFromTree(tree *ts.Tree, filePath string, source []byte) ([]ImportStatement, error) {
	lang := parser.DetectLanguage(filePath)
	isTSX := parser.IsTSXFile(filePath)

	query, err := e.queryManager.GetQuery(lang, queries.QueryTypeImports, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to get import query: %w", err)
	}

	matches, err := e.queryManager.ExecuteQuery(tree, query, source)
	if err != nil {
		return nil, fmt.Errorf("import query failed for %s: %w", filePath, err)
	}

	var out []ImportStatement
	for _, m := range matches {
		for _, c := range m.Captures {
			if c.Name != "import.statement" {
				continue
			}
			if stmt, ok := importStatement(c.Node, source); ok {
				out = append(out, stmt)
			}
		}
	}

	return out, nil
}

// importStatement builds the statement model from an import_statement node.
func importStatement(node *ts.Node, source []byte) (ImportStatement, bool) {
	srcNode := node.ChildByFieldName("source")
	if srcNode == nil {
		return ImportStatement{}, false
	}

	stmt := ImportStatement{
		Specifier: stringFragment(srcNode, source),
		TypeOnly:  statementHasToken(node, "type"),
		Loc:       queries.NodeLocation(node),
	}

	var clause *ts.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "import_clause" {
			clause = child
			break
		}
	}

	if clause == nil {
		stmt.SideEffectOnly = true
		return stmt, true
	}

	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "identifier":
			stmt.Default = child.Utf8Text(source)
			loc := queries.NodeLocation(child)
			stmt.DefaultLoc = &loc

		case "namespace_import":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				inner := child.NamedChild(j)
				if inner != nil && inner.Kind() == "identifier" {
					stmt.Namespace = inner.Utf8Text(source)
					break
				}
			}

		case "named_imports":
			loc := queries.NodeLocation(child)
			stmt.NamedListLoc = &loc

			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}

				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}

				binding := ImportBinding{
					Name:     nameNode.Utf8Text(source),
					TypeOnly: statementHasToken(spec, "type"),
					Loc:      queries.NodeLocation(spec),
				}
				if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
					binding.Alias = aliasNode.Utf8Text(source)
				}

				stmt.Named = append(stmt.Named, binding)
			}
		}
	}

	return stmt, true
}

// specifierExport builds a descriptor from an export_specifier node.
// origin is the re-export source specifier, empty for local export lists.
func specifierExport(spec *ts.Node, source []byte, origin string) (ExportDescriptor, bool) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return ExportDescriptor{}, false
	}

	local := nameNode.Utf8Text(source)
	exported := local
	if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
		exported = aliasNode.Utf8Text(source)
	}

	// `export { foo as default }` makes foo the default export; keep the
	// local name so completion can still offer it.
	isDefault := exported == "default"
	name := exported
	if isDefault && local != "default" {
		name = local
	}

	kind := KindValue
	if statementHasToken(spec, "type") || statementHasToken(enclosingExportStatement(spec), "type") {
		kind = KindType
	}

	return ExportDescriptor{
		Name:       name,
		Kind:       kind,
		IsDefault:  isDefault,
		IsReExport: origin != "",
		Origin:     origin,
		Loc:        queries.NodeLocation(spec),
	}, true
}

// enclosingExportStatement walks up to the nearest export_statement.
func enclosingExportStatement(node *ts.Node) *ts.Node {
	for n := node.Parent(); n != nil; n = n.Parent() {
		if n.Kind() == "export_statement" {
			return n
		}
	}
	return nil
}

// statementHasToken reports whether node has a direct anonymous child
// token of the given kind, e.g. the "type" keyword in a type-only import.
func statementHasToken(node *ts.Node, token string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

// stringFragment returns the unquoted contents of a string node.
func stringFragment(node *ts.Node, source []byte) string {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "string_fragment" {
			return child.Utf8Text(source)
		}
	}
	return ""
}
