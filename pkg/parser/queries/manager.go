// Package queries provides tree-sitter query compilation, caching, and
// execution for module import/export extraction.
package queries

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/parser/queries/modules"
)

// QueryType identifies which query to execute.
type QueryType int

const (
	// QueryTypeExports extracts exported symbols (the index's input).
	QueryTypeExports QueryType = iota
	// QueryTypeImports locates import statements for the statement model.
	QueryTypeImports
)

// String returns the string representation of a QueryType.
func (qt QueryType) String() string {
	switch qt {
	case QueryTypeExports:
		return "exports"
	case QueryTypeImports:
		return "imports"
	default:
		return "unknown"
	}
}

// queryKey uniquely identifies a compiled query.
//
// The TSX grammar assigns different node IDs than plain TypeScript, so
// queries are compiled per grammar variant, not just per language.
type queryKey struct {
	lang  parser.Language
	qtype QueryType
	isTSX bool
}

// QueryManager compiles tree-sitter queries lazily and caches the result.
//
// Thread-safe; compiled queries are freed via Close().
type QueryManager struct {
	parserManager *parser.ParserManager
	cache         map[queryKey]*ts.Query
	mutex         sync.RWMutex
	logger        *slog.Logger
}

// NewQueryManager creates a query manager. The parser manager supplies
// grammar pointers for compilation. A nil logger uses slog.Default().
func NewQueryManager(pm *parser.ParserManager, logger *slog.Logger) *QueryManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &QueryManager{
		parserManager: pm,
		cache:         make(map[queryKey]*ts.Query),
		logger:        logger,
	}
}

// GetQuery returns the compiled query for a language, query type, and
// grammar variant, compiling it on first access.
func (qm *QueryManager) GetQuery(lang parser.Language, qtype QueryType, isTSX bool) (*ts.Query, error) {
	key := queryKey{lang: lang, qtype: qtype, isTSX: isTSX}

	qm.mutex.RLock()
	query, exists := qm.cache[key]
	qm.mutex.RUnlock()

	if exists {
		return query, nil
	}

	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	// Another goroutine may have compiled it while we waited.
	if query, exists = qm.cache[key]; exists {
		return query, nil
	}

	queryString, err := queryString(lang, qtype)
	if err != nil {
		return nil, err
	}

	langPtr, err := qm.parserManager.GetLanguagePointer(lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to get language pointer for %s: %w", lang, err)
	}

	query, qerr := ts.NewQuery(ts.NewLanguage(langPtr), queryString)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile %s query for %s: %s", qtype, lang, qerr.Message)
	}

	qm.cache[key] = query

	qm.logger.Debug("compiled query",
		"language", lang.String(),
		"type", qtype.String(),
		"isTSX", isTSX)

	return query, nil
}

// queryString returns the query source for a language and type.
func queryString(lang parser.Language, qtype QueryType) (string, error) {
	switch qtype {
	case QueryTypeExports:
		switch lang {
		case parser.LanguageJavaScript:
			return modules.JavaScriptExports, nil
		case parser.LanguageTypeScript:
			return modules.TypeScriptExports, nil
		}
	case QueryTypeImports:
		switch lang {
		case parser.LanguageJavaScript:
			return modules.JavaScriptImports, nil
		case parser.LanguageTypeScript:
			return modules.TypeScriptImports, nil
		}
	}
	return "", fmt.Errorf("no %s query for language %s", qtype, lang)
}

// ExecuteQuery runs a compiled query on a parse tree and returns structured
// matches. Captures within a match stay grouped, which the extractor relies
// on to pair re-exported names with their source specifier.
func (qm *QueryManager) ExecuteQuery(tree *ts.Tree, query *ts.Query, source []byte) ([]QueryMatch, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}
	if query == nil {
		return nil, fmt.Errorf("query is nil")
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	iter := cursor.Matches(query, tree.RootNode(), source)
	captureNames := query.CaptureNames()

	var matches []QueryMatch
	for {
		match := iter.Next()
		if match == nil {
			break
		}

		var captures []QueryCapture
		for _, capture := range match.Captures {
			var captureName string
			if int(capture.Index) < len(captureNames) {
				captureName = captureNames[capture.Index]
			}

			// Underscore captures only anchor predicates like #eq?.
			if strings.HasPrefix(captureName, "_") {
				continue
			}

			category, field := parseCaptureName(captureName)

			captures = append(captures, QueryCapture{
				Name:     captureName,
				Category: category,
				Field:    field,
				Node:     &capture.Node,
				Text:     capture.Node.Utf8Text(source),
				Location: NodeLocation(&capture.Node),
			})
		}

		matches = append(matches, QueryMatch{
			PatternIndex: uint32(match.PatternIndex),
			Captures:     captures,
		})
	}

	return matches, nil
}

// Close frees all compiled queries. The manager cannot be used afterwards.
func (qm *QueryManager) Close() error {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	qm.logger.Info("closing QueryManager",
		"queries_compiled", len(qm.cache))

	for key, query := range qm.cache {
		if query != nil {
			query.Close()
		}
		delete(qm.cache, key)
	}

	return nil
}

// QueryMatch represents a single pattern match from query execution.
type QueryMatch struct {
	// PatternIndex identifies which query pattern matched.
	PatternIndex uint32

	// Captures contains all captured nodes for this match.
	Captures []QueryCapture
}

// QueryCapture represents a single captured node from a query match.
type QueryCapture struct {
	// Name is the full capture name (e.g. "export.reexport.source").
	Name string

	// Category is the part before the first dot, Field the remainder.
	Category string
	Field    string

	// Node is the captured AST node.
	Node *ts.Node

	// Text is the source text of the captured node.
	Text string

	// Location is the source location of the captured node.
	Location Location
}

// Location represents a span in source code.
//
// Lines and columns are 1-based; byte offsets are 0-based. Conversion to
// protocol positions happens at the server boundary.
type Location struct {
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	StartByte   uint32
	EndByte     uint32
}

// parseCaptureName splits "export.reexport.source" into
// ("export", "reexport.source"). Names without a dot get an empty field.
func parseCaptureName(name string) (category, field string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return name, ""
}

// NodeLocation extracts a Location from a tree-sitter node, converting the
// 0-based rows and columns to 1-based.
func NodeLocation(node *ts.Node) Location {
	start := node.StartPosition()
	end := node.EndPosition()

	return Location{
		StartLine:   uint32(start.Row + 1),
		StartColumn: uint32(start.Column + 1),
		EndLine:     uint32(end.Row + 1),
		EndColumn:   uint32(end.Column + 1),
		StartByte:   uint32(node.StartByte()),
		EndByte:     uint32(node.EndByte()),
	}
}
