// Package importer computes the text edits that add, merge, and remove
// import statements.
package importer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
)

// ErrAlreadyImported is returned when the requested symbol is already
// bound by an import in the file.
var ErrAlreadyImported = fmt.Errorf("symbol is already imported")

// Formatter turns index entries into import text edits.
//
// Every edit is a single contiguous insertion or deletion, computed
// against the exact source the client holds, so the client can apply it
// without reformatting the file.
type Formatter struct {
	extractor *extractor.Extractor
	logger    *slog.Logger
}

// NewFormatter creates a Formatter. A nil logger uses slog.Default().
func NewFormatter(ext *extractor.Extractor, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Formatter{
		extractor: ext,
		logger:    logger,
	}
}

// AddImportEdit returns the edit that imports entry's symbol into filePath.
//
// An existing import from the same specifier is merged into (named lists
// stay alphabetically ordered when they already are); otherwise a new
// statement is inserted next to the specifier-wise closest import.
func (f *Formatter) AddImportEdit(filePath string, source []byte, entry index.Entry) (protocol.TextEdit, error) {
	symbol := entry.Export.Name
	if symbol == "" {
		return protocol.TextEdit{}, fmt.Errorf("entry has no symbol name")
	}

	stmts, err := f.extractor.Imports(filePath, source)
	if err != nil {
		return protocol.TextEdit{}, fmt.Errorf("failed to parse imports: %w", err)
	}

	for _, stmt := range stmts {
		if stmt.BindsName(symbol) {
			return protocol.TextEdit{}, ErrAlreadyImported
		}
	}

	specifier := chooseSpecifier(filePath, entry)
	wantType := entry.Export.Kind == extractor.KindType && !entry.Export.IsDefault

	if edit, ok := mergeEdit(stmts, source, symbol, specifier, entry.Export.IsDefault, wantType); ok {
		return edit, nil
	}

	return newStatementEdit(stmts, source, symbol, specifier, entry.Export.IsDefault, wantType), nil
}

// chooseSpecifier picks the specifier a new import should use: the
// module's global name when the requesting file lives outside the
// defining file's directory tree, the relative specifier otherwise.
func chooseSpecifier(filePath string, entry index.Entry) string {
	if entry.Identity.GlobalName != "" &&
		!underDirectory(filePath, filepath.Dir(entry.Identity.AbsolutePath)) {
		return entry.Identity.GlobalName
	}
	return entry.Identity.RelativeSpecifierFrom(filePath)
}

// underDirectory reports whether path sits at or below dir. A shared
// name prefix ("/ws/src-old" under "/ws/src") is not containment.
func underDirectory(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// mergeEdit tries to merge the symbol into an existing import statement
// for the same specifier.
func mergeEdit(
	stmts []extractor.ImportStatement,
	source []byte,
	symbol, specifier string,
	isDefault, wantType bool,
) (protocol.TextEdit, bool) {
	for _, stmt := range stmts {
		if stmt.Specifier != specifier || stmt.SideEffectOnly || stmt.Namespace != "" {
			continue
		}

		if isDefault {
			if stmt.Default != "" {
				continue
			}
			// import { a } from 'x'  ->  import D, { a } from 'x'
			if stmt.NamedListLoc != nil {
				return protocol.TextEdit{
					Range:   pointRange(locStart(*stmt.NamedListLoc)),
					NewText: symbol + ", ",
				}, true
			}
			continue
		}

		// A value symbol cannot join a type-only statement.
		if stmt.TypeOnly && !wantType {
			continue
		}
		if stmt.NamedListLoc == nil {
			// import D from 'x'  ->  import D, { sym } from 'x'
			if stmt.Default != "" && stmt.DefaultLoc != nil {
				return protocol.TextEdit{
					Range:   pointRange(locEnd(*stmt.DefaultLoc)),
					NewText: ", { " + bindingText(symbol, wantType, stmt.TypeOnly) + " }",
				}, true
			}
			continue
		}

		text := bindingText(symbol, wantType, stmt.TypeOnly)
		return namedListInsert(stmt, source, symbol, text), true
	}

	return protocol.TextEdit{}, false
}

// bindingText renders the binding, with a `type` prefix when a type-only
// symbol joins a value import statement.
func bindingText(symbol string, wantType, stmtTypeOnly bool) string {
	if wantType && !stmtTypeOnly {
		return "type " + symbol
	}
	return symbol
}

// namedListInsert inserts a binding into an existing `{ ... }` clause,
// keeping alphabetical order by imported name.
func namedListInsert(stmt extractor.ImportStatement, source []byte, symbol, text string) protocol.TextEdit {
	if len(stmt.Named) == 0 {
		return emptyListInsert(*stmt.NamedListLoc, source, text)
	}

	pos := sort.Search(len(stmt.Named), func(i int) bool {
		return stmt.Named[i].Name > symbol
	})

	if pos < len(stmt.Named) {
		// Before the first greater binding.
		return protocol.TextEdit{
			Range:   pointRange(locStart(stmt.Named[pos].Loc)),
			NewText: text + ", ",
		}
	}

	// After the last binding.
	last := stmt.Named[len(stmt.Named)-1]
	return protocol.TextEdit{
		Range:   pointRange(locEnd(last.Loc)),
		NewText: ", " + text,
	}
}

// emptyListInsert fills an empty `{}` or `{ }` clause.
func emptyListInsert(listLoc queries.Location, source []byte, text string) protocol.TextEdit {
	// Replace the whitespace between the braces when the clause sits on
	// one line; otherwise fall back to inserting right after the brace.
	if listLoc.StartLine == listLoc.EndLine &&
		int(listLoc.EndByte) <= len(source) &&
		listLoc.EndByte >= listLoc.StartByte+2 {
		inner := string(source[listLoc.StartByte+1 : listLoc.EndByte-1])
		if strings.TrimSpace(inner) == "" {
			return protocol.TextEdit{
				Range: protocol.Range{
					Start: protocol.Position{Line: listLoc.StartLine - 1, Character: listLoc.StartColumn},
					End:   protocol.Position{Line: listLoc.EndLine - 1, Character: listLoc.EndColumn - 2},
				},
				NewText: " " + text + " ",
			}
		}
	}

	return protocol.TextEdit{
		Range: pointRange(protocol.Position{
			Line:      listLoc.StartLine - 1,
			Character: listLoc.StartColumn,
		}),
		NewText: " " + text + " ",
	}
}

// newStatementEdit inserts a whole new import statement, grouped with the
// existing imports by specifier order.
func newStatementEdit(
	stmts []extractor.ImportStatement,
	source []byte,
	symbol, specifier string,
	isDefault, wantType bool,
) protocol.TextEdit {
	quote := quoteStyle(stmts, source)
	lbrace, rbrace := braceStyle(stmts, source)

	var clause string
	switch {
	case isDefault:
		clause = symbol
	case wantType:
		clause = "type " + lbrace + symbol + rbrace
	default:
		clause = lbrace + symbol + rbrace
	}
	text := "import " + clause + " from " + quote + specifier + quote + ";"

	// After the last import whose specifier sorts at or before the new
	// one, so related specifiers stay adjacent.
	var anchor *extractor.ImportStatement
	for i := range stmts {
		if stmts[i].Specifier <= specifier {
			anchor = &stmts[i]
		}
	}

	if anchor != nil {
		return protocol.TextEdit{
			Range:   pointRange(locEnd(anchor.Loc)),
			NewText: "\n" + text,
		}
	}

	if len(stmts) > 0 {
		return protocol.TextEdit{
			Range:   pointRange(locStart(stmts[0].Loc)),
			NewText: text + "\n",
		}
	}

	return protocol.TextEdit{
		Range:   pointRange(protocol.Position{Line: 0, Character: 0}),
		NewText: text + "\n",
	}
}

// quoteStyle mirrors the quote character of the first existing import.
// Double quotes when the file has none to mirror.
func quoteStyle(stmts []extractor.ImportStatement, source []byte) string {
	for _, stmt := range stmts {
		if int(stmt.Loc.EndByte) > len(source) {
			continue
		}
		text := string(source[stmt.Loc.StartByte:stmt.Loc.EndByte])
		double := strings.IndexByte(text, '"')
		single := strings.IndexByte(text, '\'')
		if double >= 0 && (single < 0 || double < single) {
			return `"`
		}
		if single >= 0 {
			return "'"
		}
	}
	return `"`
}

// braceStyle mirrors the named-list padding of the first existing import
// that has a named clause. Unpadded braces when the file has none.
func braceStyle(stmts []extractor.ImportStatement, source []byte) (string, string) {
	for _, stmt := range stmts {
		loc := stmt.NamedListLoc
		if loc == nil || int(loc.EndByte) > len(source) || loc.EndByte < loc.StartByte+2 {
			continue
		}
		inner := source[loc.StartByte+1 : loc.EndByte-1]
		if len(inner) == 0 {
			return "{", "}"
		}
		if inner[0] == ' ' {
			return "{ ", " }"
		}
		return "{", "}"
	}
	return "{", "}"
}

// RemoveBindingEdit returns the edit that removes one binding from an
// import statement, or the whole statement when it is the only binding.
// Returns false when the binding cannot be removed in isolation.
func (f *Formatter) RemoveBindingEdit(stmt extractor.ImportStatement, source []byte, localName string) (protocol.TextEdit, bool) {
	bindingCount := len(stmt.Named)
	if stmt.Default != "" {
		bindingCount++
	}
	if stmt.Namespace != "" {
		bindingCount++
	}

	if bindingCount <= 1 {
		return RemoveStatementEdit(stmt, source), true
	}

	// Default binding alongside a named list: drop "D, ".
	if stmt.Default == localName {
		if stmt.DefaultLoc == nil || stmt.NamedListLoc == nil {
			return protocol.TextEdit{}, false
		}
		return protocol.TextEdit{
			Range: protocol.Range{
				Start: locStart(*stmt.DefaultLoc),
				End:   locStart(*stmt.NamedListLoc),
			},
		}, true
	}

	for i, b := range stmt.Named {
		if b.LocalName() != localName {
			continue
		}

		if len(stmt.Named) == 1 {
			// Sole named binding next to a default: drop ", { b }".
			if stmt.Default != "" && stmt.DefaultLoc != nil && stmt.NamedListLoc != nil {
				return protocol.TextEdit{
					Range: protocol.Range{
						Start: locEnd(*stmt.DefaultLoc),
						End:   locEnd(*stmt.NamedListLoc),
					},
				}, true
			}
			return protocol.TextEdit{}, false
		}

		if i < len(stmt.Named)-1 {
			// Drop "b, " up to the next binding.
			return protocol.TextEdit{
				Range: protocol.Range{
					Start: locStart(b.Loc),
					End:   locStart(stmt.Named[i+1].Loc),
				},
			}, true
		}

		// Last binding: drop ", b" after the previous one.
		return protocol.TextEdit{
			Range: protocol.Range{
				Start: locEnd(stmt.Named[i-1].Loc),
				End:   locEnd(b.Loc),
			},
		}, true
	}

	return protocol.TextEdit{}, false
}

// RemoveStatementEdit deletes a whole import statement. When nothing else
// shares the statement's lines, the lines themselves go so no blank line
// is left behind; otherwise only the statement's own range is removed and
// the surrounding code stays untouched.
func RemoveStatementEdit(stmt extractor.ImportStatement, source []byte) protocol.TextEdit {
	loc := stmt.Loc

	aloneBefore := true
	for i := int(loc.StartByte) - 1; i >= 0 && source[i] != '\n'; i-- {
		if source[i] != ' ' && source[i] != '\t' {
			aloneBefore = false
			break
		}
	}

	trailing := 0
	codeAfter := false
	for i := int(loc.EndByte); i >= 0 && i < len(source) && source[i] != '\n'; i++ {
		if source[i] == ' ' || source[i] == '\t' || source[i] == '\r' {
			trailing++
			continue
		}
		codeAfter = true
		break
	}

	if aloneBefore && !codeAfter {
		return protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{Line: loc.StartLine - 1, Character: 0},
				End:   protocol.Position{Line: loc.EndLine, Character: 0},
			},
		}
	}

	end := locEnd(loc)
	end.Character += uint32(trailing)
	return protocol.TextEdit{
		Range: protocol.Range{Start: locStart(loc), End: end},
	}
}

func locStart(loc queries.Location) protocol.Position {
	return protocol.Position{Line: loc.StartLine - 1, Character: loc.StartColumn - 1}
}

func locEnd(loc queries.Location) protocol.Position {
	return protocol.Position{Line: loc.EndLine - 1, Character: loc.EndColumn - 1}
}

func pointRange(pos protocol.Position) protocol.Range {
	return protocol.Range{Start: pos, End: pos}
}
