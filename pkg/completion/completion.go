// Package completion provides auto-import completion items backed by the
// workspace index.
package completion

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/Venkat5694/nuclide/pkg/config"
	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/importer"
	"github.com/Venkat5694/nuclide/pkg/index"
)

// maxItems caps one completion response; prefixes of one or two letters
// can match most of the index.
const maxItems = 50

// TriggerCharacters returns the characters that prompt the client to ask
// for completion: every letter, plus the characters that commonly precede
// an identifier.
func TriggerCharacters() []string {
	chars := []string{" ", "}", "="}
	for c := 'a'; c <= 'z'; c++ {
		chars = append(chars, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		chars = append(chars, string(c))
	}
	return chars
}

// itemData rides along in CompletionItem.Data so Resolve can find the
// entry again without recomputing the candidate list. The resolve request
// carries only the item, so the requesting file travels with it too.
type itemData struct {
	Symbol string `json:"symbol"`
	Path   string `json:"path"`
	From   string `json:"from"`
}

// Provider computes completion items and resolves their import edits.
//
// Items are returned without text edits; the additionalTextEdits that
// insert the import are computed lazily in Resolve, once the client
// focuses a single item.
type Provider struct {
	index     *index.WorkspaceIndex
	workspace *config.Workspace
	formatter *importer.Formatter
	logger    *slog.Logger
}

// NewProvider creates a completion provider. A nil logger uses
// slog.Default().
func NewProvider(
	idx *index.WorkspaceIndex,
	ws *config.Workspace,
	fmtr *importer.Formatter,
	logger *slog.Logger,
) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		index:     idx,
		workspace: ws,
		formatter: fmtr,
		logger:    logger,
	}
}

// Complete returns auto-import candidates for the identifier prefix at
// pos. Files outside the completion allow-list get nil without touching
// the index.
func (p *Provider) Complete(filePath string, source []byte, pos protocol.Position) *protocol.CompletionList {
	if !p.workspace.CompletionEnabled(filePath) {
		return nil
	}

	prefix := identifierPrefix(source, pos)
	if prefix == "" {
		return nil
	}

	type candidate struct {
		entry index.Entry
		rank  int
		spec  string
	}

	var candidates []candidate
	add := func(entries []index.Entry, rank int) {
		for _, entry := range entries {
			if entry.Identity.AbsolutePath == filePath {
				continue
			}
			candidates = append(candidates, candidate{
				entry: entry,
				rank:  rank,
				spec:  entry.Identity.RelativeSpecifierFrom(filePath),
			})
		}
	}

	// Exact-case matches rank ahead of matches that only line up under
	// case folding (urlparser finding URLParser).
	add(p.index.QueryPrefix(prefix), 0)
	for _, entry := range p.index.QueryPrefixFold(prefix) {
		if strings.HasPrefix(entry.Export.Name, prefix) {
			continue
		}
		add([]index.Entry{entry}, 1)
	}

	if len(candidates) == 0 {
		return &protocol.CompletionList{IsIncomplete: false}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.entry.Export.Name != b.entry.Export.Name {
			return a.entry.Export.Name < b.entry.Export.Name
		}
		// Closer modules first.
		if len(a.spec) != len(b.spec) {
			return len(a.spec) < len(b.spec)
		}
		return a.spec < b.spec
	})

	if len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}

	items := make([]protocol.CompletionItem, 0, len(candidates))
	for i, c := range candidates {
		items = append(items, protocol.CompletionItem{
			Label:      c.entry.Export.Name,
			Kind:       itemKind(c.entry.Export),
			Detail:     fmt.Sprintf("import from %q", c.spec),
			FilterText: c.entry.Export.Name,
			SortText:   fmt.Sprintf("%04d", i),
			Data: itemData{
				Symbol: c.entry.Export.Name,
				Path:   c.entry.Identity.AbsolutePath,
				From:   filePath,
			},
		})
	}

	return &protocol.CompletionList{
		IsIncomplete: len(candidates) == maxItems,
		Items:        items,
	}
}

// Resolve attaches the import edit to a completion item the client has
// focused. readFile supplies the current content of the requesting
// document (open buffer or disk).
func (p *Provider) Resolve(item *protocol.CompletionItem, readFile func(string) ([]byte, error)) error {
	var data itemData
	raw, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("failed to read completion data: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode completion data: %w", err)
	}
	if data.Symbol == "" || data.Path == "" || data.From == "" {
		return fmt.Errorf("completion item has no import data")
	}

	var found *index.Entry
	for _, entry := range p.index.Query(data.Symbol) {
		if entry.Identity.AbsolutePath == data.Path {
			e := entry
			found = &e
			break
		}
	}
	if found == nil {
		// The module changed since the item was offered.
		return nil
	}

	source, err := readFile(data.From)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", data.From, err)
	}

	edit, err := p.formatter.AddImportEdit(data.From, source, *found)
	if err != nil {
		if err == importer.ErrAlreadyImported {
			return nil
		}
		return err
	}

	item.AdditionalTextEdits = []protocol.TextEdit{edit}
	return nil
}

// identifierPrefix scans backwards from pos over identifier characters.
func identifierPrefix(source []byte, pos protocol.Position) string {
	line := lineAt(source, pos.Line)
	if line == nil {
		return ""
	}

	end := int(pos.Character)
	if end > len(line) {
		end = len(line)
	}

	start := end
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}

	return string(line[start:end])
}

// lineAt returns the bytes of the given 0-based line, without the newline.
func lineAt(source []byte, line uint32) []byte {
	start := 0
	for l := uint32(0); l < line; l++ {
		next := -1
		for i := start; i < len(source); i++ {
			if source[i] == '\n' {
				next = i + 1
				break
			}
		}
		if next < 0 {
			return nil
		}
		start = next
	}

	end := len(source)
	for i := start; i < len(source); i++ {
		if source[i] == '\n' {
			end = i
			break
		}
	}
	return source[start:end]
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func itemKind(exp extractor.ExportDescriptor) protocol.CompletionItemKind {
	switch {
	case exp.Kind == extractor.KindType:
		return protocol.CompletionItemKindInterface
	case exp.IsDefault:
		return protocol.CompletionItemKindModule
	default:
		return protocol.CompletionItemKindVariable
	}
}
