package server

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/Venkat5694/nuclide/pkg/diagnostics"
	"github.com/Venkat5694/nuclide/pkg/importer"
	"github.com/Venkat5694/nuclide/pkg/index"
)

// Command identifiers advertised in the initialize response. Clients
// invoke them through workspace/executeCommand.
const (
	CommandAddImport            = "jsImports.addImport"
	CommandAddAllMissingImports = "jsImports.addAllMissingImports"
	CommandRemoveUnusedImport   = "jsImports.removeUnusedImport"
)

// codeAction offers quick fixes for the import diagnostics overlapping
// the requested range. The fixes are commands, not pre-computed edits:
// the edit is built against the live buffer when the client invokes it.
func (s *Server) codeAction(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CodeActionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	path := params.TextDocument.URI.Filename()
	docURI := string(params.TextDocument.URI)

	var matched []diagnostics.FileDiagnostic
	for _, fd := range s.publishedFor(path) {
		if rangesOverlap(fd.Diagnostic.Range, params.Range) {
			matched = append(matched, fd)
		}
	}
	if len(matched) == 0 {
		return reply(ctx, []protocol.CodeAction{}, nil)
	}

	var actions []protocol.CodeAction
	missingCount := 0

	for _, fd := range matched {
		switch fd.Kind {
		case diagnostics.KindMissingImport:
			missingCount++
			for _, entry := range s.candidatesFor(path, fd.Symbol) {
				spec := entry.Identity.RelativeSpecifierFrom(path)
				actions = append(actions, protocol.CodeAction{
					Title:       fmt.Sprintf("Add import from %q", spec),
					Kind:        protocol.QuickFix,
					Diagnostics: []protocol.Diagnostic{fd.Diagnostic},
					Command: &protocol.Command{
						Title:     fmt.Sprintf("Add import from %q", spec),
						Command:   CommandAddImport,
						Arguments: []interface{}{docURI, fd.Symbol, entry.Identity.AbsolutePath},
					},
				})
			}

		case diagnostics.KindUnusedImport:
			actions = append(actions, protocol.CodeAction{
				Title:       fmt.Sprintf("Remove unused import of %q", fd.Symbol),
				Kind:        protocol.QuickFix,
				Diagnostics: []protocol.Diagnostic{fd.Diagnostic},
				Command: &protocol.Command{
					Title:     fmt.Sprintf("Remove unused import of %q", fd.Symbol),
					Command:   CommandRemoveUnusedImport,
					Arguments: []interface{}{docURI, fd.Symbol},
				},
			})
		}
	}

	// Only worth offering when it covers more than a single fix.
	if missingCount > 1 || (missingCount == 1 && s.missingBeyond(path, params.Range)) {
		actions = append(actions, protocol.CodeAction{
			Title: "Add all missing imports",
			Kind:  protocol.QuickFix,
			Command: &protocol.Command{
				Title:     "Add all missing imports",
				Command:   CommandAddAllMissingImports,
				Arguments: []interface{}{docURI},
			},
		})
	}

	return reply(ctx, actions, nil)
}

// missingBeyond reports whether the file has missing-import diagnostics
// outside the given range.
func (s *Server) missingBeyond(path string, r protocol.Range) bool {
	for _, fd := range s.publishedFor(path) {
		if fd.Kind == diagnostics.KindMissingImport && !rangesOverlap(fd.Diagnostic.Range, r) {
			return true
		}
	}
	return false
}

// candidatesFor returns the index entries that could satisfy a missing
// symbol, closest module first.
func (s *Server) candidatesFor(path, symbol string) []index.Entry {
	var out []index.Entry
	for _, entry := range s.index.Query(symbol) {
		if entry.Identity.AbsolutePath == path {
			continue
		}
		out = append(out, entry)
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a := out[j-1].Identity.RelativeSpecifierFrom(path)
			b := out[j].Identity.RelativeSpecifierFrom(path)
			if len(b) < len(a) || (len(b) == len(a) && b < a) {
				out[j-1], out[j] = out[j], out[j-1]
			} else {
				break
			}
		}
	}
	return out
}

func (s *Server) executeCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.ExecuteCommandParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	var err error
	switch params.Command {
	case CommandAddImport:
		err = s.runAddImport(ctx, params.Arguments)
	case CommandAddAllMissingImports:
		err = s.runAddAllMissingImports(ctx, params.Arguments)
	case CommandRemoveUnusedImport:
		err = s.runRemoveUnusedImport(ctx, params.Arguments)
	default:
		err = fmt.Errorf("unknown command: %q", params.Command)
	}

	if err != nil {
		// The command failed to produce an edit; the document is
		// untouched, so log rather than surface a protocol error.
		s.logger.Warn("command failed",
			"command", params.Command,
			"error", err)
	}

	return reply(ctx, nil, nil)
}

// runAddImport handles jsImports.addImport(uri, symbol, modulePath).
func (s *Server) runAddImport(ctx context.Context, args []interface{}) error {
	docURI, err := argString(args, 0)
	if err != nil {
		return err
	}
	symbol, err := argString(args, 1)
	if err != nil {
		return err
	}
	modulePath, err := argString(args, 2)
	if err != nil {
		return err
	}

	path := uri.URI(docURI).Filename()
	lock := s.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	content, err := s.documents.Content(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var found *index.Entry
	for _, entry := range s.index.Query(symbol) {
		if entry.Identity.AbsolutePath == modulePath {
			e := entry
			found = &e
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%q is no longer exported by %s", symbol, modulePath)
	}

	edit, err := s.formatter.AddImportEdit(path, content, *found)
	if err != nil {
		if err == importer.ErrAlreadyImported {
			return nil
		}
		return err
	}

	return s.applyEdit(ctx, path, []protocol.TextEdit{edit})
}

// runAddAllMissingImports handles jsImports.addAllMissingImports(uri).
// The file is re-analyzed so the fix set matches the buffer as it is now,
// not as it was when the diagnostics were published.
func (s *Server) runAddAllMissingImports(ctx context.Context, args []interface{}) error {
	docURI, err := argString(args, 0)
	if err != nil {
		return err
	}

	path := uri.URI(docURI).Filename()
	lock := s.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	content, err := s.documents.Content(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var edits []protocol.TextEdit
	seen := make(map[string]bool)
	for _, fd := range s.engine.Analyze(path, content) {
		if fd.Kind != diagnostics.KindMissingImport || seen[fd.Symbol] {
			continue
		}
		seen[fd.Symbol] = true

		candidates := s.candidatesFor(path, fd.Symbol)
		if len(candidates) == 0 {
			continue
		}

		edit, err := s.formatter.AddImportEdit(path, content, candidates[0])
		if err != nil {
			if err != importer.ErrAlreadyImported {
				s.logger.Warn("skipping missing import",
					"symbol", fd.Symbol,
					"error", err)
			}
			continue
		}
		edits = append(edits, edit)
	}

	if len(edits) == 0 {
		return nil
	}
	return s.applyEdit(ctx, path, edits)
}

// runRemoveUnusedImport handles jsImports.removeUnusedImport(uri, localName).
func (s *Server) runRemoveUnusedImport(ctx context.Context, args []interface{}) error {
	docURI, err := argString(args, 0)
	if err != nil {
		return err
	}
	localName, err := argString(args, 1)
	if err != nil {
		return err
	}

	path := uri.URI(docURI).Filename()
	lock := s.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	content, err := s.documents.Content(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Re-analyze rather than trust the published statement locations;
	// the buffer may have moved since publication.
	var target *diagnostics.FileDiagnostic
	for _, fd := range s.engine.Analyze(path, content) {
		if fd.Kind == diagnostics.KindUnusedImport && fd.Symbol == localName {
			f := fd
			target = &f
			break
		}
	}
	if target == nil || target.Statement == nil {
		return fmt.Errorf("%q is not an unused import", localName)
	}

	edit, ok := s.formatter.RemoveBindingEdit(*target.Statement, content, localName)
	if !ok {
		return fmt.Errorf("cannot remove binding %q in isolation", localName)
	}

	return s.applyEdit(ctx, path, []protocol.TextEdit{edit})
}

// applyEdit sends the edits to the client via workspace/applyEdit.
func (s *Server) applyEdit(ctx context.Context, path string, edits []protocol.TextEdit) error {
	params := protocol.ApplyWorkspaceEditParams{
		Edit: protocol.WorkspaceEdit{
			Changes: map[uri.URI][]protocol.TextEdit{
				uri.File(path): edits,
			},
		},
	}

	var result protocol.ApplyWorkspaceEditResponse
	if _, err := s.conn.Call(ctx, protocol.MethodWorkspaceApplyEdit, params, &result); err != nil {
		return fmt.Errorf("workspace/applyEdit failed: %w", err)
	}
	if !result.Applied {
		return fmt.Errorf("client rejected edit: %s", result.FailureReason)
	}
	return nil
}

func argString(args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing command argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("command argument %d is not a string", i)
	}
	return s, nil
}

func rangesOverlap(a, b protocol.Range) bool {
	return !posBefore(a.End, b.Start) && !posBefore(b.End, a.Start)
}

func posBefore(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}
