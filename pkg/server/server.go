// Package server hosts the import engine behind a Language Server
// Protocol connection over stdio.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/Venkat5694/nuclide/pkg/completion"
	"github.com/Venkat5694/nuclide/pkg/config"
	"github.com/Venkat5694/nuclide/pkg/diagnostics"
	"github.com/Venkat5694/nuclide/pkg/importer"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/indexer"
	"github.com/Venkat5694/nuclide/pkg/parser"
)

// serverName is reported to the client in the initialize response.
const serverName = "js-imports-server"

// Options wires the server's collaborators together.
type Options struct {
	Workspace   *config.Workspace
	Indexer     *indexer.Indexer
	Scanner     *indexer.WorkspaceScanner
	Watcher     *indexer.FileWatcher
	Completion  *completion.Provider
	Diagnostics *diagnostics.Engine
	Formatter   *importer.Formatter
	Index       *index.WorkspaceIndex
	Documents   *DocumentStore
	Logger      *slog.Logger
}

// Server is the LSP front end. It owns the protocol connection, the open
// document set, and the cache of published diagnostics that code actions
// are matched against.
type Server struct {
	workspace  *config.Workspace
	indexer    *indexer.Indexer
	scanner    *indexer.WorkspaceScanner
	watcher    *indexer.FileWatcher
	completion *completion.Provider
	engine     *diagnostics.Engine
	formatter  *importer.Formatter
	index      *index.WorkspaceIndex
	documents  *DocumentStore
	logger     *slog.Logger

	conn jsonrpc2.Conn

	// published holds the diagnostics last sent for each file, so
	// textDocument/codeAction can recover the context behind the
	// diagnostics the client echoes back.
	diagMu    sync.Mutex
	published map[string][]diagnostics.FileDiagnostic

	// fileLocks serializes edit-producing commands per file. Two
	// concurrent commands computing edits against the same buffer would
	// race each other's offsets.
	lockMu    sync.Mutex
	fileLocks map[string]*sync.Mutex

	stateMu      sync.Mutex
	initialized  bool
	shuttingDown bool
}

// NewServer creates a server from its collaborators.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		workspace:  opts.Workspace,
		indexer:    opts.Indexer,
		scanner:    opts.Scanner,
		watcher:    opts.Watcher,
		completion: opts.Completion,
		engine:     opts.Diagnostics,
		formatter:  opts.Formatter,
		index:      opts.Index,
		documents:  opts.Documents,
		logger:     logger,
		published:  make(map[string][]diagnostics.FileDiagnostic),
		fileLocks:  make(map[string]*sync.Mutex),
	}
}

// stdrwc adapts stdin/stdout into the single ReadWriteCloser the jsonrpc2
// stream wants.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// RunStdio serves LSP over stdin/stdout until the client disconnects or
// ctx is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, stdrwc{})
}

// Run serves LSP over the given transport.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn

	// Commands round-trip through workspace/applyEdit, so handlers must
	// not run on the connection's read loop: a synchronous handler could
	// never see the client's response to its own outgoing call.
	conn.Go(ctx, jsonrpc2.AsyncHandler(s.handle))
	s.logger.Info("language server listening")

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
		return conn.Err()
	}
}

// handle dispatches one incoming request or notification.
func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodInitialize:
		return s.initialize(ctx, reply, req)
	case protocol.MethodInitialized:
		return s.handleInitialized(ctx, reply)
	case protocol.MethodShutdown:
		return s.shutdown(ctx, reply)
	case protocol.MethodExit:
		return s.exit(ctx, reply)

	case protocol.MethodTextDocumentDidOpen:
		return s.didOpen(ctx, reply, req)
	case protocol.MethodTextDocumentDidChange:
		return s.didChange(ctx, reply, req)
	case protocol.MethodTextDocumentDidClose:
		return s.didClose(ctx, reply, req)

	case protocol.MethodTextDocumentCompletion:
		return s.complete(ctx, reply, req)
	case protocol.MethodCompletionItemResolve:
		return s.resolveCompletion(ctx, reply, req)

	case protocol.MethodTextDocumentCodeAction:
		return s.codeAction(ctx, reply, req)
	case protocol.MethodWorkspaceExecuteCommand:
		return s.executeCommand(ctx, reply, req)

	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func (s *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	// The workspace root is fixed at startup. A client rooted elsewhere
	// gets served anyway, but its files will not match the index.
	if params.RootURI != "" {
		if root := params.RootURI.Filename(); root != s.workspace.Root {
			s.logger.Warn("client root differs from configured workspace root",
				"client_root", root,
				"workspace_root", s.workspace.Root)
		}
	}

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider:   true,
				TriggerCharacters: completion.TriggerCharacters(),
			},
			CodeActionProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{
					CommandAddImport,
					CommandAddAllMissingImports,
					CommandRemoveUnusedImport,
				},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name: serverName,
		},
	}

	return reply(ctx, result, nil)
}

// handleInitialized kicks off the workspace scan and the file watcher in
// the background. The client gets responses to editor requests
// immediately; the index fills in as the scan progresses.
func (s *Server) handleInitialized(ctx context.Context, reply jsonrpc2.Replier) error {
	s.stateMu.Lock()
	already := s.initialized
	s.initialized = true
	s.stateMu.Unlock()

	if !already {
		go s.startIndexing(ctx)
	}

	return reply(ctx, nil, nil)
}

func (s *Server) startIndexing(ctx context.Context) {
	options := indexer.DefaultScanOptions()
	if len(s.workspace.Scan.Include) > 0 {
		options.Include = s.workspace.Scan.Include
	}
	if len(s.workspace.Scan.Exclude) > 0 {
		options.Exclude = s.workspace.Scan.Exclude
	}

	stats, err := s.scanner.ScanWorkspace(s.workspace.Root, options, nil)
	if err != nil {
		s.logger.Error("workspace scan failed", "error", err)
	} else {
		s.logger.Info("workspace scan complete",
			"files_indexed", stats.FilesIndexed,
			"exports", stats.ExportsExtracted,
			"duration_ms", stats.TotalTimeMs)
	}

	if s.watcher != nil {
		if err := s.watcher.Start(s.workspace.Root); err != nil {
			s.logger.Error("failed to start file watcher", "error", err)
		}
	}

	// Missing-import diagnostics computed before the scan were working
	// from a partial index; recompute for everything open.
	for _, path := range s.documents.OpenPaths() {
		s.publishDiagnostics(ctx, path)
	}
}

func (s *Server) shutdown(ctx context.Context, reply jsonrpc2.Replier) error {
	s.stateMu.Lock()
	s.shuttingDown = true
	s.stateMu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop file watcher", "error", err)
		}
	}

	return reply(ctx, nil, nil)
}

func (s *Server) exit(ctx context.Context, reply jsonrpc2.Replier) error {
	if err := reply(ctx, nil, nil); err != nil {
		return err
	}
	return s.conn.Close()
}

func (s *Server) didOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	path := params.TextDocument.URI.Filename()
	content := []byte(params.TextDocument.Text)

	s.documents.Open(path, params.TextDocument.Version, content)
	s.indexer.MarkOpen(path)

	if parser.IsSupportedFile(path) {
		s.indexer.IndexContent(path, content)
	}
	s.publishDiagnostics(ctx, path)

	return reply(ctx, nil, nil)
}

func (s *Server) didChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}
	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}

	// Full sync: the last change event carries the whole document.
	path := params.TextDocument.URI.Filename()
	content := []byte(params.ContentChanges[len(params.ContentChanges)-1].Text)

	s.documents.Update(path, params.TextDocument.Version, content)

	if parser.IsSupportedFile(path) {
		s.indexer.IndexContent(path, content)
	}
	s.publishDiagnostics(ctx, path)

	return reply(ctx, nil, nil)
}

func (s *Server) didClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	path := params.TextDocument.URI.Filename()
	s.documents.Close(path)
	s.indexer.MarkClosed(path)

	// Closed documents stop getting diagnostics; clear what we sent.
	s.diagMu.Lock()
	delete(s.published, path)
	s.diagMu.Unlock()
	s.notifyDiagnostics(ctx, path, []protocol.Diagnostic{})

	return reply(ctx, nil, nil)
}

func (s *Server) complete(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	path := params.TextDocument.URI.Filename()
	content, err := s.documents.Content(path)
	if err != nil {
		s.logger.Debug("completion requested for unreadable document",
			"file", path,
			"error", err)
		return reply(ctx, nil, nil)
	}

	list := s.completion.Complete(path, content, params.Position)
	return reply(ctx, list, nil)
}

func (s *Server) resolveCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var item protocol.CompletionItem
	if err := json.Unmarshal(req.Params(), &item); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
	}

	if err := s.completion.Resolve(&item, s.documents.Content); err != nil {
		s.logger.Warn("failed to resolve completion item",
			"label", item.Label,
			"error", err)
	}

	// Resolve failures still return the bare item; the client keeps its
	// label and inserts without the import edit.
	return reply(ctx, item, nil)
}

// publishDiagnostics analyzes a document and pushes the result to the
// client, remembering it for code-action matching.
func (s *Server) publishDiagnostics(ctx context.Context, path string) {
	if !parser.IsSupportedFile(path) {
		return
	}

	content, err := s.documents.Content(path)
	if err != nil {
		s.logger.Debug("skipping diagnostics for unreadable document",
			"file", path,
			"error", err)
		return
	}

	fileDiags := s.engine.Analyze(path, content)

	s.diagMu.Lock()
	s.published[path] = fileDiags
	s.diagMu.Unlock()

	diags := make([]protocol.Diagnostic, 0, len(fileDiags))
	for _, fd := range fileDiags {
		diags = append(diags, fd.Diagnostic)
	}
	s.notifyDiagnostics(ctx, path, diags)
}

func (s *Server) notifyDiagnostics(ctx context.Context, path string, diags []protocol.Diagnostic) {
	if s.conn == nil {
		return
	}

	params := protocol.PublishDiagnosticsParams{
		URI:         uri.File(path),
		Diagnostics: diags,
	}
	if err := s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params); err != nil {
		s.logger.Warn("failed to publish diagnostics",
			"file", path,
			"error", err)
	}
}

// publishedFor returns the diagnostics last published for a file.
func (s *Server) publishedFor(path string) []diagnostics.FileDiagnostic {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	return s.published[path]
}

// fileLock returns the mutex serializing commands against one file.
func (s *Server) fileLock(path string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.fileLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.fileLocks[path] = lock
	}
	return lock
}
