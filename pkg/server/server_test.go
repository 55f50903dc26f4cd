package server

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/Venkat5694/nuclide/pkg/completion"
	"github.com/Venkat5694/nuclide/pkg/config"
	"github.com/Venkat5694/nuclide/pkg/diagnostics"
	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/importer"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/indexer"
	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
	"github.com/Venkat5694/nuclide/pkg/resolver"
	"github.com/Venkat5694/nuclide/pkg/util"
)

// testClient is the editor side of an in-memory LSP session. It answers
// workspace/applyEdit with Applied and records what it was asked to apply.
type testClient struct {
	conn    jsonrpc2.Conn
	applied chan protocol.ApplyWorkspaceEditParams
}

func startTestSession(t *testing.T, root string) *testClient {
	t.Helper()

	logger := util.NewLogger(util.DefaultLoggerConfig())
	pm := parser.NewParserManager(logger)
	t.Cleanup(func() { pm.Close() })

	qm := queries.NewQueryManager(pm, logger)
	t.Cleanup(func() { qm.Close() })

	ws := &config.Workspace{
		Root:        root,
		Completion:  config.FeatureConfig{Allow: []string{"**"}},
		Diagnostics: config.FeatureConfig{Allow: []string{"**"}},
	}

	ext := extractor.NewExtractor(pm, qm, logger)
	res := resolver.NewResolver(nil, false, logger)
	idx := index.NewWorkspaceIndex(logger)
	ix := indexer.NewIndexer(ext, res, idx, logger)
	fmtr := importer.NewFormatter(ext, logger)

	docs, err := NewDocumentStore(logger)
	require.NoError(t, err)

	srv := NewServer(Options{
		Workspace:   ws,
		Indexer:     ix,
		Scanner:     indexer.NewWorkspaceScanner(ix, logger),
		Completion:  completion.NewProvider(idx, ws, fmtr, logger),
		Diagnostics: diagnostics.NewEngine(pm, ext, idx, ws, logger),
		Formatter:   fmtr,
		Index:       idx,
		Documents:   docs,
		Logger:      logger,
	})

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Run(ctx, serverSide) }()

	client := &testClient{
		conn:    jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide)),
		applied: make(chan protocol.ApplyWorkspaceEditParams, 4),
	}
	client.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodWorkspaceApplyEdit:
			var params protocol.ApplyWorkspaceEditParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			client.applied <- params
			return reply(ctx, protocol.ApplyWorkspaceEditResponse{Applied: true}, nil)
		case protocol.MethodTextDocumentPublishDiagnostics:
			return reply(ctx, nil, nil)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	})
	t.Cleanup(func() { client.conn.Close() })

	return client
}

func (c *testClient) openDocument(t *testing.T, ctx context.Context, u uri.URI, text string) {
	t.Helper()
	require.NoError(t, c.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        u,
			LanguageID: protocol.LanguageIdentifier("typescript"),
			Version:    1,
			Text:       text,
		},
	}))
}

func TestServer_InitializeAdvertisesCapabilities(t *testing.T) {
	client := startTestSession(t, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result protocol.InitializeResult
	_, err := client.conn.Call(ctx, protocol.MethodInitialize, protocol.InitializeParams{}, &result)
	require.NoError(t, err)

	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.True(t, result.Capabilities.CompletionProvider.ResolveProvider)
	require.NotNil(t, result.Capabilities.ExecuteCommandProvider)
	assert.Contains(t, result.Capabilities.ExecuteCommandProvider.Commands, CommandAddImport)
	assert.Contains(t, result.Capabilities.ExecuteCommandProvider.Commands, CommandRemoveUnusedImport)

	require.NoError(t, client.conn.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}))
}

// The add-import command calls back into the client for workspace/applyEdit
// and must still answer the executeCommand request that triggered it.
func TestServer_AddImportCommandRoundTrip(t *testing.T) {
	root := t.TempDir()
	client := startTestSession(t, root)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var initResult protocol.InitializeResult
	_, err := client.conn.Call(ctx, protocol.MethodInitialize, protocol.InitializeParams{}, &initResult)
	require.NoError(t, err)

	datesPath := filepath.Join(root, "dates.ts")
	appPath := filepath.Join(root, "app.ts")
	appURI := uri.File(appPath)

	client.openDocument(t, ctx, uri.File(datesPath),
		"export function formatDate(d: Date): string { return ''; }\n")
	client.openDocument(t, ctx, appURI, "formatDate(new Date());\n")

	// Requests are delivered in arrival order, so both documents are
	// indexed before the command runs.
	var cmdResult interface{}
	_, err = client.conn.Call(ctx, protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command:   CommandAddImport,
		Arguments: []interface{}{string(appURI), "formatDate", datesPath},
	}, &cmdResult)
	require.NoError(t, err, "executeCommand must answer even while awaiting applyEdit")

	select {
	case params := <-client.applied:
		edits := params.Edit.Changes[appURI]
		require.Len(t, edits, 1)
		assert.Equal(t, "import {formatDate} from \"./dates\";\n", edits[0].NewText)
	default:
		t.Fatal("no workspace/applyEdit reached the client")
	}
}
