// js-imports-server is a language server for JavaScript and TypeScript
// import management: auto-import completions, missing and unused import
// diagnostics, and quick-fix commands, backed by a workspace-wide export
// index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

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
	"github.com/Venkat5694/nuclide/pkg/server"
	"github.com/Venkat5694/nuclide/pkg/util"
)

const version = "0.1.0-dev"

var (
	workspaceRoot string
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "js-imports-server",
	Short: "Language server for JavaScript/TypeScript import management",
	Long: `js-imports-server indexes every exported symbol in a workspace and
serves import tooling over the Language Server Protocol on stdio:

  - auto-import completions that insert the import alongside the symbol
  - diagnostics for identifiers a workspace module could provide
  - diagnostics for import bindings nothing in the file uses
  - quick-fix code actions and commands that add or remove imports

Configuration is read from .jsimports.yaml at the workspace root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve LSP over stdio",
	Long: `Serve the Language Server Protocol over stdin/stdout.

The workspace is scanned in the background after the client sends the
initialized notification; a file watcher keeps the index current after
the scan completes.`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("js-imports-server %s\n", version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&workspaceRoot, "workspace", "", "workspace root directory (default: current directory)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	root := workspaceRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid workspace root: %w", err)
	}

	// Logs go to stderr; stdout carries the protocol stream.
	logger := util.NewLogger(util.LoggerConfig{
		Level:  util.LogLevel(logLevel),
		Format: util.LogFormat(logFormat),
		Output: os.Stderr,
	})

	workspace := config.Load(root, logger)

	parserManager := parser.NewParserManager(logger)
	defer parserManager.Close()

	queryManager := queries.NewQueryManager(parserManager, logger)
	defer queryManager.Close()

	ext := extractor.NewExtractor(parserManager, queryManager, logger)
	res := resolver.NewResolver(workspace.SourceRoots, workspace.UseGlobalModuleNames, logger)

	idx := index.NewWorkspaceIndex(logger)
	ix := indexer.NewIndexer(ext, res, idx, logger)
	scanner := indexer.NewWorkspaceScanner(ix, logger)

	watcher, err := indexer.NewFileWatcher(ix, indexer.DefaultWatchOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Stop()

	formatter := importer.NewFormatter(ext, logger)
	provider := completion.NewProvider(idx, workspace, formatter, logger)
	engine := diagnostics.NewEngine(parserManager, ext, idx, workspace, logger)

	documents, err := server.NewDocumentStore(logger)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}

	srv := server.NewServer(server.Options{
		Workspace:   workspace,
		Indexer:     ix,
		Scanner:     scanner,
		Watcher:     watcher,
		Completion:  provider,
		Diagnostics: engine,
		Formatter:   formatter,
		Index:       idx,
		Documents:   documents,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting language server",
		"version", version,
		"workspace", root)

	if err := srv.RunStdio(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
