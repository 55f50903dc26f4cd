// Package indexer keeps the workspace index current: an initial parallel
// scan, a file watcher for disk changes, and direct updates from editor
// document events.
package indexer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/resolver"
)

// Indexer coordinates extraction and index updates from all three sources
// (scan, watcher, editor) and arbitrates between them.
//
// Every update carries a sequence number allocated when its source content
// was observed. The index applies updates in sequence order per file, so
// an editor buffer indexed after a disk read always wins, no matter which
// goroutine reaches the index first.
type Indexer struct {
	extractor *extractor.Extractor
	resolver  *resolver.Resolver
	index     *index.WorkspaceIndex
	logger    *slog.Logger

	seq atomic.Uint64

	// open tracks editor-open documents. The watcher skips disk events
	// for open files; the editor buffer is the source of truth there.
	openMu sync.Mutex
	open   map[string]bool
}

// NewIndexer creates an Indexer. A nil logger uses slog.Default().
func NewIndexer(
	ext *extractor.Extractor,
	res *resolver.Resolver,
	idx *index.WorkspaceIndex,
	logger *slog.Logger,
) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		extractor: ext,
		resolver:  res,
		index:     idx,
		logger:    logger,
		open:      make(map[string]bool),
	}
}

// NextSeq allocates a sequence number. Callers must allocate it when they
// observe the content they are about to index, not when they get around to
// indexing it.
func (ix *Indexer) NextSeq() uint64 {
	return ix.seq.Add(1)
}

// ExtractEntries extracts the index entries a file contributes.
// Fail-soft: unparseable content yields an empty slice.
func (ix *Indexer) ExtractEntries(filePath string, content []byte) []index.Entry {
	exports := ix.extractor.Extract(filePath, content)
	if len(exports) == 0 {
		return nil
	}

	identity := ix.resolver.IdentityFor(filePath)
	entries := make([]index.Entry, 0, len(exports))
	for _, exp := range exports {
		entries = append(entries, index.Entry{
			Export:   exp,
			Identity: identity,
		})
	}
	return entries
}

// IndexContent extracts and indexes content for a file, allocating a fresh
// sequence number. Used for editor document events where the content is
// observed at call time.
func (ix *Indexer) IndexContent(filePath string, content []byte) bool {
	return ix.Apply(filePath, ix.ExtractEntries(filePath, content), ix.NextSeq())
}

// Apply upserts pre-extracted entries under a previously allocated
// sequence number. Returns false when the update was stale.
func (ix *Indexer) Apply(filePath string, entries []index.Entry, seq uint64) bool {
	applied := ix.index.UpsertFile(filePath, entries, seq)
	if applied {
		ix.logger.Debug("indexed file",
			"file", filePath,
			"exports", len(entries),
			"seq", seq)
	}
	return applied
}

// Remove drops a file's entries, e.g. after deletion on disk.
func (ix *Indexer) Remove(filePath string) bool {
	return ix.index.RemoveFile(filePath, ix.NextSeq())
}

// MarkOpen records that the editor holds the document.
func (ix *Indexer) MarkOpen(filePath string) {
	ix.openMu.Lock()
	ix.open[filePath] = true
	ix.openMu.Unlock()
}

// MarkClosed records that the editor released the document. Disk events
// for the path resume driving the index.
func (ix *Indexer) MarkClosed(filePath string) {
	ix.openMu.Lock()
	delete(ix.open, filePath)
	ix.openMu.Unlock()
}

// IsOpen reports whether the editor currently holds the document.
func (ix *Indexer) IsOpen(filePath string) bool {
	ix.openMu.Lock()
	defer ix.openMu.Unlock()
	return ix.open[filePath]
}

// Index returns the underlying workspace index.
func (ix *Indexer) Index() *index.WorkspaceIndex {
	return ix.index
}

// Stats returns a snapshot of the underlying index.
func (ix *Indexer) Stats() index.Stats {
	return ix.index.Stats()
}
