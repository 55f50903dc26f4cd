// Package index holds the in-memory symbol index: every exported symbol in
// the workspace, keyed by name, with the module identity that provides it.
package index

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/resolver"
)

// Entry is one exported symbol together with its providing module.
type Entry struct {
	Export   extractor.ExportDescriptor
	Identity resolver.ModuleIdentity
}

// Stats is a point-in-time snapshot of index size and activity.
type Stats struct {
	// Files is the number of files currently contributing entries.
	Files int

	// Names is the number of distinct symbol names.
	Names int

	// Entries is the total number of (symbol, module) pairs.
	Entries int

	// Queries counts Query, QueryPrefix, and QueryPrefixFold calls
	// since startup.
	Queries uint64

	// Upserts counts applied (non-stale) file updates since startup.
	Upserts uint64
}

// WorkspaceIndex is the symbol index.
//
// Concurrency model: scan workers, the file watcher, and editor document
// events all write concurrently while completion and diagnostics read.
// Reads take an RLock; a file's removal and reinsertion happen under one
// write lock so readers never observe a half-updated file.
//
// Staleness: each update carries a sequence number allocated when its
// source content was observed. An update older than the file's last
// applied sequence is dropped, so a slow disk read can never clobber a
// newer editor buffer.
type WorkspaceIndex struct {
	mu sync.RWMutex

	// byName maps a symbol name to every module exporting it.
	byName map[string][]Entry

	// names mirrors byName's keys, sorted, for prefix queries.
	names []string

	// fileNames maps a file path to the names it contributed.
	fileNames map[string][]string

	// lastSeq is the last applied sequence number per file.
	lastSeq map[string]uint64

	queries atomic.Uint64
	upserts atomic.Uint64

	logger *slog.Logger
}

// NewWorkspaceIndex creates an empty index. A nil logger uses slog.Default().
func NewWorkspaceIndex(logger *slog.Logger) *WorkspaceIndex {
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkspaceIndex{
		byName:    make(map[string][]Entry),
		fileNames: make(map[string][]string),
		lastSeq:   make(map[string]uint64),
		logger:    logger,
	}
}

// UpsertFile replaces all entries for a file. Returns false when the
// update is stale (seq older than the last applied update for the path).
//
// Re-indexing the same unchanged file is idempotent: the file's old
// entries are removed and the new set inserted atomically.
func (idx *WorkspaceIndex) UpsertFile(filePath string, entries []Entry, seq uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if last, ok := idx.lastSeq[filePath]; ok && seq < last {
		idx.logger.Debug("dropping stale index update",
			"file", filePath,
			"seq", seq,
			"last", last)
		return false
	}
	idx.lastSeq[filePath] = seq

	idx.removeFileLocked(filePath)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Export.Name
		if name == "" {
			continue
		}
		if _, exists := idx.byName[name]; !exists {
			idx.insertNameLocked(name)
		}
		idx.byName[name] = append(idx.byName[name], entry)
		names = append(names, name)
	}
	if len(names) > 0 {
		idx.fileNames[filePath] = names
	}

	idx.upserts.Add(1)
	return true
}

// RemoveFile drops all entries for a deleted file. Stale removals are
// ignored the same way stale upserts are.
func (idx *WorkspaceIndex) RemoveFile(filePath string, seq uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if last, ok := idx.lastSeq[filePath]; ok && seq < last {
		return false
	}
	idx.lastSeq[filePath] = seq

	idx.removeFileLocked(filePath)
	return true
}

// Query returns every entry exporting the exact symbol name. The returned
// slice is a copy and safe to retain.
func (idx *WorkspaceIndex) Query(name string) []Entry {
	idx.queries.Add(1)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.byName[name]
	if len(entries) == 0 {
		return nil
	}

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// QueryPrefix returns every entry whose symbol name starts with prefix,
// grouped by name in lexicographic order. An empty prefix matches nothing.
func (idx *WorkspaceIndex) QueryPrefix(prefix string) []Entry {
	idx.queries.Add(1)

	if prefix == "" {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	start := sort.SearchStrings(idx.names, prefix)

	var out []Entry
	for i := start; i < len(idx.names); i++ {
		if !strings.HasPrefix(idx.names[i], prefix) {
			break
		}
		out = append(out, idx.byName[idx.names[i]]...)
	}
	return out
}

// QueryPrefixFold returns every entry whose symbol name starts with
// prefix under case folding, grouped by name in lexicographic order.
// Folded order differs from lexicographic order, so this walks the whole
// name slice instead of binary-searching it.
func (idx *WorkspaceIndex) QueryPrefixFold(prefix string) []Entry {
	idx.queries.Add(1)

	if prefix == "" {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []Entry
	for _, name := range idx.names {
		if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			out = append(out, idx.byName[name]...)
		}
	}
	return out
}

// Stats returns a snapshot of index size and activity counters.
func (idx *WorkspaceIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := 0
	for _, list := range idx.byName {
		entries += len(list)
	}

	return Stats{
		Files:   len(idx.fileNames),
		Names:   len(idx.names),
		Entries: entries,
		Queries: idx.queries.Load(),
		Upserts: idx.upserts.Load(),
	}
}

// removeFileLocked removes every entry the file contributed.
// Must be called while holding mu.Lock.
func (idx *WorkspaceIndex) removeFileLocked(filePath string) {
	names, ok := idx.fileNames[filePath]
	if !ok {
		return
	}
	delete(idx.fileNames, filePath)

	for _, name := range names {
		entries := idx.byName[name]
		kept := entries[:0]
		for _, entry := range entries {
			if entry.Identity.AbsolutePath != filePath {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(idx.byName, name)
			idx.removeNameLocked(name)
		} else {
			idx.byName[name] = kept
		}
	}
}

// insertNameLocked inserts a name into the sorted slice.
// Must be called while holding mu.Lock.
func (idx *WorkspaceIndex) insertNameLocked(name string) {
	pos := sort.SearchStrings(idx.names, name)
	idx.names = append(idx.names, "")
	copy(idx.names[pos+1:], idx.names[pos:])
	idx.names[pos] = name
}

// removeNameLocked removes a name from the sorted slice.
// Must be called while holding mu.Lock.
func (idx *WorkspaceIndex) removeNameLocked(name string) {
	pos := sort.SearchStrings(idx.names, name)
	if pos < len(idx.names) && idx.names[pos] == name {
		idx.names = append(idx.names[:pos], idx.names[pos+1:]...)
	}
}
