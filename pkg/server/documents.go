package server

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// diskCacheSize bounds the LRU of disk-backed file contents used for
// resolve and command requests against files that are not open.
const diskCacheSize = 256

// Document is one editor-open text document.
type Document struct {
	Path    string
	Version int32
	Content []byte
}

// diskEntry caches a disk read together with the mtime it was taken at,
// so a file rewritten on disk is never served stale.
type diskEntry struct {
	content []byte
	mtime   time.Time
}

// DocumentStore tracks open documents and caches disk reads for closed
// ones.
//
// Open documents are authoritative: their buffer content wins over
// whatever is on disk. Closed documents are read from disk through an
// mtime-checked LRU.
type DocumentStore struct {
	mu   sync.RWMutex
	open map[string]*Document

	disk   *lru.Cache[string, diskEntry]
	logger *slog.Logger
}

// NewDocumentStore creates a document store.
func NewDocumentStore(logger *slog.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	disk, err := lru.New[string, diskEntry](diskCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	return &DocumentStore{
		open:   make(map[string]*Document),
		disk:   disk,
		logger: logger,
	}, nil
}

// Open records a newly opened document.
func (ds *DocumentStore) Open(path string, version int32, content []byte) {
	ds.mu.Lock()
	ds.open[path] = &Document{Path: path, Version: version, Content: content}
	ds.mu.Unlock()
}

// Update replaces the content of an open document. Unknown paths are
// treated as opens; some clients skip didOpen after a rename.
func (ds *DocumentStore) Update(path string, version int32, content []byte) {
	ds.mu.Lock()
	if doc, ok := ds.open[path]; ok {
		doc.Version = version
		doc.Content = content
	} else {
		ds.open[path] = &Document{Path: path, Version: version, Content: content}
	}
	ds.mu.Unlock()
}

// Close forgets an open document. Disk becomes authoritative again; any
// cached disk entry is dropped since the editor may have saved on close.
func (ds *DocumentStore) Close(path string) {
	ds.mu.Lock()
	delete(ds.open, path)
	ds.mu.Unlock()

	ds.disk.Remove(path)
}

// IsOpen reports whether the document is editor-open.
func (ds *DocumentStore) IsOpen(path string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, ok := ds.open[path]
	return ok
}

// Content returns the current content of a document: the open buffer if
// there is one, the disk contents otherwise.
func (ds *DocumentStore) Content(path string) ([]byte, error) {
	ds.mu.RLock()
	if doc, ok := ds.open[path]; ok {
		content := make([]byte, len(doc.Content))
		copy(content, doc.Content)
		ds.mu.RUnlock()
		return content, nil
	}
	ds.mu.RUnlock()

	return ds.readDisk(path)
}

func (ds *DocumentStore) readDisk(path string) ([]byte, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if entry, ok := ds.disk.Get(path); ok && entry.mtime.Equal(stat.ModTime()) {
		return entry.content, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ds.disk.Add(path, diskEntry{content: content, mtime: stat.ModTime()})
	return content, nil
}

// OpenPaths returns the paths of all open documents.
func (ds *DocumentStore) OpenPaths() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	paths := make([]string, 0, len(ds.open))
	for path := range ds.open {
		paths = append(paths, path)
	}
	return paths
}
