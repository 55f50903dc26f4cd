package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Venkat5694/nuclide/pkg/parser"
)

// FileWatcher re-indexes files as they change on disk.
//
// Rapid saves to the same file are debounced into a single reindex.
// Events for editor-open documents are skipped entirely; the editor
// buffer drives the index for those until the document closes.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	indexer *Indexer
	logger  *slog.Logger
	options WatchOptions

	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// NewFileWatcher creates a file watcher.
func NewFileWatcher(ix *Indexer, options WatchOptions, logger *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if options.DebounceMs == 0 {
		options.DebounceMs = 200
	}

	return &FileWatcher{
		watcher:        watcher,
		indexer:        ix,
		logger:         logger,
		options:        options,
		debounceTimers: make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
	}, nil
}

// Start watches rootPath and all non-ignored subdirectories, then runs
// the event loop in the background.
func (fw *FileWatcher) Start(rootPath string) error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	fw.mu.Unlock()

	if err := fw.watchTree(rootPath); err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}

	fw.logger.Info("file watcher started", "root", rootPath)

	go fw.eventLoop()

	return nil
}

// watchTree adds rootPath and its subdirectories to the watcher.
func (fw *FileWatcher) watchTree(rootPath string) error {
	if err := fw.watcher.Add(rootPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", rootPath, err)
	}

	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			if fw.shouldIgnore(path) {
				return filepath.SkipDir
			}
			if err := fw.watcher.Add(path); err != nil {
				fw.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
		}

		return nil
	})
}

// Stop stops the file watcher. Idempotent.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return nil
	}

	fw.stopped = true
	close(fw.stopChan)

	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceTimers = make(map[string]*time.Timer)
	fw.debounceMu.Unlock()

	err := fw.watcher.Close()
	fw.logger.Info("file watcher stopped")
	return err
}

func (fw *FileWatcher) eventLoop() {
	for {
		select {
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	filePath := event.Name

	if fw.shouldIgnore(filePath) {
		return
	}

	// Newly created directories need their own watch.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(filePath); err == nil && info.IsDir() {
			if err := fw.watchTree(filePath); err != nil {
				fw.logger.Warn("failed to watch new directory", "path", filePath, "error", err)
			}
			return
		}
	}

	if !parser.IsSupportedFile(filePath) {
		return
	}

	// Open documents are driven by editor events, not disk state.
	if fw.indexer.IsOpen(filePath) {
		fw.logger.Debug("skipping disk event for open document", "file", filePath)
		return
	}

	fw.logger.Debug("file event", "op", event.Op.String(), "file", filePath)

	switch {
	case event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Create == fsnotify.Create:
		fw.debounceReindex(filePath)

	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		fw.removeFile(filePath)
	}
}

// debounceReindex schedules a reindex after the debounce delay. New events
// for the same file reset the timer.
func (fw *FileWatcher) debounceReindex(filePath string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if timer, exists := fw.debounceTimers[filePath]; exists {
		timer.Stop()
	}

	fw.debounceTimers[filePath] = time.AfterFunc(
		time.Duration(fw.options.DebounceMs)*time.Millisecond,
		func() {
			fw.reindexFile(filePath)

			fw.debounceMu.Lock()
			delete(fw.debounceTimers, filePath)
			fw.debounceMu.Unlock()
		},
	)
}

// reindexFile reads the file from disk and indexes it.
func (fw *FileWatcher) reindexFile(filePath string) {
	// The document may have been opened while the debounce timer ran.
	if fw.indexer.IsOpen(filePath) {
		return
	}

	seq := fw.indexer.NextSeq()

	content, err := os.ReadFile(filePath)
	if err != nil {
		fw.logger.Warn("failed to read file for reindexing",
			"file", filePath,
			"error", err)
		return
	}

	fw.indexer.Apply(filePath, fw.indexer.ExtractEntries(filePath, content), seq)
}

func (fw *FileWatcher) removeFile(filePath string) {
	fw.logger.Debug("removing file from index", "file", filePath)
	fw.indexer.Remove(filePath)
}

// shouldIgnore checks the base name against the ignore patterns and the
// usual build and dependency directories.
func (fw *FileWatcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range fw.options.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	switch base {
	case "node_modules", ".git", "dist", "build", "coverage", "out", ".next":
		return true
	}

	return false
}

// Stats returns file watcher statistics.
func (fw *FileWatcher) Stats() FileWatcherStats {
	fw.debounceMu.Lock()
	pendingReindexes := len(fw.debounceTimers)
	fw.debounceMu.Unlock()

	fw.mu.Lock()
	running := !fw.stopped
	fw.mu.Unlock()

	return FileWatcherStats{
		PendingReindexes: pendingReindexes,
		IsRunning:        running,
	}
}

// FileWatcherStats contains file watcher statistics.
type FileWatcherStats struct {
	PendingReindexes int
	IsRunning        bool
}
