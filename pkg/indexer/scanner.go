package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Venkat5694/nuclide/pkg/util"
)

// WorkspaceScanner builds the initial index for a workspace.
//
// Three phases: discover candidate files by walking the tree against the
// include/exclude patterns, extract exports in parallel on a worker pool,
// and apply results to the index as they arrive.
type WorkspaceScanner struct {
	indexer *Indexer
	logger  *slog.Logger
}

// NewWorkspaceScanner creates a workspace scanner.
func NewWorkspaceScanner(ix *Indexer, logger *slog.Logger) *WorkspaceScanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkspaceScanner{
		indexer: ix,
		logger:  logger,
	}
}

// ScanWorkspace scans rootPath and indexes every matching file.
//
// Per-file failures are recorded in the returned stats, never fatal; only
// a broken configuration (invalid patterns) or an unwalkable root fails
// the scan itself.
func (ws *WorkspaceScanner) ScanWorkspace(
	rootPath string,
	options ScanOptions,
	progressCallback ProgressCallback,
) (*ScanStats, error) {
	startTime := time.Now()
	stats := &ScanStats{
		StartTime: startTime,
		Errors:    make([]FileError, 0),
	}

	ws.logger.Info("starting workspace scan", "root", rootPath)

	discoveryStart := time.Now()
	files, err := ws.discoverFiles(rootPath, options)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	stats.FilesDiscovered = len(files)
	stats.DiscoveryTimeMs = time.Since(discoveryStart).Milliseconds()

	ws.logger.Info("file discovery complete",
		"files_found", len(files),
		"duration_ms", stats.DiscoveryTimeMs)

	if len(files) == 0 {
		ws.logger.Warn("no files found matching criteria")
		stats.EndTime = time.Now()
		stats.TotalTimeMs = time.Since(startTime).Milliseconds()
		return stats, nil
	}

	indexingStart := time.Now()
	if err := ws.processFilesParallel(files, stats, progressCallback); err != nil {
		return nil, fmt.Errorf("file processing failed: %w", err)
	}
	stats.IndexingTimeMs = time.Since(indexingStart).Milliseconds()

	stats.EndTime = time.Now()
	stats.TotalTimeMs = time.Since(startTime).Milliseconds()

	if stats.FilesIndexed > 0 && stats.IndexingTimeMs > 0 {
		stats.FilesPerSecond = float64(stats.FilesIndexed) / (float64(stats.IndexingTimeMs) / 1000.0)
	}
	if stats.FilesDiscovered > 0 {
		stats.SuccessRate = float64(stats.FilesIndexed) / float64(stats.FilesDiscovered)
	}

	ws.logger.Info("workspace scan complete",
		"files_indexed", stats.FilesIndexed,
		"files_failed", stats.FilesFailed,
		"exports_extracted", stats.ExportsExtracted,
		"duration_ms", stats.TotalTimeMs,
		"files_per_second", fmt.Sprintf("%.1f", stats.FilesPerSecond))

	return stats, nil
}

// discoverFiles walks the tree and returns files matching the patterns.
func (ws *WorkspaceScanner) discoverFiles(rootPath string, options ScanOptions) ([]string, error) {
	for _, pattern := range options.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range options.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ws.logger.Warn("walk error", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		for _, pattern := range options.Exclude {
			matched, _ := doublestar.PathMatch(pattern, relPath)
			if matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		if len(options.Include) > 0 {
			matched := false
			for _, pattern := range options.Include {
				if m, _ := doublestar.PathMatch(pattern, relPath); m {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// processFilesParallel runs extraction on a worker pool and applies the
// results to the index as they arrive.
func (ws *WorkspaceScanner) processFilesParallel(
	files []string,
	stats *ScanStats,
	progressCallback ProgressCallback,
) error {
	totalFiles := len(files)

	numWorkers := util.GetOptimalPoolSize()
	stats.WorkerCount = numWorkers

	// Scan-scoped mmap cache for the bulk reads; closed with the scan.
	fileCache := util.NewFileCache(&util.FileCacheConfig{
		MaxFiles: totalFiles + 1,
		Logger:   ws.logger,
	})
	defer func() {
		if err := fileCache.Close(); err != nil {
			ws.logger.Warn("failed to close scan file cache", "error", err)
		}
	}()

	pool := NewWorkerPool(numWorkers, ws.indexer, fileCache, ws.logger)
	pool.Start()
	defer pool.Stop()

	indexed := atomic.Int32{}
	failed := atomic.Int32{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The collector must be running before jobs are submitted: Submit
	// blocks once the jobs channel fills, and workers block once the
	// results channel fills.
	done := make(chan struct{})
	go func() {
		defer close(done)

		for {
			select {
			case <-ctx.Done():
				return

			case result, ok := <-pool.Results():
				if !ok {
					return
				}

				ws.indexer.Apply(result.FilePath, result.Entries, result.Seq)

				stats.ExportsExtracted += len(result.Entries)
				stats.FilesIndexed++

				count := indexed.Add(1)
				if progressCallback != nil {
					progressCallback(int(count), totalFiles, result.FilePath)
				}

				if int(count)+int(failed.Load()) >= totalFiles {
					cancel()
					return
				}

			case fileErr, ok := <-pool.Errors():
				if !ok {
					return
				}

				stats.Errors = append(stats.Errors, fileErr)
				stats.FilesFailed++

				ws.logger.Warn("file processing failed",
					"file", fileErr.FilePath,
					"error", fileErr.Error)

				count := failed.Add(1)
				if int(indexed.Load())+int(count) >= totalFiles {
					cancel()
					return
				}
			}
		}
	}()

	for i, file := range files {
		// Sequence allocated at submission: if the editor updates the
		// file while the scan is still chewing, the editor's later
		// sequence outranks this job's result.
		err := pool.Submit(FileJob{
			FilePath: file,
			Seq:      ws.indexer.NextSeq(),
			JobID:    i,
		})
		if err != nil {
			return fmt.Errorf("failed to submit job for %s: %w", file, err)
		}
	}

	pool.FinishSubmitting()

	<-done
	return nil
}
