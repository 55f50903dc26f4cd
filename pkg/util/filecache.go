package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// FileCache provides read access to source files via memory-mapped regions.
//
// The workspace scanner reads every candidate file once during the initial
// walk; mapping instead of copying keeps the walk cheap on large trees, and
// only accessed pages ever reach physical RAM.
//
// Thread-safe: reads take an RLock, loads take the write lock with a
// double-check after upgrade.
type FileCache interface {
	// ReadAll returns the full contents of the file, mapping it on first
	// access. The returned slice aliases the mapping and MUST NOT be
	// retained past Close().
	ReadAll(filePath string) ([]byte, error)

	// Size returns the number of currently cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() FileCacheStats

	// Close unmaps all files and releases file descriptors.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles caps the number of cached files. 0 means unlimited.
	// When the limit is reached ReadAll falls through to os.ReadFile
	// without caching, so scans degrade instead of failing.
	MaxFiles int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns defaults suitable for medium workspaces.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles: 10000,
	}
}

// FileCacheStats tracks cache performance metrics.
type FileCacheStats struct {
	// FilesMapped is the cumulative number of successful mappings.
	FilesMapped int64

	// CacheHits is the number of lookups served from the cache.
	CacheHits int64

	// CacheMisses is the number of lookups that required a load.
	CacheMisses int64

	// MmapFailures counts files that fell back to os.ReadFile.
	MmapFailures int64
}

type mappedFile struct {
	data mmap.MMap
	file *os.File
}

type fileCache struct {
	config *FileCacheConfig
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*mappedFile

	statsMu sync.Mutex
	stats   FileCacheStats
}

// NewFileCache creates a FileCache. A nil config uses defaults.
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileCache{
		config: config,
		logger: logger,
		cache:  make(map[string]*mappedFile),
	}
}

func (fc *fileCache) ReadAll(filePath string) ([]byte, error) {
	fc.mu.RLock()
	if mf, ok := fc.cache[filePath]; ok {
		fc.mu.RUnlock()
		fc.recordHit()
		return mf.data, nil
	}
	fc.mu.RUnlock()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Another goroutine may have mapped it while we waited for the lock.
	if mf, ok := fc.cache[filePath]; ok {
		fc.recordHit()
		return mf.data, nil
	}

	fc.recordMiss()

	if fc.config.MaxFiles > 0 && len(fc.cache) >= fc.config.MaxFiles {
		// Over budget: serve the read without caching.
		return os.ReadFile(filePath)
	}

	mf, err := fc.load(filePath)
	if err != nil {
		return nil, err
	}
	fc.cache[filePath] = mf
	return mf.data, nil
}

// load opens and maps a file, falling back to os.ReadFile when mmap fails.
//
// Must be called while holding mu.Lock.
func (fc *fileCache) load(filePath string) (*mappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}

	// Zero-length files cannot be mapped.
	if stat.Size() == 0 {
		return &mappedFile{data: nil, file: file}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback",
			"file", filePath,
			"size", stat.Size(),
			"error", err)
		file.Close()
		fc.recordMmapFailure()

		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap and fallback read failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		return &mappedFile{data: mmap.MMap(raw), file: nil}, nil
	}

	fc.recordMapped()
	return &mappedFile{data: data, file: file}, nil
}

func (fc *fileCache) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.cache)
}

func (fc *fileCache) Stats() FileCacheStats {
	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	return fc.stats
}

func (fc *fileCache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.cache {
		if mf.file != nil && mf.data != nil {
			if err := mf.data.Unmap(); err != nil {
				fc.logger.Warn("failed to unmap file", "path", path, "error", err)
				errs = append(errs, fmt.Errorf("unmap %q: %w", path, err))
			}
		}
		if mf.file != nil {
			if err := mf.file.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %q: %w", path, err))
			}
		}
	}
	fc.cache = make(map[string]*mappedFile)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func (fc *fileCache) recordHit() {
	fc.statsMu.Lock()
	fc.stats.CacheHits++
	fc.statsMu.Unlock()
}

func (fc *fileCache) recordMiss() {
	fc.statsMu.Lock()
	fc.stats.CacheMisses++
	fc.statsMu.Unlock()
}

func (fc *fileCache) recordMapped() {
	fc.statsMu.Lock()
	fc.stats.FilesMapped++
	fc.statsMu.Unlock()
}

func (fc *fileCache) recordMmapFailure() {
	fc.statsMu.Lock()
	fc.stats.MmapFailures++
	fc.statsMu.Unlock()
}
