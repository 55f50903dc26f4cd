package indexer

import (
	"time"
)

// ScanOptions configures workspace scanning behavior.
type ScanOptions struct {
	// Include patterns (doublestar glob syntax, e.g. "**/*.ts"),
	// matched against workspace-relative paths.
	Include []string

	// Exclude patterns, matched before includes. Matching directories
	// are skipped entirely.
	Exclude []string
}

// DefaultScanOptions returns the default include and exclude patterns.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Include: []string{
			"**/*.ts",
			"**/*.tsx",
			"**/*.js",
			"**/*.jsx",
			"**/*.mjs",
			"**/*.cjs",
		},
		Exclude: []string{
			"node_modules/**",
			".git/**",
			"dist/**",
			"build/**",
			"coverage/**",
			"out/**",
			".next/**",
		},
	}
}

// ScanStats contains statistics about a workspace scan.
type ScanStats struct {
	// FilesDiscovered is the total number of files found.
	FilesDiscovered int

	// FilesIndexed is the number of files successfully indexed.
	FilesIndexed int

	// FilesFailed is the number of files that failed to index.
	FilesFailed int

	// ExportsExtracted is the total number of exported symbols found.
	ExportsExtracted int

	// DiscoveryTimeMs is time spent discovering files.
	DiscoveryTimeMs int64

	// IndexingTimeMs is time spent extracting and indexing.
	IndexingTimeMs int64

	// TotalTimeMs is the total scan duration.
	TotalTimeMs int64

	// FilesPerSecond is the indexing throughput.
	FilesPerSecond float64

	// SuccessRate is FilesIndexed / FilesDiscovered (0.0 - 1.0).
	SuccessRate float64

	// WorkerCount is the number of workers used.
	WorkerCount int

	// Errors holds per-file failures.
	Errors []FileError

	StartTime time.Time
	EndTime   time.Time
}

// FileError records a failure while processing one file.
type FileError struct {
	FilePath string
	Error    error
}

// ProgressCallback is called as files finish indexing during a scan.
type ProgressCallback func(indexed, total int, currentFile string)

// WatchOptions configures file watching behavior.
type WatchOptions struct {
	// DebounceMs groups rapid changes to the same file into a single
	// reindex. Default: 200ms.
	DebounceMs int

	// IgnorePatterns are base-name patterns to skip during watching.
	IgnorePatterns []string
}

// DefaultWatchOptions returns the default watch configuration.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		DebounceMs: 200,
		IgnorePatterns: []string{
			"*.swp",
			"*.tmp",
			"*~",
		},
	}
}
