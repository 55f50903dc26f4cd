package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/resolver"
)

func entry(name, path string) Entry {
	return Entry{
		Export:   extractor.ExportDescriptor{Name: name, Kind: extractor.KindValue},
		Identity: resolver.ModuleIdentity{AbsolutePath: path},
	}
}

func TestUpsertAndQuery(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	ok := idx.UpsertFile("/ws/a.ts", []Entry{
		entry("alpha", "/ws/a.ts"),
		entry("beta", "/ws/a.ts"),
	}, 1)
	require.True(t, ok)

	entries := idx.Query("alpha")
	require.Len(t, entries, 1)
	assert.Equal(t, "/ws/a.ts", entries[0].Identity.AbsolutePath)

	assert.Nil(t, idx.Query("gamma"))
}

func TestUpsertReplacesPreviousEntries(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, 1)
	idx.UpsertFile("/ws/a.ts", []Entry{entry("beta", "/ws/a.ts")}, 2)

	assert.Nil(t, idx.Query("alpha"))
	assert.Len(t, idx.Query("beta"), 1)
}

// Re-indexing identical content must not accumulate duplicates.
func TestUpsertIdempotent(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	for seq := uint64(1); seq <= 3; seq++ {
		idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, seq)
	}

	assert.Len(t, idx.Query("alpha"), 1)
	assert.Equal(t, 1, idx.Stats().Entries)
}

func TestStaleUpsertDropped(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	require.True(t, idx.UpsertFile("/ws/a.ts", []Entry{entry("newer", "/ws/a.ts")}, 5))

	// A slow disk read finishing after an editor update must lose.
	assert.False(t, idx.UpsertFile("/ws/a.ts", []Entry{entry("older", "/ws/a.ts")}, 3))

	assert.Len(t, idx.Query("newer"), 1)
	assert.Nil(t, idx.Query("older"))
}

func TestRemoveFile(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, 1)
	idx.UpsertFile("/ws/b.ts", []Entry{entry("alpha", "/ws/b.ts")}, 2)

	require.True(t, idx.RemoveFile("/ws/a.ts", 3))

	entries := idx.Query("alpha")
	require.Len(t, entries, 1)
	assert.Equal(t, "/ws/b.ts", entries[0].Identity.AbsolutePath)

	require.True(t, idx.RemoveFile("/ws/b.ts", 4))
	assert.Nil(t, idx.Query("alpha"))
	assert.Equal(t, 0, idx.Stats().Names)
}

func TestStaleRemoveDropped(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, 5)
	assert.False(t, idx.RemoveFile("/ws/a.ts", 2))
	assert.Len(t, idx.Query("alpha"), 1)
}

func TestQueryPrefix(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{
		entry("formatDate", "/ws/a.ts"),
		entry("formatTime", "/ws/a.ts"),
		entry("parse", "/ws/a.ts"),
	}, 1)

	entries := idx.QueryPrefix("format")
	require.Len(t, entries, 2)
	assert.Equal(t, "formatDate", entries[0].Export.Name)
	assert.Equal(t, "formatTime", entries[1].Export.Name)

	assert.Nil(t, idx.QueryPrefix("x"))
	assert.Nil(t, idx.QueryPrefix(""))
}

// Prefix matching is case sensitive; ranking across cases is the
// completion provider's job.
func TestQueryPrefixFold(t *testing.T) {
	idx := NewWorkspaceIndex(nil)
	idx.UpsertFile("/ws/a.ts", []Entry{
		entry("URLParser", "/ws/a.ts"),
		entry("urlJoin", "/ws/a.ts"),
		entry("parse", "/ws/a.ts"),
	}, 1)

	names := func(entries []Entry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Export.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"URLParser", "urlJoin"}, names(idx.QueryPrefixFold("url")))
	assert.ElementsMatch(t, []string{"URLParser"}, names(idx.QueryPrefixFold("urlpar")))
	assert.Empty(t, idx.QueryPrefixFold("parser"))
	assert.Nil(t, idx.QueryPrefixFold(""))
}

func TestQueryPrefixCaseSensitive(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{
		entry("Parser", "/ws/a.ts"),
		entry("parse", "/ws/a.ts"),
	}, 1)

	entries := idx.QueryPrefix("Par")
	require.Len(t, entries, 1)
	assert.Equal(t, "Parser", entries[0].Export.Name)
}

func TestQueryReturnsCopy(t *testing.T) {
	idx := NewWorkspaceIndex(nil)
	idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, 1)

	entries := idx.Query("alpha")
	entries[0].Export.Name = "mutated"

	assert.Equal(t, "alpha", idx.Query("alpha")[0].Export.Name)
}

func TestEmptyNamesSkipped(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{entry("", "/ws/a.ts")}, 1)
	assert.Equal(t, 0, idx.Stats().Entries)
}

func TestStats(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	idx.UpsertFile("/ws/a.ts", []Entry{entry("alpha", "/ws/a.ts")}, 1)
	idx.UpsertFile("/ws/b.ts", []Entry{entry("alpha", "/ws/b.ts"), entry("beta", "/ws/b.ts")}, 2)
	idx.Query("alpha")
	idx.QueryPrefix("a")

	stats := idx.Stats()
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Names)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, uint64(2), stats.Queries)
	assert.Equal(t, uint64(2), stats.Upserts)
}

// Concurrent writers and readers on distinct and shared names.
func TestConcurrentAccess(t *testing.T) {
	idx := NewWorkspaceIndex(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := fmt.Sprintf("/ws/f%d.ts", n)
			for seq := uint64(1); seq <= 50; seq++ {
				idx.UpsertFile(path, []Entry{
					entry(fmt.Sprintf("sym%d", n), path),
					entry("shared", path),
				}, seq)
				idx.Query("shared")
				idx.QueryPrefix("sym")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, idx.Query("shared"), 16)
	assert.Equal(t, 16, idx.Stats().Files)
}

func populate(idx *WorkspaceIndex, files, perFile int) {
	for i := 0; i < files; i++ {
		path := fmt.Sprintf("/ws/src/file%d.ts", i)
		entries := make([]Entry, 0, perFile)
		for j := 0; j < perFile; j++ {
			entries = append(entries, entry(fmt.Sprintf("symbol%dv%d", i, j), path))
		}
		idx.UpsertFile(path, entries, uint64(i+1))
	}
}

func BenchmarkQuery(b *testing.B) {
	idx := NewWorkspaceIndex(nil)
	populate(idx, 1000, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query("symbol500v5")
	}
}

func BenchmarkQueryPrefix(b *testing.B) {
	idx := NewWorkspaceIndex(nil)
	populate(idx, 1000, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.QueryPrefix("symbol50")
	}
}

func BenchmarkUpsertFile(b *testing.B) {
	idx := NewWorkspaceIndex(nil)
	entries := make([]Entry, 0, 50)
	for j := 0; j < 50; j++ {
		entries = append(entries, entry(fmt.Sprintf("symbol%d", j), "/ws/src/hot.ts"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.UpsertFile("/ws/src/hot.ts", entries, uint64(i+1))
	}
}

func BenchmarkConcurrentQueries(b *testing.B) {
	idx := NewWorkspaceIndex(nil)
	populate(idx, 100, 10)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			idx.Query(fmt.Sprintf("symbol%dv%d", i%100, i%10))
			i++
		}
	})
}
