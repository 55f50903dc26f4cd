package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkat5694/nuclide/pkg/extractor"
	"github.com/Venkat5694/nuclide/pkg/index"
	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
	"github.com/Venkat5694/nuclide/pkg/resolver"
	"github.com/Venkat5694/nuclide/pkg/util"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()

	logger := util.NewLogger(util.DefaultLoggerConfig())
	pm := parser.NewParserManager(logger)
	t.Cleanup(func() { pm.Close() })

	qm := queries.NewQueryManager(pm, logger)
	t.Cleanup(func() { qm.Close() })

	ext := extractor.NewExtractor(pm, qm, logger)
	res := resolver.NewResolver(nil, false, logger)
	idx := index.NewWorkspaceIndex(logger)

	return NewIndexer(ext, res, idx, logger)
}

func TestIndexContent(t *testing.T) {
	ix := newTestIndexer(t)

	ok := ix.IndexContent("/ws/src/util.ts", []byte("export const helper = 1;\n"))
	require.True(t, ok)

	entries := ix.Index().Query("helper")
	require.Len(t, entries, 1)
	assert.Equal(t, "/ws/src/util.ts", entries[0].Identity.AbsolutePath)
}

func TestIndexContent_ReplacesOldExports(t *testing.T) {
	ix := newTestIndexer(t)

	ix.IndexContent("/ws/src/util.ts", []byte("export const old = 1;\n"))
	ix.IndexContent("/ws/src/util.ts", []byte("export const fresh = 1;\n"))

	assert.Nil(t, ix.Index().Query("old"))
	assert.Len(t, ix.Index().Query("fresh"), 1)
}

// A disk read that was observed before an editor update must not win,
// even when it reaches the index later.
func TestApply_SequenceArbitration(t *testing.T) {
	ix := newTestIndexer(t)

	diskSeq := ix.NextSeq()
	diskEntries := ix.ExtractEntries("/ws/src/util.ts", []byte("export const stale = 1;\n"))

	// Editor observes newer content and indexes it first.
	require.True(t, ix.IndexContent("/ws/src/util.ts", []byte("export const current = 1;\n")))

	// The slow disk read finally lands.
	assert.False(t, ix.Apply("/ws/src/util.ts", diskEntries, diskSeq))
	assert.Nil(t, ix.Index().Query("stale"))
	assert.Len(t, ix.Index().Query("current"), 1)
}

func TestRemove(t *testing.T) {
	ix := newTestIndexer(t)

	ix.IndexContent("/ws/src/util.ts", []byte("export const helper = 1;\n"))
	require.True(t, ix.Remove("/ws/src/util.ts"))
	assert.Nil(t, ix.Index().Query("helper"))
}

func TestOpenTracking(t *testing.T) {
	ix := newTestIndexer(t)

	assert.False(t, ix.IsOpen("/ws/src/app.ts"))
	ix.MarkOpen("/ws/src/app.ts")
	assert.True(t, ix.IsOpen("/ws/src/app.ts"))
	ix.MarkClosed("/ws/src/app.ts")
	assert.False(t, ix.IsOpen("/ws/src/app.ts"))
}

func TestExtractEntries_UnsupportedFile(t *testing.T) {
	ix := newTestIndexer(t)
	assert.Nil(t, ix.ExtractEntries("/ws/README.md", []byte("# nope")))
}
