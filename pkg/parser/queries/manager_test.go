package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkat5694/nuclide/pkg/parser"
	"github.com/Venkat5694/nuclide/pkg/util"
)

func newManagers(t *testing.T) (*parser.ParserManager, *QueryManager) {
	t.Helper()

	logger := util.NewLogger(util.DefaultLoggerConfig())
	pm := parser.NewParserManager(logger)
	t.Cleanup(func() { pm.Close() })

	qm := NewQueryManager(pm, logger)
	t.Cleanup(func() { qm.Close() })

	return pm, qm
}

func TestGetQuery_CachesCompiledQueries(t *testing.T) {
	_, qm := newManagers(t)

	q1, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)
	require.NotNil(t, q1)

	q2, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
}

// TSX assigns different node IDs, so the variant gets its own compile.
func TestGetQuery_TSXVariantIsDistinct(t *testing.T) {
	_, qm := newManagers(t)

	plain, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)

	tsx, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, true)
	require.NoError(t, err)

	assert.NotSame(t, plain, tsx)
}

func TestGetQuery_UnknownLanguage(t *testing.T) {
	_, qm := newManagers(t)

	_, err := qm.GetQuery(parser.LanguageUnknown, QueryTypeExports, false)
	assert.Error(t, err)
}

func TestExecuteQuery_ExportCaptures(t *testing.T) {
	pm, qm := newManagers(t)

	source := []byte("export function run() {}\nexport { helper } from './impl';\n")
	tree, err := pm.Parse(source, parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	query, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, query, source)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	captured := map[string]string{}
	for _, m := range matches {
		for _, c := range m.Captures {
			captured[c.Name] = c.Text
		}
	}

	assert.Equal(t, "run", captured["export.function"])
	assert.Equal(t, "./impl", captured["export.reexport.source"])
	assert.Contains(t, captured, "export.reexport.spec")
}

func TestExecuteQuery_LocationIsOneBased(t *testing.T) {
	pm, qm := newManagers(t)

	source := []byte("export function run() {}")
	tree, err := pm.Parse(source, parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	query, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, query, source)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	loc := matches[0].Captures[0].Location
	assert.Equal(t, uint32(1), loc.StartLine)
	assert.Equal(t, uint32(17), loc.StartColumn, "\"run\" starts at column 17")
	assert.Equal(t, uint32(16), loc.StartByte)
}

func TestExecuteQuery_NilTree(t *testing.T) {
	_, qm := newManagers(t)

	query, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)

	_, err = qm.ExecuteQuery(nil, query, nil)
	assert.Error(t, err)
}

func TestParseCaptureName(t *testing.T) {
	category, field := parseCaptureName("export.reexport.source")
	assert.Equal(t, "export", category)
	assert.Equal(t, "reexport.source", field)

	category, field = parseCaptureName("plain")
	assert.Equal(t, "plain", category)
	assert.Empty(t, field)
}
