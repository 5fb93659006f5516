package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sotorrent/internal/ddl"
	"sotorrent/internal/schema"
)

// renderCatalog renders every CREATE TABLE and CREATE INDEX statement of the
// SOTorrent catalog, keyed by table or index name.
func renderCatalog(t *testing.T, d ddl.Dialect) (tables, indexes map[string]string) {
	t.Helper()
	cat := schema.SOTorrent()
	tables = map[string]string{}
	for _, td := range cat.AllTables() {
		stmt, err := ddl.BuildCreateTableSQL(d, td)
		require.NoError(t, err, td.FQN)
		tables[td.FQN] = stmt
	}
	indexes = map[string]string{}
	for _, idx := range cat.Indexes {
		td, ok := cat.Table(idx.Table)
		require.True(t, ok, idx.Name)
		stmt, err := ddl.BuildCreateIndexSQL(d, idx, td)
		require.NoError(t, err, idx.Name)
		indexes[idx.Name] = stmt
	}
	return tables, indexes
}

func TestDialectRendersCatalog(t *testing.T) {
	t.Parallel()

	tables, indexes := renderCatalog(t, Dialect{})
	require.Len(t, indexes, len(schema.Indexes))

	tests := []struct {
		table string
		line  string
	}{
		{"PostType", `"Id" SMALLINT NOT NULL,`},
		{"Users", `"CreationDate" TIMESTAMP,`},
		{"Users", `"Views" INTEGER DEFAULT 0,`},
		{"Badges", `"Class" SMALLINT,`},
		{"Badges", `"TagBased" BOOLEAN`},
		{"Comments", `"Score" INTEGER NOT NULL DEFAULT 0,`},
		{"Comments", `"CreationDate" TIMESTAMP NOT NULL,`},
		{"PostBlockVersion", `"PredSimilarity" DOUBLE PRECISION,`},
		{"PostVersion", `"MostRecentVersion" BOOLEAN NOT NULL DEFAULT FALSE`},
		{"TitleVersion", `"MostRecentVersion" BOOLEAN NOT NULL DEFAULT FALSE`},
		{"PostBlockVersion", `"MostRecentVersion" BOOLEAN NOT NULL DEFAULT FALSE`},
		{"GHMatches", `"MatchedLine" TEXT NOT NULL`},
	}
	for _, tt := range tests {
		assert.Contains(t, tables[tt.table], tt.line, tt.table)
	}

	// A BOOLEAN column only accepts a boolean default expression.
	boolDefault := regexp.MustCompile(`BOOLEAN( NOT NULL)? DEFAULT (\S+?),?\n`)
	for name, stmt := range tables {
		for _, m := range boolDefault.FindAllStringSubmatch(stmt+"\n", -1) {
			assert.Contains(t, []string{"TRUE", "FALSE"}, m[2], name)
		}
		assert.NotContains(t, stmt, "TINYINT", name)
		assert.NotContains(t, stmt, "DATETIME", name)
	}

	assert.Equal(t, `CREATE INDEX "PostVersionUrl_idx_Url" ON "PostVersionUrl" ("Url");`, indexes["PostVersionUrl_idx_Url"])
	assert.Equal(t, `CREATE INDEX "PostBlockVersion_idx_PostHistoryId_LocalId" ON "PostBlockVersion" ("PostHistoryId", "LocalId");`,
		indexes["PostBlockVersion_idx_PostHistoryId_LocalId"])
	for name, stmt := range indexes {
		assert.True(t, strings.HasPrefix(stmt, `CREATE INDEX "`+name+`" ON "`), stmt)
	}
}
