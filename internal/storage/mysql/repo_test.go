package mysql

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sotorrent/internal/ddl"
	"sotorrent/internal/schema"
	"sotorrent/internal/storage"
)

func TestDialect(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	tests := []struct {
		in   ddl.Type
		want string
	}{
		{ddl.Of(ddl.TinyInt), "TINYINT"},
		{ddl.Of(ddl.Int), "INT"},
		{ddl.Of(ddl.Bool), "TINYINT(1)"},
		{ddl.Of(ddl.Double), "DOUBLE"},
		{ddl.Of(ddl.DateTime), "DATETIME(3)"},
		{ddl.VarCharN(150), "VARCHAR(150)"},
		{ddl.Of(ddl.Text), "TEXT"},
		{ddl.Of(ddl.MediumText), "MEDIUMTEXT"},
		{ddl.Of(ddl.LongText), "LONGTEXT"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.ColumnType(tt.in), "ColumnType(%v)", tt.in)
	}
	assert.Equal(t, "`we``ird`", d.QuoteIdent("we`ird"))
	assert.Equal(t, "?", d.Placeholder(4))
	assert.Equal(t, "FALSE", d.DefaultLiteral(ddl.Of(ddl.Bool), "0"))
	assert.Equal(t, "0", d.DefaultLiteral(ddl.Of(ddl.Int), "0"))
}

func TestCreateIndexUsesPrefix(t *testing.T) {
	t.Parallel()

	table := ddl.TableDef{
		FQN: "PostVersionUrl",
		Columns: []ddl.ColumnDef{
			{Name: "Id", Type: ddl.Of(ddl.Int), PrimaryKey: true},
			{Name: "Url", Type: ddl.Of(ddl.Text)},
		},
	}
	idx := ddl.IndexDef{Name: "url_idx", Table: "PostVersionUrl", Columns: []string{"Url"}, PrefixLen: 500}
	got, err := ddl.BuildCreateIndexSQL(Dialect{}, idx, table)
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX `url_idx` ON `PostVersionUrl` (`Url`(500));", got)
}

func TestDialectRendersCatalog(t *testing.T) {
	t.Parallel()

	cat := schema.SOTorrent()
	tables := map[string]string{}
	for _, td := range cat.AllTables() {
		stmt, err := ddl.BuildCreateTableSQL(Dialect{}, td)
		require.NoError(t, err, td.FQN)
		tables[td.FQN] = stmt
	}

	tests := []struct {
		table string
		line  string
	}{
		{"PostType", "`Id` TINYINT NOT NULL,"},
		{"Users", "`CreationDate` DATETIME(3),"},
		{"Users", "`Views` INT DEFAULT 0,"},
		{"Badges", "`Class` TINYINT,"},
		{"Badges", "`TagBased` TINYINT(1)"},
		{"Comments", "`CreationDate` DATETIME(3) NOT NULL,"},
		{"PostHistory", "`Text` MEDIUMTEXT"},
		{"PostVersion", "`MostRecentVersion` TINYINT(1) NOT NULL DEFAULT FALSE"},
		{"TitleVersion", "`MostRecentVersion` TINYINT(1) NOT NULL DEFAULT FALSE"},
		{"PostBlockVersion", "`MostRecentVersion` TINYINT(1) NOT NULL DEFAULT FALSE"},
		{"PostVersion", "FOREIGN KEY (`PostTypeId`) REFERENCES `PostType`(`Id`)"},
		{"GHMatches", "`MatchedLine` LONGTEXT NOT NULL"},
	}
	for _, tt := range tests {
		assert.Contains(t, tables[tt.table], tt.line, tt.table)
	}

	// InnoDB cannot index a TEXT column without a key prefix.
	indexes := map[string]string{}
	for _, idx := range cat.Indexes {
		td, ok := cat.Table(idx.Table)
		require.True(t, ok, idx.Name)
		stmt, err := ddl.BuildCreateIndexSQL(Dialect{}, idx, td)
		require.NoError(t, err, idx.Name)
		indexes[idx.Name] = stmt
		for _, name := range idx.Columns {
			col, _ := td.Column(name)
			if col.Type.FreeText() {
				assert.Positive(t, idx.PrefixLen, idx.Name)
				assert.Contains(t, stmt, fmt.Sprintf("`%s`(%d)", name, idx.PrefixLen), idx.Name)
			}
		}
	}
	assert.Len(t, indexes, len(cat.Indexes))
	assert.Equal(t, "CREATE INDEX `PostVersionUrl_idx_Url` ON `PostVersionUrl` (`Url`(191));", indexes["PostVersionUrl_idx_Url"])
	assert.Equal(t, "CREATE INDEX `CommentUrl_idx_RootDomain` ON `CommentUrl` (`RootDomain`(191));", indexes["CommentUrl_idx_RootDomain"])
	assert.Equal(t, "CREATE INDEX `PostReferenceGH_idx_Repo` ON `PostReferenceGH` (`Repo`);", indexes["PostReferenceGH_idx_Repo"])
	assert.Equal(t, "CREATE INDEX `GHMatches_idx_FileId` ON `GHMatches` (`FileId`);", indexes["GHMatches_idx_FileId"])
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	tests := []struct {
		num        uint16
		exists     bool
		constraint bool
	}{
		{num: 1050, exists: true},
		{num: 1061, exists: true},
		{num: 1062, constraint: true},
		{num: 1452, constraint: true},
		{num: 1451, constraint: true},
		{num: 1048, constraint: true},
		{num: 1064},
	}
	for _, tt := range tests {
		err := fmt.Errorf("mysql: exec: %w", &driver.MySQLError{Number: tt.num, Message: "x"})
		assert.Equal(t, tt.exists, r.AlreadyExists(err), "AlreadyExists(%d)", tt.num)
		assert.Equal(t, tt.constraint, r.ConstraintViolation(err), "ConstraintViolation(%d)", tt.num)
	}
	assert.False(t, r.AlreadyExists(errors.New("table already exists")), "plain errors must not classify")
}

func TestBindValue(t *testing.T) {
	t.Parallel()

	v, err := bindValue(ddl.Of(ddl.DateTime), "2008-07-31T21:42:52.667")
	require.NoError(t, err)
	ts, ok := v.(time.Time)
	require.True(t, ok, "bindValue = %T", v)
	assert.True(t, ts.Equal(time.Date(2008, 7, 31, 21, 42, 52, 667_000_000, time.UTC)), "bindValue = %v", ts)

	v, err = bindValue(ddl.Of(ddl.Text), "2008-07-31")
	require.NoError(t, err)
	assert.Equal(t, "2008-07-31", v)

	_, err = bindValue(ddl.Of(ddl.DateTime), "yesterday")
	assert.Error(t, err)
}

func TestNewRepository_BadConfig(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{})
	assert.Error(t, err, "empty DSN")
	_, _, err = NewRepository(context.Background(), Config{DSN: "no-slash-here"})
	assert.Error(t, err, "malformed DSN")
}

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotDSN string
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotDSN = cfg.DSN
		return &Repository{}, func() { closed = true }, nil
	}

	dsn := "root:secret@tcp(127.0.0.1:3306)/sotorrent18_12"
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: dsn})
	require.NoError(t, err)
	assert.Equal(t, dsn, gotDSN)
	assert.Equal(t, "mysql", repo.Dialect().Name())
	repo.Close()
	assert.True(t, closed, "Close did not invoke closeFn")
}

// TestIntegrationLoad runs only when TEST_MYSQL_DSN is set, e.g.:
//
//	TEST_MYSQL_DSN='root:root@tcp(127.0.0.1:3306)/test' go test ./internal/storage/mysql -run Integration
func TestIntegrationLoad(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: set TEST_MYSQL_DSN to run")
	}
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	defer closeFn()

	parent := ddl.TableDef{FQN: "__sot_users", Columns: []ddl.ColumnDef{
		{Name: "Id", Type: ddl.Of(ddl.Int), PrimaryKey: true},
		{Name: "CreationDate", Type: ddl.Of(ddl.DateTime), Nullable: true},
	}}
	child := ddl.TableDef{FQN: "__sot_badges", Columns: []ddl.ColumnDef{
		{Name: "Id", Type: ddl.Of(ddl.Int), PrimaryKey: true},
		{Name: "UserId", Type: ddl.Of(ddl.Int)},
		{Name: "Latest", Type: ddl.Of(ddl.Bool), Default: "0"},
	}, ForeignKeys: []ddl.ForeignKey{{Columns: []string{"UserId"}, RefTable: "__sot_users", RefColumns: []string{"Id"}}}}

	_ = r.Exec(ctx, "DROP TABLE IF EXISTS `__sot_badges`")
	_ = r.Exec(ctx, "DROP TABLE IF EXISTS `__sot_users`")
	for _, tbl := range []ddl.TableDef{parent, child} {
		stmt, err := ddl.BuildCreateTableSQL(r.Dialect(), tbl)
		require.NoError(t, err)
		require.NoError(t, r.Exec(ctx, stmt), "create %s", tbl.FQN)
	}
	defer func() {
		_ = r.Exec(ctx, "DROP TABLE IF EXISTS `__sot_badges`")
		_ = r.Exec(ctx, "DROP TABLE IF EXISTS `__sot_users`")
	}()

	require.NoError(t, r.SetForeignKeys(ctx, false))
	tx, err := r.Begin(ctx, child)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, []any{int64(1), int64(42), true}), "orphan insert with checks off")
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, r.SetForeignKeys(ctx, true))

	tx, err = r.Begin(ctx, child)
	require.NoError(t, err)
	err = tx.Insert(ctx, []any{int64(2), int64(43), false})
	_ = tx.Rollback(ctx)
	assert.True(t, r.ConstraintViolation(err), "orphan with checks on: ConstraintViolation(%v)", err)
}
