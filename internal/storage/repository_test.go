package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sotorrent/internal/ddl"
)

var errConstraint = errors.New("UNIQUE constraint failed")

// memRepo is an in-memory Repository for tests. Committed rows land in
// rows[table]; the fk log records every SetForeignKeys call.
type memRepo struct {
	rows    map[string][][]any
	fk      []bool
	execs   []string
	queries []string
	count   int64
	closed  bool

	// failInsertAt makes the n-th Insert (1-based, across the repo) fail.
	failInsertAt int
	failErr      error
	inserts      int
	rollbacks    int
	commits      int
	failCommit   bool
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string][][]any{}} }

func (m *memRepo) Dialect() ddl.Dialect { return ddl.Generic{} }

func (m *memRepo) Exec(ctx context.Context, sql string, args ...any) error {
	m.execs = append(m.execs, sql)
	return nil
}

func (m *memRepo) QueryInt64(ctx context.Context, sql string, args ...any) (int64, error) {
	m.queries = append(m.queries, sql)
	return m.count, nil
}

func (m *memRepo) SetForeignKeys(ctx context.Context, enabled bool) error {
	m.fk = append(m.fk, enabled)
	return nil
}

func (m *memRepo) Begin(ctx context.Context, table ddl.TableDef) (Tx, error) {
	return &memTx{repo: m, table: table.FQN}, nil
}

func (m *memRepo) AlreadyExists(err error) bool { return false }

func (m *memRepo) ConstraintViolation(err error) bool { return errors.Is(err, errConstraint) }

func (m *memRepo) Close() { m.closed = true }

type memTx struct {
	repo    *memRepo
	table   string
	pending [][]any
}

func (t *memTx) Insert(ctx context.Context, row []any) error {
	t.repo.inserts++
	if t.repo.failInsertAt > 0 && t.repo.inserts == t.repo.failInsertAt {
		return t.repo.failErr
	}
	t.pending = append(t.pending, append([]any(nil), row...))
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.repo.failCommit {
		return errors.New("disk full")
	}
	t.repo.commits++
	t.repo.rows[t.table] = append(t.repo.rows[t.table], t.pending...)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.repo.rollbacks++
	t.pending = nil
	return nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return newMemRepo(), nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Contains(t, ListKinds(), kind)
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	require.Error(t, err)
	assert.EqualError(t, err, "unsupported storage.kind=does-not-exist")
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return newMemRepo(), nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return newMemRepo(), nil
	})

	_, err := New(context.Background(), Config{Kind: kind})
	require.NoError(t, err)
	assert.Equal(t, 10, calls, "factory call count")
}

// TestListKinds_Snapshot checks that ListKinds returns a sorted copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Repository, error) { return newMemRepo(), nil })

	a := ListKinds()
	require.NotEmpty(t, a)
	assert.True(t, sort.StringsAreSorted(a), "ListKinds not sorted: %v", a)
	a[0] = "mutated"

	assert.NotEqual(t, a, ListKinds(), "ListKinds returned same slice; want snapshot copy")
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	assert.ErrorIs(t, err, want)
}

func TestBuildOrphanCountSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fk      ddl.ForeignKey
		want    string
		wantErr bool
	}{
		{
			name: "single column",
			fk:   ddl.ForeignKey{Columns: []string{"UserId"}, RefTable: "Users", RefColumns: []string{"Id"}},
			want: `SELECT COUNT(*) FROM "Badges" c WHERE c."UserId" IS NOT NULL AND NOT EXISTS (SELECT 1 FROM "Users" p WHERE p."Id" = c."UserId")`,
		},
		{
			name:    "mismatched columns",
			fk:      ddl.ForeignKey{Columns: []string{"A", "B"}, RefTable: "Users", RefColumns: []string{"Id"}},
			wantErr: true,
		},
		{
			name:    "missing ref table",
			fk:      ddl.ForeignKey{Columns: []string{"A"}, RefColumns: []string{"Id"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildOrphanCountSQL(ddl.Generic{}, "Badges", tt.fk)
			if tt.wantErr {
				assert.Error(t, err, "got %q", got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckForeignKeys(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	repo.count = 4
	tables := []ddl.TableDef{
		{FQN: "Users"},
		{FQN: "Badges", ForeignKeys: []ddl.ForeignKey{
			{Columns: []string{"UserId"}, RefTable: "Users", RefColumns: []string{"Id"}},
		}},
	}

	got, err := CheckForeignKeys(context.Background(), repo, tables)
	require.NoError(t, err)
	require.Len(t, repo.queries, 1)
	assert.Contains(t, repo.queries[0], `FROM "Badges" c`)
	require.Len(t, got, 1)
	assert.Equal(t, "Badges", got[0].Table)
	assert.EqualValues(t, 4, got[0].Count)

	repo.count = 0
	got, err = CheckForeignKeys(context.Background(), repo, tables)
	require.NoError(t, err)
	assert.Empty(t, got, "clean store")
}
