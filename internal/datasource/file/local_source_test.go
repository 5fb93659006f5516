package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"sotorrent/internal/loaderr"
)

// TestLocalOpen covers success, missing file, and pre-canceled context.
// Table-driven to make behavior clear and extensible.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string // returns path to open
		makeCtx         func(t *testing.T) context.Context
		wantErrIs       error  // checked via errors.Is
		wantErrContains string // substring expected in error message
		wantContent     string // if non-empty, verifies read content on success
	}

	cases := []tc{
		{
			name: "success_reads_content",
			prepare: func(t *testing.T) string {
				t.Helper()
				dir := t.TempDir()
				p := filepath.Join(dir, "Users.xml")
				const payload = "<users>\n<row Id=\"1\"/>\n</users>"
				require.NoError(t, os.WriteFile(p, []byte(payload), 0o644))
				return p
			},
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: "<users>\n<row Id=\"1\"/>\n</users>",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "Votes.xml")
			},
			makeCtx:         func(t *testing.T) context.Context { return context.Background() },
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name: "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string {
				t.Helper()
				dir := t.TempDir()
				p := filepath.Join(dir, "data.txt")
				require.NoError(t, os.WriteFile(p, []byte("ignored"), 0o644))
				return p
			},
			makeCtx: func(t *testing.T) context.Context {
				t.Helper()
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := c.prepare(t)
			ctx := c.makeCtx(t)

			rc, err := NewLocal(path).Open(ctx)

			// Error expectations.
			if c.wantErrIs != nil {
				require.ErrorIs(t, err, c.wantErrIs)
				if c.wantErrContains != "" {
					assert.ErrorContains(t, err, c.wantErrContains)
				}
				if errors.Is(err, os.ErrNotExist) {
					var ioErr *loaderr.IOError
					require.ErrorAs(t, err, &ioErr)
					assert.Equal(t, path, ioErr.Path)
				}
				// Ensure no ReadCloser was returned on error.
				if !assert.Nil(t, rc) {
					_ = rc.Close()
				}
				return
			}

			// Success expectations.
			require.NoError(t, err)
			defer rc.Close()

			if c.wantContent != "" {
				got, rerr := io.ReadAll(rc)
				require.NoError(t, rerr)
				assert.Equal(t, c.wantContent, string(got))
			}
		})
	}
}

func TestReaderDigest(t *testing.T) {
	t.Parallel()

	payload := []byte("Id,PostId\n1,2\n")
	p := filepath.Join(t.TempDir(), "PostVersion.csv")
	require.NoError(t, os.WriteFile(p, payload, 0o644))

	r, err := NewLocal(p).OpenReader(context.Background())
	require.NoError(t, err)
	defer r.Close()

	// Small reads exercise incremental hashing.
	buf := make([]byte, 3)
	for {
		_, err := r.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, xxh3.Hash(payload), r.Digest())
	assert.Equal(t, int64(len(payload)), r.BytesRead())
	assert.Equal(t, p, NewLocal(p).Path())
}

func TestReaderWrapsReadErrors(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("directories cannot be opened for reading on windows")
	}

	dir := t.TempDir()
	r, err := NewLocal(dir).OpenReader(context.Background())
	require.NoError(t, err, "OpenReader(dir)")
	defer r.Close()

	_, err = r.Read(make([]byte, 16))
	var ioErr *loaderr.IOError
	require.ErrorAs(t, err, &ioErr, "read of directory")
	assert.Equal(t, dir, ioErr.Path)
}

// BenchmarkLocalOpen_Success measures the steady-state cost of opening a small file.
// We open and immediately close to isolate os.Open + descriptor work.
func BenchmarkLocalOpen_Success(b *testing.B) {
	dir := b.TempDir()
	p := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLocalOpen_Missing measures the cost of failing fast on missing files.
// Useful to ensure the error path doesn't allocate excessively.
func BenchmarkLocalOpen_Missing(b *testing.B) {
	p := filepath.Join(b.TempDir(), "missing.txt")
	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err == nil {
			rc.Close()
			b.Fatal("expected error, got nil")
		}
	}
}

// BenchmarkLocalOpen_PreCanceled measures short-circuit cost when the context
// is already canceled at call time (the common cancellation case).
func BenchmarkLocalOpen_PreCanceled(b *testing.B) {
	dir := b.TempDir()
	p := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewLocal(p)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err == nil {
			rc.Close()
			b.Fatal("expected context error, got nil")
		}
	}
}
