// Package datasource names the contract for opening record source bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens the byte stream of one source file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
