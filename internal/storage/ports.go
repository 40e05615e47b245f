// Package storage provides key-value blob stores that hold the serialized
// loan collection: in memory, on the filesystem, in SQLite and in Postgres.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore reads and writes whole values by key. Writes replace the
// previous value; the last write wins.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
