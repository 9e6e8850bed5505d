// Package storage abstracts the object store that holds HR documents.
// Folders are represented as zero-byte marker objects whose key ends in "/",
// so a "directory" exists exactly when its marker (or the key itself) does.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the narrow interface the handlers use to talk to the
// blob store. The database row is the source of truth; implementations
// only keep keys in lockstep with what the handlers tell them.
type ObjectStore interface {
	// Exists reports whether an object exists at key, or a directory
	// marker exists at key + "/".
	Exists(ctx context.Context, key string) (bool, error)

	// MakeDirectory creates a zero-byte marker object at prefix + "/".
	MakeDirectory(ctx context.Context, prefix string) error

	// Put writes the object bytes at key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes the object at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix, markers included.
	DeletePrefix(ctx context.Context, prefix string) error

	// PresignGet returns a time-limited URL for downloading the object.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
