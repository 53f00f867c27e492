package storage

import (
	"context"
	"io"
	"path"
	"time"
)

// Package storage holds the content-addressed object vault backing document
// ingestion and export. Implementations stream all I/O; no object is ever
// buffered fully in memory.

// ContentKey returns the vault key for a SHA-256 hex digest. Identical
// content always maps to the same key, which is what deduplicates storage:
// a second ingestion of the same bytes reuses the stored object.
func ContentKey(sha256Hex string) string {
	return path.Join("content", "sha256", sha256Hex)
}

// PutObjectOptions define optional parameters for uploading objects.
// Size must be the exact byte count when known; -1 lets the backend chunk.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ContentStore is the object vault interface. Keys are opaque to the store;
// callers derive them with ContentKey.
type ContentStore interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader plus its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without fetching content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignGet returns a time-limited URL for downloading the object
	// without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
