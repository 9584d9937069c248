// Package storage defines the BlobStore interface for meeting artifacts and
// its backends: local disk, in-memory, Amazon S3 (or any S3-compatible
// store) and Supabase Storage.
//
// Paths are forward-slash separated and relative to the store root, for
// example "meeting_20250101_120000/individuals/42.mp3".
package storage

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/haivivi/meetrec/pkg/meeterr"
)

// Object describes one stored blob returned by List.
type Object struct {
	// Name is the path relative to the listed prefix.
	Name string
	Size int64
}

// BlobStore stores named byte blobs.
//
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put stores data at path, replacing any existing blob.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Get returns the blob at path. A missing blob yields an error wrapping
	// os.ErrNotExist.
	Get(ctx context.Context, path string) ([]byte, error)

	// List returns the blobs directly under prefix, sorted by name.
	// Names are relative to prefix. A missing prefix yields an empty list.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
}

func wrap(op, p string, err error) error {
	if err == nil {
		return nil
	}
	return &meeterr.StorageError{Op: op, Path: p, Err: err}
}

func notExist(op, p string) error {
	return wrap(op, p, os.ErrNotExist)
}

// dirPrefix normalizes a listing prefix to "a/b/" form.
func dirPrefix(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// direct reports the first path element of name when name lies directly
// under prefix (no further slash).
func direct(prefix, name string) (string, bool) {
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func sortObjects(objs []Object) []Object {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Name < objs[j].Name })
	return objs
}
