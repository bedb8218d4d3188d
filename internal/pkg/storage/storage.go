// Package storage abstracts the object store that holds extracted package
// files. Keys are slash-separated; a package owns every key under
// "{organization}/{package}/".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Object is an opened stored object. Callers must close Body.
type Object struct {
	Key         string
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// ObjectInfo describes a stored object without opening it.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is implemented by every storage driver.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	// List returns objects under prefix; an empty prefix lists the whole store.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// DeletePrefix removes every object under prefix and reports how many
	// were removed. A prefix holding no objects is not an error; the empty
	// prefix is rejected with ErrInvalidKey.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Driver names accepted by Open.
const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Options selects and configures a driver.
type Options struct {
	Driver   string
	BasePath string
	S3       S3Options
}

// Open builds the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (ObjectStore, error) {
	switch opts.Driver {
	case DriverFS, "":
		return NewFSStore(opts.BasePath)
	case DriverS3:
		return NewS3Store(ctx, opts.S3)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// PackagePrefix is the key prefix owning all files of one package.
func PackagePrefix(organizationID, packageID string) string {
	return organizationID + "/" + packageID
}

// Join builds an object key from a prefix and a package-relative path.
func Join(prefix, rel string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// CleanKey validates a key and returns its canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, 0) || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// listPrefix is cleanPrefix that also admits the empty (whole store) prefix.
func listPrefix(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}
	return cleanPrefix(prefix)
}

func cleanPrefix(prefix string) (string, error) {
	p, err := CleanKey(prefix)
	if err != nil {
		return "", err
	}
	return p + "/", nil
}
