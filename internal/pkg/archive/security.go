package archive

import (
	"fmt"
	"strings"

	"scormhub/internal/pkg/filetype"
)

const (
	DefaultMaxEntries           = 10000
	DefaultMaxUncompressedBytes = 100 * 1024 * 1024
)

// Limits bounds what an archive may expand to.
type Limits struct {
	MaxEntries           int
	MaxUncompressedBytes uint64
}

// DefaultLimits matches the 100 MB upload ceiling.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries:           DefaultMaxEntries,
		MaxUncompressedBytes: DefaultMaxUncompressedBytes,
	}
}

// SecurityError describes the first security violation found in an archive.
type SecurityError struct {
	Reason string
	Entry  string
}

func (e *SecurityError) Error() string {
	if e.Entry == "" {
		return "security check failed: " + e.Reason
	}
	return fmt.Sprintf("security check failed: %s (%s)", e.Reason, e.Entry)
}

// CheckSecurity runs the pre-extraction checks in order and stops at the
// first failure: path traversal, entry count and total size, extension
// allow-list.
func CheckSecurity(r *Reader, limits Limits) error {
	for _, f := range r.files {
		if !IsSafePath(f.RawName) {
			return &SecurityError{Reason: "entry path escapes the package root", Entry: f.RawName}
		}
	}

	if limits.MaxEntries > 0 && len(r.files) > limits.MaxEntries {
		return &SecurityError{Reason: fmt.Sprintf("archive has %d entries, limit is %d", len(r.files), limits.MaxEntries)}
	}

	var total uint64
	for _, f := range r.files {
		total += f.Size
		if limits.MaxUncompressedBytes > 0 && total > limits.MaxUncompressedBytes {
			return &SecurityError{Reason: fmt.Sprintf("uncompressed size exceeds %d MB", limits.MaxUncompressedBytes/(1024*1024))}
		}
	}

	for _, f := range r.files {
		if f.Dir {
			continue
		}
		if !filetype.Allowed(f.Name) {
			return &SecurityError{Reason: "file type is not allowed", Entry: f.Name}
		}
	}
	return nil
}

// IsSafePath reports whether a stored entry name stays inside the package
// root: relative, no ".." segment, no drive letter, no NUL byte.
func IsSafePath(name string) bool {
	if name == "" || strings.ContainsRune(name, 0) {
		return false
	}
	p := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return false
	}
	if len(p) >= 2 && p[1] == ':' {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
