// Package archive opens uploaded zip packages and exposes named-entry lookup
// and extraction. It also carries the pre-extraction security checks.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrInvalidArchive = errors.New("file is not a valid zip archive")
	ErrEntryNotFound  = errors.New("archive entry not found")
	ErrEntryTooLarge  = errors.New("archive entry exceeds read limit")
)

// File is one entry of an opened archive.
type File struct {
	// Name is the normalized slash-separated path used for lookups.
	Name string
	// RawName is the path exactly as stored in the zip central directory.
	RawName string
	Size    uint64
	Dir     bool

	zf *zip.File
}

// Open returns a reader over the entry contents.
func (f *File) Open() (io.ReadCloser, error) {
	if f.Dir {
		return nil, fmt.Errorf("open %s: is a directory", f.Name)
	}
	return f.zf.Open()
}

// Reader is an opened zip archive.
type Reader struct {
	files []*File
	index map[string]*File
	size  int64
}

// Open parses the zip central directory of r.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	// With zipinsecurepath=0 the reader is still returned; CheckSecurity rejects those names.
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	ar := &Reader{
		files: make([]*File, 0, len(zr.File)),
		index: make(map[string]*File, len(zr.File)),
		size:  size,
	}
	for _, zf := range zr.File {
		f := &File{
			Name:    NormalizeName(zf.Name),
			RawName: zf.Name,
			Size:    zf.UncompressedSize64,
			Dir:     zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/"),
			zf:      zf,
		}
		ar.files = append(ar.files, f)
		if _, dup := ar.index[f.Name]; !dup {
			ar.index[f.Name] = f
		}
	}
	return ar, nil
}

// Size is the byte size of the archive itself.
func (r *Reader) Size() int64 { return r.size }

// Files returns every entry, directories included, in central-directory order.
func (r *Reader) Files() []*File { return r.files }

// Regular returns the non-directory entries.
func (r *Reader) Regular() []*File {
	out := make([]*File, 0, len(r.files))
	for _, f := range r.files {
		if !f.Dir {
			out = append(out, f)
		}
	}
	return out
}

// Lookup finds a non-directory entry by its normalized name.
func (r *Reader) Lookup(name string) (*File, bool) {
	f, ok := r.index[NormalizeName(name)]
	if !ok || f.Dir {
		return nil, false
	}
	return f, true
}

// LookupFold is Lookup with case-insensitive matching.
func (r *Reader) LookupFold(name string) (*File, bool) {
	if f, ok := r.Lookup(name); ok {
		return f, true
	}
	want := NormalizeName(name)
	for _, f := range r.files {
		if !f.Dir && strings.EqualFold(f.Name, want) {
			return f, true
		}
	}
	return nil, false
}

// ReadFile reads a whole entry, refusing entries larger than limit bytes.
func (r *Reader) ReadFile(name string, limit int64) ([]byte, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	if limit > 0 && f.Size > uint64(limit) {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if limit > 0 {
		src = io.LimitReader(rc, limit+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, name)
	}
	return b, nil
}

// NormalizeName converts a stored entry name into the slash-separated
// relative form used for lookups and storage keys.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean("/" + name)
	return strings.TrimPrefix(cleaned, "/")
}
