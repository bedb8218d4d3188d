package scorm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"scormhub/internal/pkg/archive"
	"scormhub/internal/pkg/filetype"
	"scormhub/internal/pkg/session"
	"scormhub/internal/pkg/storage"
)

// Headers sent with every proxied file.
const (
	ContentCacheControl = "private, max-age=3600"

	// ContentSecurityPolicy lets self-contained SCORM markup run its inline
	// scripts while keeping connections and framing same-origin.
	ContentSecurityPolicy = "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline' 'unsafe-eval'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: blob:; " +
		"media-src 'self' data: blob:; " +
		"font-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'self'"
)

// maxTextBytes caps how much of a text file is buffered for re-encoding.
// Larger text files are streamed as-is.
const maxTextBytes = 8 << 20

// Content is one resolved package file. Callers must close Body.
type Content struct {
	Package     *Package
	Path        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
	Markup      bool
	Text        bool
}

// ContentService resolves proxy paths to stored package files.
type ContentService struct {
	repo  PackageRepository
	store storage.ObjectStore
}

func NewContentService(repo PackageRepository, store storage.ObjectStore) *ContentService {
	return &ContentService{repo: repo, store: store}
}

// Open resolves "{organizationId}/{packageId}/{file...}". The package must
// belong to the named organization and the caller must be a member of it;
// any mismatch is reported as ErrPackageNotFound.
func (s *ContentService) Open(ctx context.Context, user session.User, logicalPath string) (*Content, error) {
	segs := splitPath(logicalPath)
	if len(segs) < 3 {
		return nil, ErrInvalidPath
	}
	orgID, pkgID := segs[0], segs[1]
	rel := strings.Join(segs[2:], "/")

	if !user.MemberOf(orgID) {
		return nil, ErrPackageNotFound
	}
	pkg, err := s.repo.GetByIDAndOrg(ctx, pkgID, orgID)
	if err != nil {
		return nil, err
	}
	if pkg.Status != PackageActive && !user.HasRole(session.RoleAdmin, session.RoleInstructor) {
		return nil, ErrPackageNotFound
	}
	if !archive.IsSafePath(rel) {
		return nil, ErrFileNotFound
	}

	obj, err := s.store.Get(ctx, storage.Join(pkg.StoragePath, rel))
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	t, known := filetype.Lookup(rel)
	return &Content{
		Package:     pkg,
		Path:        rel,
		ContentType: filetype.ContentType(rel),
		Size:        obj.Size,
		Body:        obj.Body,
		Markup:      known && t.IsMarkup(),
		Text:        known && t.IsText(),
	}, nil
}

// ReadText buffers a text file and returns it as valid UTF-8 without a byte
// order mark. ok is false when the file is too large to buffer; the reader
// then still yields the complete original bytes.
func (c *Content) ReadText() (text []byte, rest io.Reader, ok bool, err error) {
	buf, err := io.ReadAll(io.LimitReader(c.Body, maxTextBytes+1))
	if err != nil {
		return nil, nil, false, err
	}
	if len(buf) > maxTextBytes {
		return nil, io.MultiReader(bytes.NewReader(buf), c.Body), false, nil
	}
	return DecodeText(buf), nil, true, nil
}

// DecodeText strips a UTF-8 byte order mark and replaces invalid sequences.
func DecodeText(b []byte) []byte {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return b
	}
	return bytes.ToValidUTF8(b, []byte("�"))
}

func splitPath(p string) []string {
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
