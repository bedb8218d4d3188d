package archive_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scormhub/internal/pkg/archive"
	"scormhub/internal/pkg/archive/archivetest"
)

func open(t *testing.T, data []byte) *archive.Reader {
	t.Helper()
	r, err := archive.Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r
}

func TestOpen_RejectsNonZip(t *testing.T) {
	data := []byte("definitely not a zip file")
	_, err := archive.Open(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, archive.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestReader_LookupAndRead(t *testing.T) {
	r := open(t, archivetest.Build(t,
		archivetest.Entry{Name: "content/"},
		archivetest.Entry{Name: "./index.html", Body: "<h1>hi</h1>"},
		archivetest.Entry{Name: `content\page.html`, Body: "page"},
	))

	assert.Len(t, r.Files(), 3)
	assert.Len(t, r.Regular(), 2)

	_, ok := r.Lookup("content")
	assert.False(t, ok, "directories are not returned by Lookup")

	body, err := r.ReadFile("index.html", 1024)
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(body))

	f, ok := r.Lookup("content/page.html")
	require.True(t, ok)
	assert.Equal(t, `content\page.html`, f.RawName)

	_, ok = r.LookupFold("INDEX.HTML")
	assert.True(t, ok)
}

func TestReader_ReadFileLimits(t *testing.T) {
	r := open(t, archivetest.Build(t, archivetest.Entry{Name: "big.txt", Body: "0123456789"}))

	_, err := r.ReadFile("big.txt", 4)
	assert.ErrorIs(t, err, archive.ErrEntryTooLarge)

	_, err = r.ReadFile("missing.txt", 4)
	assert.ErrorIs(t, err, archive.ErrEntryNotFound)
}

func TestCheckSecurity_Traversal(t *testing.T) {
	names := []string{"../../etc/passwd", "/etc/passwd", `..\evil.html`, "C:/windows/x.html", "a/../../b.html"}
	for _, name := range names {
		r := open(t, archivetest.Build(t,
			archivetest.Entry{Name: "index.html", Body: "ok"},
			archivetest.Entry{Name: name, Body: "x"},
		))
		err := archive.CheckSecurity(r, archive.DefaultLimits())
		var secErr *archive.SecurityError
		if !errors.As(err, &secErr) {
			t.Fatalf("expected SecurityError for %q, got %v", name, err)
		}
		assert.Contains(t, secErr.Reason, "escapes")
	}
}

func TestCheckSecurity_TraversalCheckedBeforeExtensions(t *testing.T) {
	r := open(t, archivetest.Build(t,
		archivetest.Entry{Name: "tool.exe", Body: "x"},
		archivetest.Entry{Name: "../x.html", Body: "x"},
	))
	var secErr *archive.SecurityError
	require.ErrorAs(t, archive.CheckSecurity(r, archive.DefaultLimits()), &secErr)
	assert.Equal(t, "../x.html", secErr.Entry)
}

func TestCheckSecurity_EntryCountAndSize(t *testing.T) {
	r := open(t, archivetest.Build(t,
		archivetest.Entry{Name: "a.html", Body: "aaaa"},
		archivetest.Entry{Name: "b.html", Body: "bbbb"},
		archivetest.Entry{Name: "c.html", Body: "cccc"},
	))

	err := archive.CheckSecurity(r, archive.Limits{MaxEntries: 2})
	var secErr *archive.SecurityError
	require.ErrorAs(t, err, &secErr)
	assert.Contains(t, secErr.Reason, "entries")

	err = archive.CheckSecurity(r, archive.Limits{MaxEntries: 10, MaxUncompressedBytes: 10})
	require.ErrorAs(t, err, &secErr)
	assert.Contains(t, secErr.Reason, "uncompressed size")

	assert.NoError(t, archive.CheckSecurity(r, archive.Limits{MaxEntries: 10, MaxUncompressedBytes: 12}))
}

func TestCheckSecurity_ExtensionAllowList(t *testing.T) {
	r := open(t, archivetest.Build(t,
		archivetest.Entry{Name: "assets/"},
		archivetest.Entry{Name: "index.html", Body: "ok"},
		archivetest.Entry{Name: "assets/run.sh", Body: "rm -rf /"},
	))
	var secErr *archive.SecurityError
	require.ErrorAs(t, archive.CheckSecurity(r, archive.DefaultLimits()), &secErr)
	assert.Equal(t, "assets/run.sh", secErr.Entry)
}

func TestIsSafePath(t *testing.T) {
	assert.True(t, archive.IsSafePath("index.html"))
	assert.True(t, archive.IsSafePath("a/b/..c.html"))
	assert.False(t, archive.IsSafePath(""))
	assert.False(t, archive.IsSafePath("a/../.."))
	assert.False(t, archive.IsSafePath("bad\x00.html"))
}
