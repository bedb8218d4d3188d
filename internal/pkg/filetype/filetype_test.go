package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_KnownExtensions(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		text        bool
		markup      bool
	}{
		{"index.html", "text/html", true, true},
		{"shared/PAGE.HTM", "text/html", true, true},
		{"js/app.js", "application/javascript", true, false},
		{"imsmanifest.xml", "application/xml", true, false},
		{"img/logo.svg", "image/svg+xml", true, false},
		{"img/logo.png", "image/png", false, false},
		{"media/intro.mp4", "video/mp4", false, false},
		{"fonts/a.woff2", "font/woff2", false, false},
		{"docs/guide.pdf", "application/pdf", false, false},
	}

	for _, tc := range cases {
		typ, ok := Lookup(tc.name)
		if !ok {
			t.Fatalf("expected %s to be allowed", tc.name)
		}
		assert.Equal(t, tc.contentType, typ.ContentType, tc.name)
		assert.Equal(t, tc.text, typ.IsText(), tc.name)
		assert.Equal(t, tc.markup, typ.IsMarkup(), tc.name)
	}
}

func TestContentType_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, DefaultContentType, ContentType("payload.exe"))
	assert.Equal(t, DefaultContentType, ContentType("README"))
	assert.False(t, Allowed("payload.exe"))
	assert.False(t, Allowed("Makefile"))
}

func TestTable_EveryExtensionAllowed(t *testing.T) {
	for ext := range table {
		if !Allowed("file" + ext) {
			t.Fatalf("extension %s listed but not allowed", ext)
		}
	}
}
