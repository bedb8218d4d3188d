// Package archivetest builds in-memory zip archives for tests.
package archivetest

import (
	"archive/zip"
	"bytes"
	"testing"
)

// Entry is one file (or directory, when Name ends with "/") to write.
type Entry struct {
	Name string
	Body string
}

// Build writes entries into a zip archive in the given order.
func Build(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if e.Body == "" {
			continue
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Manifest returns a minimal SCORM 1.2 manifest launching href.
func Manifest(title, href string, files ...string) string {
	var fileTags bytes.Buffer
	for _, f := range files {
		fileTags.WriteString(`<file href="` + f + `"/>`)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="pkg-1" version="1.0"
  xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2"
  xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
  <metadata>
    <schema>ADL SCORM</schema>
    <schemaversion>1.2</schemaversion>
  </metadata>
  <organizations default="org-1">
    <organization identifier="org-1">
      <title>` + title + `</title>
      <item identifier="item-1" identifierref="res-1">
        <title>Lesson 1</title>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="res-1" type="webcontent" adlcp:scormtype="sco" href="` + href + `">
      ` + fileTags.String() + `
    </resource>
  </resources>
</manifest>`
}
