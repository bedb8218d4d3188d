package scorm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scormhub/internal/pkg/archive"
	"scormhub/internal/pkg/archive/archivetest"
)

func openArchive(t *testing.T, entries ...archivetest.Entry) *archive.Reader {
	t.Helper()
	data := archivetest.Build(t, entries...)
	r, err := archive.Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r
}

func TestValidateStructure_OK(t *testing.T) {
	r := openArchive(t,
		archivetest.Entry{Name: "imsmanifest.xml", Body: "<manifest/>"},
		archivetest.Entry{Name: "index.html", Body: "x"},
		archivetest.Entry{Name: "img/my logo.png", Body: "x"},
	)
	m := Manifest{
		EntryPoint: "index.html?lang=en",
		Resources: []Resource{{
			Identifier: "res-1",
			Href:       "index.html",
			Files:      []string{"index.html", "img/my%20logo.png", "https://cdn.example.com/lib.js"},
		}},
	}
	assert.NoError(t, ValidateStructure(r, m))
}

func TestValidateStructure_MissingEntryPoint(t *testing.T) {
	r := openArchive(t, archivetest.Entry{Name: "other.html", Body: "x"})
	err := ValidateStructure(r, Manifest{EntryPoint: "index.html"})

	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "index.html", se.Path)
	assert.True(t, IsValidation(err))
}

func TestValidateStructure_MissingResourceFile(t *testing.T) {
	r := openArchive(t, archivetest.Entry{Name: "index.html", Body: "x"})
	err := ValidateStructure(r, Manifest{
		EntryPoint: "index.html",
		Resources:  []Resource{{Identifier: "res-1", Href: "index.html", Files: []string{"missing.js"}}},
	})

	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "missing.js", se.Path)
	assert.Contains(t, err.Error(), "res-1")
}

func TestValidateStructure_EscapingResource(t *testing.T) {
	r := openArchive(t, archivetest.Entry{Name: "index.html", Body: "x"})
	err := ValidateStructure(r, Manifest{
		EntryPoint: "index.html",
		Resources:  []Resource{{Identifier: "res-1", Files: []string{"../secret.js"}}},
	})

	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Reason, "escapes")
}
