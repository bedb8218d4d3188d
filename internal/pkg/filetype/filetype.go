// Package filetype is the single table of file extensions a SCORM package may
// contain. The upload allow-list and the content proxy both read from it.
package filetype

import (
	"path"
	"strings"
)

// DefaultContentType is served for extensions the table does not know.
const DefaultContentType = "application/octet-stream"

// Kind groups extensions by how the content proxy treats them.
type Kind string

const (
	KindMarkup   Kind = "markup"
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindFont     Kind = "font"
	KindDocument Kind = "document"
)

// Type describes one allowed extension.
type Type struct {
	Ext         string
	ContentType string
	Kind        Kind
}

// IsText reports whether the proxy should decode the file as UTF-8 text.
func (t Type) IsText() bool {
	return t.Kind == KindMarkup || t.Kind == KindText || t.Ext == ".svg"
}

// IsMarkup reports whether the file is an HTML document.
func (t Type) IsMarkup() bool { return t.Kind == KindMarkup }

var table = map[string]Type{}

func register(kind Kind, contentType string, exts ...string) {
	for _, ext := range exts {
		table[ext] = Type{Ext: ext, ContentType: contentType, Kind: kind}
	}
}

func init() {
	register(KindMarkup, "text/html", ".html", ".htm")
	register(KindText, "application/javascript", ".js", ".mjs")
	register(KindText, "text/css", ".css")
	register(KindText, "application/json", ".json")
	register(KindText, "application/xml", ".xml", ".xsd", ".dtd")
	register(KindText, "text/plain", ".txt")

	register(KindImage, "image/png", ".png")
	register(KindImage, "image/jpeg", ".jpg", ".jpeg")
	register(KindImage, "image/gif", ".gif")
	register(KindImage, "image/svg+xml", ".svg")
	register(KindImage, "image/webp", ".webp")
	register(KindImage, "image/x-icon", ".ico")
	register(KindImage, "image/bmp", ".bmp")

	register(KindAudio, "audio/mpeg", ".mp3")
	register(KindAudio, "audio/wav", ".wav")
	register(KindAudio, "audio/ogg", ".ogg", ".oga")
	register(KindAudio, "audio/mp4", ".m4a")

	register(KindVideo, "video/mp4", ".mp4", ".m4v")
	register(KindVideo, "video/webm", ".webm")
	register(KindVideo, "video/ogg", ".ogv")

	register(KindFont, "font/woff", ".woff")
	register(KindFont, "font/woff2", ".woff2")
	register(KindFont, "font/ttf", ".ttf")
	register(KindFont, "font/otf", ".otf")
	register(KindFont, "application/vnd.ms-fontobject", ".eot")

	register(KindDocument, "application/pdf", ".pdf")
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// Lookup returns the table entry for the extension of name.
func Lookup(name string) (Type, bool) {
	t, ok := table[Ext(name)]
	return t, ok
}

// Allowed reports whether name has an extension the platform can serve.
func Allowed(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// ContentType returns the MIME type for name, falling back to DefaultContentType.
func ContentType(name string) string {
	if t, ok := Lookup(name); ok {
		return t.ContentType
	}
	return DefaultContentType
}
