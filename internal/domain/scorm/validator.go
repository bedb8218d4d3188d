package scorm

import (
	"fmt"
	"net/url"

	"scormhub/internal/pkg/archive"
)

// ValidateStructure checks that the entry point and every file the manifest
// declares are present in the archive. External URLs are not checked.
func ValidateStructure(r *archive.Reader, m Manifest) error {
	entry := stripQuery(m.EntryPoint)
	if !hasEntry(r, entry) {
		return &StructureError{
			Reason: fmt.Sprintf("entry point %q not found in package", entry),
			Path:   entry,
		}
	}

	for _, res := range m.Resources {
		refs := make([]string, 0, len(res.Files)+1)
		if res.Href != "" {
			refs = append(refs, res.Href)
		}
		refs = append(refs, res.Files...)

		for _, ref := range refs {
			if isExternal(ref) {
				continue
			}
			p := stripQuery(ref)
			if !archive.IsSafePath(p) {
				return &StructureError{
					Reason: fmt.Sprintf("resource %q path %q escapes the package root", res.Identifier, p),
					Path:   p,
				}
			}
			if !hasEntry(r, p) {
				return &StructureError{
					Reason: fmt.Sprintf("resource %q references missing file %q", res.Identifier, p),
					Path:   p,
				}
			}
		}
	}
	return nil
}

// hasEntry also accepts percent-encoded hrefs, which some authoring tools emit.
func hasEntry(r *archive.Reader, p string) bool {
	if p == "" {
		return false
	}
	if _, ok := r.Lookup(p); ok {
		return true
	}
	if dec, err := url.PathUnescape(p); err == nil && dec != p {
		_, ok := r.Lookup(dec)
		return ok
	}
	return false
}
