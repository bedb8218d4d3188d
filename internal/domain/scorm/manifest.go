package scorm

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"scormhub/internal/pkg/archive"
)

// ManifestName is the manifest file every package carries at its root.
const ManifestName = "imsmanifest.xml"

// DefaultEntryPoint is launched when the manifest names nothing launchable.
const DefaultEntryPoint = "index.html"

// maxManifestBytes bounds how much of the archive is read as manifest.
const maxManifestBytes = 10 << 20

// Tags carry no namespace so both the SCORM 1.2 and 2004 schemas match.
type imsManifest struct {
	XMLName    xml.Name         `xml:"manifest"`
	Identifier string           `xml:"identifier,attr"`
	Metadata   imsMetadata      `xml:"metadata"`
	Orgs       imsOrganizations `xml:"organizations"`
	Resources  imsResources     `xml:"resources"`
}

type imsMetadata struct {
	Schema        string `xml:"schema"`
	SchemaVersion string `xml:"schemaversion"`
	LOM           imsLOM `xml:"lom"`
}

type imsLOM struct {
	Title       imsLangString `xml:"general>title"`
	Description imsLangString `xml:"general>description"`
}

// imsLangString covers both <langstring> (1.2) and <string> (2004) children.
type imsLangString struct {
	LangStrings []string `xml:"langstring"`
	Strings     []string `xml:"string"`
}

func (s imsLangString) Text() string {
	for _, v := range append(s.LangStrings, s.Strings...) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type imsOrganizations struct {
	Default string            `xml:"default,attr"`
	List    []imsOrganization `xml:"organization"`
}

type imsOrganization struct {
	Identifier string    `xml:"identifier,attr"`
	Title      string    `xml:"title"`
	Items      []imsItem `xml:"item"`
}

type imsItem struct {
	Identifier    string        `xml:"identifier,attr"`
	IdentifierRef string        `xml:"identifierref,attr"`
	Parameters    string        `xml:"parameters,attr"`
	Title         string        `xml:"title"`
	MasteryScore  string        `xml:"masteryscore"`
	Sequencing    imsSequencing `xml:"sequencing"`
	Items         []imsItem     `xml:"item"`
}

type imsSequencing struct {
	Primary    *imsObjective  `xml:"objectives>primaryObjective"`
	Objectives []imsObjective `xml:"objectives>objective"`
}

type imsObjective struct {
	ID string `xml:"objectiveID,attr"`
}

type imsResources struct {
	Base string        `xml:"base,attr"`
	List []imsResource `xml:"resource"`
}

type imsResource struct {
	Identifier    string    `xml:"identifier,attr"`
	Type          string    `xml:"type,attr"`
	Base          string    `xml:"base,attr"`
	Href          string    `xml:"href,attr"`
	ScormType12   string    `xml:"scormtype,attr"`
	ScormType2004 string    `xml:"scormType,attr"`
	Files         []imsFile `xml:"file"`
}

type imsFile struct {
	Href string `xml:"href,attr"`
}

// ReadManifest locates imsmanifest.xml at the archive root (any letter case)
// and parses it.
func ReadManifest(r *archive.Reader) (Manifest, error) {
	f, ok := r.LookupFold(ManifestName)
	if !ok {
		return Manifest{}, ErrManifestNotFound
	}
	data, err := r.ReadFile(f.Name, maxManifestBytes)
	if err != nil {
		return Manifest{}, &ManifestError{Reason: "manifest could not be read", Err: err}
	}
	return ParseManifest(data)
}

// ParseManifest turns raw manifest bytes into a Manifest. Optional fields
// default to empty values; only unparseable XML or a missing usable entry
// point is an error.
func ParseManifest(data []byte) (Manifest, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, &ManifestError{Reason: "manifest is empty"}
	}

	var doc imsManifest
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = passthroughCharset
	if err := dec.Decode(&doc); err != nil {
		return Manifest{}, &ManifestError{Reason: "manifest is not well-formed XML", Err: err}
	}

	m := Manifest{
		Identifier:          doc.Identifier,
		Description:         doc.Metadata.LOM.Description.Text(),
		Version:             detectVersion(doc),
		DefaultOrganization: doc.Orgs.Default,
		Objectives:          []Objective{},
		Resources:           make([]Resource, 0, len(doc.Resources.List)),
		Organizations:       make([]Organization, 0, len(doc.Orgs.List)),
	}

	for _, r := range doc.Resources.List {
		base := doc.Resources.Base + r.Base
		res := Resource{
			Identifier: r.Identifier,
			Type:       r.Type,
			ScormType:  strings.ToLower(firstNonEmpty(r.ScormType12, r.ScormType2004)),
			Files:      make([]string, 0, len(r.Files)),
		}
		if r.Href != "" {
			res.Href = cleanHref(withBase(base, r.Href))
		}
		for _, f := range r.Files {
			if f.Href != "" {
				res.Files = append(res.Files, cleanHref(withBase(base, f.Href)))
			}
		}
		m.Resources = append(m.Resources, res)
	}

	for _, o := range doc.Orgs.List {
		org := Organization{Identifier: o.Identifier, Title: strings.TrimSpace(o.Title)}
		org.Items = convertItems(o.Items, &m.Objectives)
		m.Organizations = append(m.Organizations, org)
	}

	m.Title = manifestTitle(m, doc)

	entry, err := resolveEntryPoint(m)
	if err != nil {
		return Manifest{}, err
	}
	m.EntryPoint = entry
	return m, nil
}

func convertItems(in []imsItem, objectives *[]Objective) []Item {
	if len(in) == 0 {
		return nil
	}
	out := make([]Item, 0, len(in))
	for _, it := range in {
		title := strings.TrimSpace(it.Title)
		if p := it.Sequencing.Primary; p != nil && p.ID != "" {
			*objectives = append(*objectives, Objective{ID: p.ID, Description: title, Primary: true})
		}
		for _, o := range it.Sequencing.Objectives {
			if o.ID != "" {
				*objectives = append(*objectives, Objective{ID: o.ID, Description: title})
			}
		}
		out = append(out, Item{
			Identifier:    it.Identifier,
			Title:         title,
			IdentifierRef: it.IdentifierRef,
			Parameters:    it.Parameters,
			MasteryScore:  strings.TrimSpace(it.MasteryScore),
			Children:      convertItems(it.Items, objectives),
		})
	}
	return out
}

func detectVersion(doc imsManifest) Version {
	v := strings.ToLower(strings.TrimSpace(doc.Metadata.SchemaVersion))
	switch {
	case v == "1.2":
		return Version12
	case strings.Contains(v, "2004"), strings.Contains(v, "1.3"):
		return Version2004
	}
	for _, r := range doc.Resources.List {
		if r.ScormType2004 != "" {
			return Version2004
		}
	}
	return Version12
}

func manifestTitle(m Manifest, doc imsManifest) string {
	if org := defaultOrganization(m); org != nil && org.Title != "" {
		return org.Title
	}
	for _, o := range m.Organizations {
		if o.Title != "" {
			return o.Title
		}
	}
	return doc.Metadata.LOM.Title.Text()
}

func defaultOrganization(m Manifest) *Organization {
	for i := range m.Organizations {
		if m.Organizations[i].Identifier == m.DefaultOrganization {
			return &m.Organizations[i]
		}
	}
	if len(m.Organizations) > 0 {
		return &m.Organizations[0]
	}
	return nil
}

func resolveEntryPoint(m Manifest) (string, error) {
	byID := make(map[string]Resource, len(m.Resources))
	for _, r := range m.Resources {
		byID[r.Identifier] = r
	}

	entry := ""
	if org := defaultOrganization(m); org != nil {
		entry = firstLaunchable(org.Items, byID)
	}
	if entry == "" {
		for _, r := range m.Resources {
			if r.ScormType == "sco" && r.Href != "" {
				entry = r.Href
				break
			}
		}
	}
	if entry == "" {
		for _, r := range m.Resources {
			if r.Href != "" {
				entry = r.Href
				break
			}
		}
	}
	if entry == "" {
		entry = DefaultEntryPoint
	}

	if isExternal(entry) || !archive.IsSafePath(stripQuery(entry)) {
		return "", &ManifestError{Reason: "no usable entry point"}
	}
	return entry, nil
}

func firstLaunchable(items []Item, byID map[string]Resource) string {
	for _, it := range items {
		if r, ok := byID[it.IdentifierRef]; ok && r.Href != "" {
			return withParameters(r.Href, it.Parameters)
		}
		if href := firstLaunchable(it.Children, byID); href != "" {
			return href
		}
	}
	return ""
}

func withBase(base, href string) string {
	if base == "" || isExternal(href) {
		return href
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(href, "./")
}

func withParameters(href, params string) string {
	params = strings.TrimSpace(params)
	switch {
	case params == "":
		return href
	case strings.HasPrefix(params, "#"):
		return href + params
	case strings.HasPrefix(params, "?"):
		if strings.Contains(href, "?") {
			return href + "&" + params[1:]
		}
		return href + params
	case strings.Contains(href, "?"):
		return href + "&" + params
	default:
		return href + "?" + params
	}
}

// cleanHref normalizes the path part of a safe relative href and leaves
// anything else untouched for the structure check to report.
func cleanHref(href string) string {
	p := stripQuery(href)
	if isExternal(href) || !archive.IsSafePath(p) {
		return href
	}
	return archive.NormalizeName(p) + href[len(p):]
}

// stripQuery drops any query string or fragment from a manifest href.
func stripQuery(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}

func isExternal(href string) bool {
	h := strings.ToLower(href)
	return strings.HasPrefix(h, "//") || strings.Contains(h, "://") ||
		strings.HasPrefix(h, "data:") || strings.HasPrefix(h, "javascript:")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// passthroughCharset accepts the single-byte encodings authoring tools
// commonly declare; manifest content is ASCII in practice.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
