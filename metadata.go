package jarir

import (
	"strings"
)

// PackageMetadata is the descriptive metadata of a written EPUB.
type PackageMetadata struct {
	// Version is the OPF version attribute (e.g., "3.0").
	Version string

	// Identifier is the value of the element named by unique-identifier,
	// or the first identifier.
	Identifier string

	// Title is the first non-empty dc:title.
	Title string

	// Authors lists dc:creator values in document order.
	Authors []string

	// Language is the first non-empty dc:language.
	Language string

	// Modified is the dcterms:modified timestamp, if any.
	Modified string
}

// extractMetadata converts the raw OPF metadata into PackageMetadata.
func extractMetadata(opf *opfPackage) PackageMetadata {
	md := PackageMetadata{Version: opf.Version}
	om := &opf.Metadata

	md.Title = firstValue(om.Titles)
	md.Language = firstValue(om.Languages)

	for _, c := range om.Creators {
		if v := strings.TrimSpace(c.Value); v != "" {
			md.Authors = append(md.Authors, v)
		}
	}

	for _, id := range om.Identifiers {
		v := strings.TrimSpace(id.Value)
		if v == "" {
			continue
		}
		if id.ID == opf.UniqueIdentifier {
			md.Identifier = v
			break
		}
		if md.Identifier == "" {
			md.Identifier = v
		}
	}

	for _, m := range om.Metas {
		if m.Property == "dcterms:modified" && m.Refines == "" {
			md.Modified = strings.TrimSpace(m.Value)
			break
		}
	}
	return md
}

// firstValue returns the first non-empty trimmed element value.
func firstValue(elems []opfDCElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
