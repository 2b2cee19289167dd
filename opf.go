package jarir

import (
	"encoding/xml"
	"fmt"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
)

// --- reading ---

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

// opfMetadata holds the raw metadata elements from the OPF file.
type opfMetadata struct {
	Titles      []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages   []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publishers  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Metas       []opfMeta      `xml:"meta"`
}

// opfDCElement holds a Dublin Core element.
type opfDCElement struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents an ePub 3 <meta property="..."> element.
type opfMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Value    string `xml:",chardata"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	Toc       string            `xml:"toc,attr,omitempty"`
	Direction string            `xml:"page-progression-direction,attr,omitempty"`
	ItemRefs  []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// parseOPF parses the OPF file content and returns the parsed package structure.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(data), &pkg); err != nil {
		return nil, fmt.Errorf("jarir: parse OPF: %w: %w", ErrArchiveFormat, err)
	}
	if pkg.Version == "" {
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// --- writing ---

// opfDocument is the <package> element written into reconstructed EPUBs.
// Dublin Core elements carry the dc prefix declared on <metadata>.
type opfDocument struct {
	XMLName          xml.Name       `xml:"package"`
	Xmlns            string         `xml:"xmlns,attr"`
	Version          string         `xml:"version,attr"`
	UniqueIdentifier string         `xml:"unique-identifier,attr"`
	Dir              string         `xml:"dir,attr,omitempty"`
	Metadata         opfDocMetadata `xml:"metadata"`
	Manifest         opfManifest    `xml:"manifest"`
	Spine            opfSpine       `xml:"spine"`
}

type opfDocMetadata struct {
	XmlnsDC    string       `xml:"xmlns:dc,attr"`
	Identifier opfDocDC     `xml:"dc:identifier"`
	Title      string       `xml:"dc:title"`
	Language   string       `xml:"dc:language"`
	Creators   []string     `xml:"dc:creator"`
	Publisher  string       `xml:"dc:publisher,omitempty"`
	Metas      []opfDocMeta `xml:"meta"`
}

type opfDocDC struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfDocMeta struct {
	Property string `xml:"property,attr,omitempty"`
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Value    string `xml:",chardata"`
}

// marshalOPF renders doc with an XML declaration.
func marshalOPF(doc opfDocument) ([]byte, error) {
	doc.Xmlns = opfNamespace
	doc.Metadata.XmlnsDC = dcNamespace
	if doc.Version == "" {
		doc.Version = "3.0"
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jarir: encode OPF: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
