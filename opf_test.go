package jarir

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="isbn">978-0-00-000000-0</dc:identifier>
    <dc:identifier id="pub-id">urn:uuid:1234</dc:identifier>
    <dc:title>  </dc:title>
    <dc:title>كتاب</dc:title>
    <dc:creator>First Author</dc:creator>
    <dc:creator> </dc:creator>
    <dc:creator>Second Author</dc:creator>
    <dc:language>ar</dc:language>
    <meta property="dcterms:modified" refines="#x">ignored</meta>
    <meta property="dcterms:modified">2025-01-02T03:04:05Z</meta>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx" page-progression-direction="rtl">
    <itemref idref="c1"/>
  </spine>
</package>`

func TestParseOPF(t *testing.T) {
	pkg, err := parseOPF([]byte(testOPF))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if pkg.Version != "3.0" || pkg.UniqueIdentifier != "pub-id" {
		t.Errorf("package attrs = %q, %q", pkg.Version, pkg.UniqueIdentifier)
	}
	if len(pkg.Manifest.Items) != 2 || pkg.Manifest.Items[0].Properties != "nav" {
		t.Errorf("manifest = %+v", pkg.Manifest.Items)
	}
	if pkg.Spine.Toc != "ncx" || pkg.Spine.Direction != "rtl" {
		t.Errorf("spine = %+v", pkg.Spine)
	}
	if len(pkg.Spine.ItemRefs) != 1 || pkg.Spine.ItemRefs[0].IDRef != "c1" {
		t.Errorf("itemrefs = %+v", pkg.Spine.ItemRefs)
	}
}

func TestParseOPFDefaults(t *testing.T) {
	pkg, err := parseOPF([]byte(`<package><metadata/></package>`))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q; want 2.0", pkg.Version)
	}

	if _, err := parseOPF([]byte("<package")); !errors.Is(err, ErrArchiveFormat) {
		t.Errorf("parseOPF(malformed) error = %v; want ErrArchiveFormat", err)
	}
}

func TestExtractMetadata(t *testing.T) {
	pkg, err := parseOPF([]byte(testOPF))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	got := extractMetadata(pkg)
	want := PackageMetadata{
		Version:    "3.0",
		Identifier: "urn:uuid:1234",
		Title:      "كتاب",
		Authors:    []string{"First Author", "Second Author"},
		Language:   "ar",
		Modified:   "2025-01-02T03:04:05Z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractMetadata() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestExtractMetadataIdentifierFallback(t *testing.T) {
	pkg, err := parseOPF([]byte(`<package unique-identifier="missing" xmlns:dc="http://purl.org/dc/elements/1.1/"><metadata><dc:identifier>first</dc:identifier><dc:identifier>second</dc:identifier></metadata></package>`))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if got := extractMetadata(pkg).Identifier; got != "first" {
		t.Errorf("Identifier = %q; want %q", got, "first")
	}
}

func TestMarshalOPFRoundTrip(t *testing.T) {
	doc := opfDocument{
		UniqueIdentifier: "bookid",
		Dir:              "rtl",
		Metadata: opfDocMetadata{
			Identifier: opfDocDC{ID: "bookid", Value: "urn:uuid:abc"},
			Title:      "A & B",
			Language:   "ar",
			Creators:   []string{"X", "Y"},
			Metas:      []opfDocMeta{{Property: "dcterms:modified", Value: "2025-01-01T00:00:00Z"}},
		},
		Manifest: opfManifest{Items: []opfManifestItem{{ID: "c1", Href: "c1.xhtml", MediaType: xhtmlMedia}}},
		Spine:    opfSpine{Toc: "ncx", Direction: "rtl", ItemRefs: []opfSpineItemRef{{IDRef: "c1"}}},
	}
	data, err := marshalOPF(doc)
	if err != nil {
		t.Fatalf("marshalOPF: %v", err)
	}
	s := string(data)
	for _, want := range []string{`version="3.0"`, `xmlns="http://www.idpf.org/2007/opf"`, `<dc:title>A &amp; B</dc:title>`, `dir="rtl"`} {
		if !strings.Contains(s, want) {
			t.Errorf("OPF missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "dc:publisher") {
		t.Error("empty publisher was written")
	}

	pkg, err := parseOPF(data)
	if err != nil {
		t.Fatalf("parseOPF(marshalOPF()): %v", err)
	}
	md := extractMetadata(pkg)
	if md.Title != "A & B" || md.Identifier != "urn:uuid:abc" || md.Language != "ar" || md.Modified != "2025-01-01T00:00:00Z" {
		t.Errorf("round-trip metadata = %+v", md)
	}
	if !reflect.DeepEqual(md.Authors, []string{"X", "Y"}) {
		t.Errorf("Authors = %v; want [X Y]", md.Authors)
	}
}
