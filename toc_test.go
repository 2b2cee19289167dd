package jarir

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseTOC(t *testing.T) {
	got, err := ParseTOC([]byte(`[{"offset":0,"title":"Intro"},{"offset":120,"title":"Chapter 1"}]`))
	if err != nil {
		t.Fatalf("ParseTOC: %v", err)
	}
	want := []TocEntry{{Offset: 0, Title: "Intro"}, {Offset: 120, Title: "Chapter 1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTOC() = %+v; want %+v", got, want)
	}

	if _, err := ParseTOC([]byte(`{"offset":0}`)); !errors.Is(err, ErrManifest) {
		t.Errorf("ParseTOC(object) error = %v; want ErrManifest", err)
	}
}

func TestTocMapperTitle(t *testing.T) {
	m := TocMapper{Entries: []TocEntry{
		{Offset: 0, Title: "Intro"},
		{Offset: 120, Title: "Chapter 1"},
		{Offset: 300, Title: "  "},
		{Offset: 310, Title: "Chapter 2"},
	}}

	tests := []struct {
		name       string
		start, end int
		want       string
		wantOK     bool
	}{
		{"first chapter", 0, 100, "Intro", true},
		{"second chapter", 100, 250, "Chapter 1", true},
		{"end is inclusive", 100, 120, "Chapter 1", true},
		{"start is inclusive", 120, 130, "Chapter 1", true},
		{"first match wins", 0, 400, "Intro", true},
		{"blank titles skipped", 250, 305, UntitledChapter, false},
		{"blank then titled", 250, 320, "Chapter 2", true},
		{"no entry", 500, 600, UntitledChapter, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Title(tt.start, tt.end)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Title(%d, %d) = %q, %v; want %q, %v", tt.start, tt.end, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOffsetCursor(t *testing.T) {
	var c OffsetCursor
	if s, e := c.Advance("Hello"); s != 0 || e != 5 {
		t.Errorf("Advance(Hello) = %d, %d; want 0, 5", s, e)
	}
	if s, e := c.Advance("مرحبا"); s != 5 || e != 10 {
		t.Errorf("Advance(مرحبا) = %d, %d; want 5, 10", s, e)
	}
	if s, e := c.Advance(""); s != 10 || e != 10 {
		t.Errorf("Advance(\"\") = %d, %d; want 10, 10", s, e)
	}
	if c.Offset() != 10 {
		t.Errorf("Offset() = %d; want 10", c.Offset())
	}
}

func TestNCXRoundTrip(t *testing.T) {
	points := []navPoint{
		{Title: "Intro", Href: "Intro.xhtml"},
		{Title: "حقوق & نشر", Href: "copyrights.xhtml"},
	}
	data, err := buildNCX("urn:uuid:1", "Book <1>", points)
	if err != nil {
		t.Fatalf("buildNCX: %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Error("NCX lacks an XML declaration")
	}

	got, err := parseNCX(data)
	if err != nil {
		t.Fatalf("parseNCX: %v", err)
	}
	if !reflect.DeepEqual(got, points) {
		t.Errorf("parseNCX(buildNCX()) = %+v; want %+v", got, points)
	}
}

func TestParseNCXNested(t *testing.T) {
	data := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="a"><navLabel><text>Part 1</text></navLabel><content src="p1.xhtml"/>
      <navPoint id="b"><navLabel><text> Chapter 1 </text></navLabel><content src="c1.xhtml"/></navPoint>
    </navPoint>
    <navPoint id="c"><navLabel><text>Part 2</text></navLabel><content src="p2.xhtml"/></navPoint>
  </navMap>
</ncx>`
	got, err := parseNCX([]byte(data))
	if err != nil {
		t.Fatalf("parseNCX: %v", err)
	}
	want := []navPoint{
		{Title: "Part 1", Href: "p1.xhtml"},
		{Title: "Chapter 1", Href: "c1.xhtml"},
		{Title: "Part 2", Href: "p2.xhtml"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseNCX() = %+v; want %+v", got, want)
	}

	if _, err := parseNCX([]byte("<ncx><navMap>")); !errors.Is(err, ErrArchiveFormat) {
		t.Errorf("parseNCX(truncated) error = %v; want ErrArchiveFormat", err)
	}
}

func TestBuildNavDocument(t *testing.T) {
	doc := string(buildNavDocument("A & B", "ar", true, []navPoint{{Title: "<One>", Href: "one.xhtml"}}))

	for _, want := range []string{
		`dir="rtl"`,
		`lang="ar"`,
		`<title>A &amp; B</title>`,
		`<nav epub:type="toc" id="toc">`,
		`<li><a href="one.xhtml">&lt;One&gt;</a></li>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("nav document missing %q:\n%s", want, doc)
		}
	}

	ltr := string(buildNavDocument("T", "en", false, nil))
	if strings.Contains(ltr, `dir="rtl"`) {
		t.Error("left-to-right nav document has dir=rtl")
	}
}
