package jarir

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// UntitledChapter is the title given to a chapter no TOC entry falls in.
const UntitledChapter = "—"

// ParseTOC decodes Index/toc.json: a JSON array of {offset, title} objects.
func ParseTOC(data []byte) ([]TocEntry, error) {
	var entries []TocEntry
	if err := json.Unmarshal(stripBOM(data), &entries); err != nil {
		return nil, fmt.Errorf("jarir: parse toc: %w: %w", ErrManifest, err)
	}
	return entries, nil
}

// TocMapper assigns chapter titles from book-wide TOC offsets.
type TocMapper struct {
	Entries []TocEntry
}

// Title returns the title of the first entry whose offset lies in
// [start, end], both inclusive. Entries with an empty title are ignored.
// When nothing matches it returns UntitledChapter and false.
func (m TocMapper) Title(start, end int) (string, bool) {
	for _, e := range m.Entries {
		if e.Offset >= start && e.Offset <= end && strings.TrimSpace(e.Title) != "" {
			return e.Title, true
		}
	}
	return UntitledChapter, false
}

// OffsetCursor tracks the running character offset across chapters.
// The zero value starts at offset 0.
type OffsetCursor struct {
	offset int
}

// Advance moves the cursor past text and returns the range it covered.
// Offsets count characters, not bytes.
func (c *OffsetCursor) Advance(text string) (start, end int) {
	start = c.offset
	c.offset += utf8.RuneCountInString(text)
	return start, c.offset
}

// Offset returns the current position.
func (c *OffsetCursor) Offset() int {
	return c.offset
}

// --- NCX (ePub 2 navigation, kept for older readers) ---

const ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"

// ncxDocument represents the root <ncx> element of an NCX file.
type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	Xmlns   string    `xml:"xmlns,attr,omitempty"`
	Version string    `xml:"version,attr,omitempty"`
	Head    ncxHead   `xml:"head"`
	Title   ncxText   `xml:"docTitle"`
	NavMap  ncxNavMap `xml:"navMap"`
}

type ncxHead struct {
	Metas []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxText struct {
	Text string `xml:"text"`
}

// ncxNavMap represents the <navMap> element containing top-level navPoints.
type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a <navPoint> element which may contain nested navPoints.
type ncxNavPoint struct {
	ID        string        `xml:"id,attr"`
	PlayOrder string        `xml:"playOrder,attr"`
	Label     ncxText       `xml:"navLabel"`
	Content   ncxContent    `xml:"content"`
	Children  []ncxNavPoint `xml:"navPoint"`
}

// ncxContent represents the <content> element with its src attribute.
type ncxContent struct {
	Src string `xml:"src,attr"`
}

// navPoint is one entry of a package's navigation.
type navPoint struct {
	Title string
	Href  string
}

// buildNCX renders the NCX document for the given navigation points.
func buildNCX(identifier, title string, points []navPoint) ([]byte, error) {
	doc := ncxDocument{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Head: ncxHead{Metas: []ncxMeta{
			{Name: "dtb:uid", Content: identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		Title: ncxText{Text: title},
	}
	for i, p := range points {
		doc.NavMap.NavPoints = append(doc.NavMap.NavPoints, ncxNavPoint{
			ID:        "navpoint-" + strconv.Itoa(i+1),
			PlayOrder: strconv.Itoa(i + 1),
			Label:     ncxText{Text: p.Title},
			Content:   ncxContent{Src: p.Href},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jarir: encode NCX: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// parseNCX parses NCX data and returns its navigation points in document
// order, flattening nested points.
func parseNCX(data []byte) ([]navPoint, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(stripBOM(data), &doc); err != nil {
		return nil, fmt.Errorf("jarir: parse NCX: %w: %w", ErrArchiveFormat, err)
	}
	var points []navPoint
	flattenNavPoints(&points, doc.NavMap.NavPoints)
	return points, nil
}

func flattenNavPoints(out *[]navPoint, points []ncxNavPoint) {
	for _, np := range points {
		*out = append(*out, navPoint{
			Title: strings.TrimSpace(np.Label.Text),
			Href:  strings.TrimSpace(np.Content.Src),
		})
		flattenNavPoints(out, np.Children)
	}
}

// --- Nav document (ePub 3) ---

// buildNavDocument renders the XHTML navigation document.
func buildNavDocument(title, lang string, rtl bool, points []navPoint) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<!DOCTYPE html>` + "\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"`)
	b.WriteString(` lang="` + escapeAttr(lang) + `" xml:lang="` + escapeAttr(lang) + `"`)
	if rtl {
		b.WriteString(` dir="rtl"`)
	}
	b.WriteString(">\n<head>\n<title>" + escapeText(title) + "</title>\n</head>\n<body>\n")
	b.WriteString(`<nav epub:type="toc" id="toc">` + "\n<ol>\n")
	for _, p := range points {
		b.WriteString(`<li><a href="` + escapeAttr(p.Href) + `">` + escapeText(p.Title) + "</a></li>\n")
	}
	b.WriteString("</ol>\n</nav>\n</body>\n</html>\n")
	return []byte(b.String())
}
