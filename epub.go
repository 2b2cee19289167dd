package jarir

import (
	"archive/zip"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// expectedMimetype is the required content of the "mimetype" file in a valid ePub.
const expectedMimetype = "application/epub+zip"

const (
	packageDir    = "OEBPS"
	opfName       = "content.opf"
	ncxName       = "toc.ncx"
	navName       = "nav.xhtml"
	stylesName    = "style.css"
	imagesDir     = "Images"
	xhtmlMedia    = "application/xhtml+xml"
	ncxMedia      = "application/x-dtbncx+xml"
	cssMedia      = "text/css"
	modifiedStamp = "2006-01-02T15:04:05Z"
)

// reservedFilenames name package documents and cannot name chapters.
var reservedFilenames = []string{"nav"}

// stylesheet styles the block classes produced by the renderer.
const stylesheet = `.center { text-align: center; }
.poetry-right { text-align: right; margin-left: 20px; }
.poetry-left { text-align: left; margin-right: 20px; }
.quran { font-family: 'Amiri', 'Traditional Arabic', serif; color: #006400; }
blockquote { margin: 1.5em 10px; padding: 0.5em 10px; border-left: 3px solid #ccc; color: #666; }
code { font-family: monospace; background-color: #f4f4f4; padding: 2px 4px; border-radius: 4px; }
u { text-decoration: underline; }
sup { vertical-align: super; }
sub { vertical-align: sub; }
`

// Publication is everything needed to package reconstructed chapters.
type Publication struct {
	// Identifier is the package's unique identifier. Defaults to a
	// generated urn:uuid.
	Identifier string

	// Title and Authors fill the package metadata.
	Title   string
	Authors []string

	// Language is the book language. Defaults to "en".
	Language string

	// Chapters are written in order.
	Chapters []Chapter

	// CoverPath is a local image file used as the cover. Optional.
	CoverPath string

	// ImagesDir holds images referenced by chapters as "./Images/...".
	// Optional.
	ImagesDir string

	// Modified is the dcterms:modified time. Defaults to now.
	Modified time.Time
}

// WriteEPUB packages pub as an EPUB 3 file at dest, replacing any existing
// file. The archive is written to a temporary file first and renamed into
// place.
func WriteEPUB(dest string, pub Publication) error {
	if pub.Language == "" {
		pub.Language = defaultLanguage
	}
	if pub.Modified.IsZero() {
		pub.Modified = time.Now()
	}
	if pub.Identifier == "" {
		pub.Identifier = "urn:uuid:" + NewUUIDv7()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".jarir-*.epub")
	if err != nil {
		return ioError("create temporary epub", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writePackage(tmp, pub); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return ioError("close "+tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return ioError("rename epub", err)
	}
	return nil
}

// writePackage streams the EPUB archive to w.
func writePackage(w io.Writer, pub Publication) error {
	zw := zip.NewWriter(w)
	rtl := IsRTL(pub.Language)

	// mimetype must be first and uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("jarir: write mimetype: %w: %w", ErrIO, err)
	}
	if _, err := io.WriteString(mw, expectedMimetype); err != nil {
		return fmt.Errorf("jarir: write mimetype: %w: %w", ErrIO, err)
	}

	opfPath := packageDir + "/" + opfName
	container, err := buildContainer(opfPath)
	if err != nil {
		return err
	}
	files := []packageFile{{name: containerPath, data: container}}

	doc := opfDocument{
		UniqueIdentifier: "bookid",
		Metadata: opfDocMetadata{
			Identifier: opfDocDC{ID: "bookid", Value: pub.Identifier},
			Title:      pub.Title,
			Language:   pub.Language,
			Creators:   pub.Authors,
			Metas: []opfDocMeta{{
				Property: "dcterms:modified",
				Value:    pub.Modified.UTC().Format(modifiedStamp),
			}},
		},
		Spine: opfSpine{Toc: "ncx"},
	}
	if rtl {
		doc.Dir = "rtl"
		doc.Spine.Direction = "rtl"
	}
	addItem := func(id, href, media, props string) {
		doc.Manifest.Items = append(doc.Manifest.Items, opfManifestItem{ID: id, Href: href, MediaType: media, Properties: props})
	}

	addItem("ncx", ncxName, ncxMedia, "")
	addItem("nav", navName, xhtmlMedia, "nav")
	addItem("style", stylesName, cssMedia, "")
	files = append(files, packageFile{name: packageDir + "/" + stylesName, data: []byte(stylesheet)})

	images, err := collectImages(pub.ImagesDir)
	if err != nil {
		return err
	}
	coverHref := ""
	for i, img := range images {
		href := imagesDir + "/" + url.PathEscape(img.name)
		props := ""
		if pub.CoverPath != "" && sameFile(img.path, pub.CoverPath) {
			props = "cover-image"
			coverHref = href
		}
		addItem(fmt.Sprintf("img-%d", i+1), href, img.mediaType, props)
		files = append(files, packageFile{name: packageDir + "/" + imagesDir + "/" + img.name, path: img.path})
	}
	if pub.CoverPath != "" && coverHref == "" {
		ext := strings.ToLower(path.Ext(pub.CoverPath))
		media := mime.TypeByExtension(ext)
		if isImageMediaType(media) {
			coverHref = "cover" + ext
			addItem("cover-image", coverHref, media, "cover-image")
			files = append(files, packageFile{name: packageDir + "/" + coverHref, path: pub.CoverPath})
		}
	}
	if coverHref != "" {
		doc.Metadata.Metas = append(doc.Metadata.Metas, opfDocMeta{Name: "cover", Content: coverItemID(doc.Manifest.Items, coverHref)})
	}

	var points []navPoint
	for i, ch := range pub.Chapters {
		id := fmt.Sprintf("chapter-%d", i+1)
		href := url.PathEscape(ch.Filename) + ".xhtml"
		addItem(id, href, xhtmlMedia, "")
		doc.Spine.ItemRefs = append(doc.Spine.ItemRefs, opfSpineItemRef{IDRef: id})
		points = append(points, navPoint{Title: ch.Title, Href: href})
		files = append(files, packageFile{
			name: packageDir + "/" + ch.Filename + ".xhtml",
			data: ChapterDocument(ch, pub.Language),
		})
	}

	ncx, err := buildNCX(pub.Identifier, pub.Title, points)
	if err != nil {
		return err
	}
	files = append(files,
		packageFile{name: packageDir + "/" + ncxName, data: ncx},
		packageFile{name: packageDir + "/" + navName, data: buildNavDocument(pub.Title, pub.Language, rtl, points)},
	)

	opf, err := marshalOPF(doc)
	if err != nil {
		return err
	}
	files = append(files, packageFile{name: opfPath, data: opf})

	for _, f := range files {
		if err := f.write(zw); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("jarir: finish epub: %w: %w", ErrIO, err)
	}
	return nil
}

// ChapterDocument wraps a chapter's <body> markup in an XHTML document.
func ChapterDocument(ch Chapter, lang string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"`)
	b.WriteString(` lang="` + escapeAttr(lang) + `" xml:lang="` + escapeAttr(lang) + `"`)
	if IsRTL(lang) {
		b.WriteString(` dir="rtl"`)
	}
	b.WriteString(">\n<head>\n<title>" + escapeText(ch.Title) + "</title>\n")
	b.WriteString(`<link rel="stylesheet" type="text/css" href="` + stylesName + `"/>` + "\n")
	b.WriteString("</head>\n")
	b.WriteString(ch.Markup)
	b.WriteString("\n</html>\n")
	return []byte(b.String())
}

// packageFile is one archive entry, from memory or from disk.
type packageFile struct {
	name string
	data []byte
	path string
}

func (f packageFile) write(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("jarir: add %s: %w: %w", f.name, ErrIO, err)
	}
	if f.path == "" {
		if _, err := w.Write(f.data); err != nil {
			return fmt.Errorf("jarir: add %s: %w: %w", f.name, ErrIO, err)
		}
		return nil
	}

	src, err := os.Open(f.path)
	if err != nil {
		return ioError("open "+f.path, err)
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("jarir: add %s: %w: %w", f.name, ErrIO, err)
	}
	return nil
}

type imageFile struct {
	name      string
	path      string
	mediaType string
}

// collectImages lists image files directly inside dir in name order.
// A missing directory yields no images.
func collectImages(dir string) ([]imageFile, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ioError("read "+dir, err)
	}

	var images []imageFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		media := mime.TypeByExtension(strings.ToLower(path.Ext(e.Name())))
		if !isImageMediaType(media) {
			continue
		}
		images = append(images, imageFile{name: e.Name(), path: filepath.Join(dir, e.Name()), mediaType: media})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].name < images[j].name })
	return images, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func coverItemID(items []opfManifestItem, href string) string {
	for _, it := range items {
		if it.Href == href {
			return it.ID
		}
	}
	return ""
}

// EPUBInfo summarises a written EPUB.
type EPUBInfo struct {
	Metadata PackageMetadata

	// Chapters lists navigation titles in reading order.
	Chapters []string

	// Files lists the archive entries in order.
	Files []string

	// Warnings records non-fatal deviations from the EPUB container rules.
	Warnings []string
}

// InspectEPUB reads back an EPUB and reports its metadata and navigation.
func InspectEPUB(p string) (EPUBInfo, error) {
	zrc, err := zip.OpenReader(p)
	if err != nil {
		if os.IsNotExist(err) {
			return EPUBInfo{}, ioError("open "+p, err)
		}
		return EPUBInfo{}, fmt.Errorf("jarir: open %s: %w: %w", p, ErrArchiveFormat, err)
	}
	defer zrc.Close()
	zr := &zrc.Reader

	var info EPUBInfo
	for _, f := range zr.File {
		info.Files = append(info.Files, f.Name)
	}
	info.Warnings = validateMimetype(zr)

	opfPath, err := parseContainer(zr)
	if err != nil {
		return info, err
	}
	opfFile := findFile(zr, opfPath)
	if opfFile == nil {
		return info, fmt.Errorf("jarir: OPF %s: %w: %w", opfPath, ErrArchiveFormat, ErrEntryNotFound)
	}
	data, err := readZipFile(opfFile)
	if err != nil {
		return info, err
	}
	pkg, err := parseOPF(data)
	if err != nil {
		return info, err
	}
	info.Metadata = extractMetadata(pkg)

	opfDir := path.Dir(opfPath)
	for _, item := range pkg.Manifest.Items {
		if item.ID != pkg.Spine.Toc {
			continue
		}
		f := findFile(zr, path.Join(opfDir, item.Href))
		if f == nil {
			info.Warnings = append(info.Warnings, "NCX "+item.Href+" is missing")
			break
		}
		ncxData, err := readZipFile(f)
		if err != nil {
			return info, err
		}
		points, err := parseNCX(ncxData)
		if err != nil {
			return info, err
		}
		for _, np := range points {
			info.Chapters = append(info.Chapters, np.Title)
		}
		break
	}
	return info, nil
}

// validateMimetype checks that the first entry is an uncompressed
// "mimetype" holding "application/epub+zip" and returns any deviations.
func validateMimetype(zr *zip.Reader) []string {
	if len(zr.File) == 0 {
		return []string{"empty ZIP archive; mimetype entry missing"}
	}
	first := zr.File[0]
	if first.Name != "mimetype" {
		return []string{`first ZIP entry is not "mimetype"`}
	}
	var warnings []string
	if first.Method != zip.Store {
		warnings = append(warnings, "mimetype entry is compressed")
	}
	data, err := readZipFile(first)
	if err != nil {
		return append(warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
	}
	if string(data) != expectedMimetype {
		warnings = append(warnings, fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
	return warnings
}
