package jarir

// BookKey is the per-book RC4 key material, stored as signed 8-bit integers
// the way the vendor service delivers it. Use Bytes to obtain the cipher key.
type BookKey []int8

// DefaultBookKey is used until a book-specific key is known.
var DefaultBookKey = BookKey{115, -36, 110, -93, 78, -22, 63, -71, 97, -126, 86, 66, -36, 46, 13, -96}

// Bytes reinterprets the key as unsigned bytes with wrapping semantics
// (-3 becomes 253).
func (k BookKey) Bytes() []byte {
	out := make([]byte, len(k))
	for i, v := range k {
		out[i] = byte(v)
	}
	return out
}

// BookKeyFromBytes reinterprets raw bytes as a signed key (253 becomes -3).
func BookKeyFromBytes(b []byte) BookKey {
	out := make(BookKey, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}

// Clone returns a copy of k.
func (k BookKey) Clone() BookKey {
	return append(BookKey(nil), k...)
}

// Book identifies a title and the files that belong to it.
type Book struct {
	// ID is the vendor book identifier. It names the archive (<ID>.zip) and
	// the working directory (<ID>/).
	ID string `json:"id"`

	// Title is the display name; it names the output directory and files.
	Title string `json:"title"`

	// Authors lists the display names of the authors.
	Authors []string `json:"authors,omitempty"`

	// Type is the catalog format: "pdf", "epub" or "mp3".
	Type string `json:"type,omitempty"`

	// URL is the remote download location. A URL ending in ".body" together
	// with a non-empty Header means the download must be header-spliced.
	URL string `json:"url,omitempty"`

	// ArchivePath overrides the default <books>/<ID>.zip location.
	ArchivePath string `json:"book_path,omitempty"`

	// OutputPath is set once the book has been reconstructed.
	OutputPath string `json:"output_path,omitempty"`

	// Cover is a URL or local path to the cover image.
	Cover string `json:"cover,omitempty"`

	// Key is the RC4 key. A nil key falls back to DefaultBookKey.
	Key BookKey `json:"key,omitempty"`

	// Header is the base64 AES-encrypted header token. Empty when the book
	// requires no header splice.
	Header string `json:"header,omitempty"`
}

// key returns a copy of the book key, or of DefaultBookKey when none is
// set, so the engine never aliases caller or package state.
func (b Book) key() BookKey {
	if len(b.Key) == 0 {
		return DefaultBookKey.Clone()
	}
	return b.Key.Clone()
}

// Span is an offset-addressed style annotation over a chapter's plaintext.
// Offsets count characters (runes), never bytes.
type Span struct {
	// Start is the inclusive start offset.
	Start int

	// End is the exclusive end offset.
	End int

	// Types holds the style type identifiers applying to [Start, End).
	Types []int

	// Extra is the optional payload: link target, colour code or image path.
	Extra string

	// HasExtra distinguishes an empty payload from an absent one.
	HasExtra bool
}

// TocEntry marks a cumulative character offset across all chapters with the
// title that starts there.
type TocEntry struct {
	Offset int    `json:"offset"`
	Title  string `json:"title"`
}

// Chapter is a reconstructed chapter document.
type Chapter struct {
	// Title comes from the table of contents, or UntitledChapter.
	Title string

	// Filename is the file stem used inside the output directory and the
	// EPUB package, without extension.
	Filename string

	// Markup is the rendered <body> fragment.
	Markup string

	// Text is the decrypted plaintext the markup was rendered from.
	Text string
}

// Manifest is the package manifest stored in Index/info.json.
type Manifest struct {
	// Type is the output format: "epub", "pdf" or "mp3".
	Type string `json:"type"`

	// Chapters is the number of Text/chapter-NNN.html files.
	Chapters uint `json:"chapters"`

	// Language is an ISO-like language code. Defaults to "en".
	Language string `json:"language"`

	// Cover is a URL or a package-relative path to the cover image.
	Cover string `json:"cover"`

	// FormatVersion selects which entry types are compressed. Defaults to 5.
	FormatVersion uint `json:"formatVersion"`
}
