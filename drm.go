package jarir

import (
	"path"
	"strings"
)

// entryClass tells the archive decryptor how to treat one package entry.
type entryClass int

const (
	// classPlain entries are extracted verbatim.
	classPlain entryClass = iota
	// classBinary entries are RC4-encrypted opaque payloads (PDF pages,
	// images, audio).
	classBinary
	// classText entries are RC4-encrypted, zlib-compressed UTF-8 text.
	classText
)

func (c entryClass) String() string {
	switch c {
	case classBinary:
		return "binary"
	case classText:
		return "text"
	default:
		return "plain"
	}
}

// compressedMetadataVersion is the first format version whose JSON and span
// entries are encrypted and compressed like chapter text.
const compressedMetadataVersion = 10

// manifestEntry is read before extraction to learn the format version.
const manifestEntry = "Index/info.json"

// classifyEntry classifies an entry by its extension as stored in the
// archive. Extension matching is case-sensitive: "DATA" and "dat" are the
// two spellings the vendor uses for binary payloads.
func classifyEntry(name string, formatVersion uint) entryClass {
	base := path.Base(name)
	ext := strings.TrimPrefix(path.Ext(base), ".")

	switch ext {
	case "DATA", "dat":
		return classBinary
	case "html":
		return classText
	case "json", "spans":
		if formatVersion >= compressedMetadataVersion && base != "info.json" {
			return classText
		}
	}
	return classPlain
}
