package jarir

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxEntrySize is the default maximum decompressed size of a single archive
// entry. It guards against zip bombs. Defaults to 512 MB.
const maxEntrySize int64 = 512 * 1024 * 1024

// utf8BOM is the UTF-8 byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// isSafePath checks whether p is a safe archive-internal path that does not
// escape the extraction root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	if strings.Contains(p, "\\") {
		p = strings.ReplaceAll(p, "\\", "/")
	}
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// extractPath joins an archive entry name onto root. Unsafe names are
// rejected.
func extractPath(root, name string) (string, error) {
	if !isSafePath(name) {
		return "", fmt.Errorf("jarir: unsafe zip entry path: %s: %w", name, ErrArchiveFormat)
	}
	return filepath.Join(root, filepath.FromSlash(path.Clean(name))), nil
}

// stripBOM removes a leading byte order mark from data. UTF-16 input with a
// BOM is transcoded to UTF-8; other input is returned unchanged apart from a
// UTF-8 BOM.
func stripBOM(data []byte) []byte {
	if len(data) < 2 {
		return data
	}
	if !bytes.HasPrefix(data, utf8BOM) && !(data[0] == 0xFF && data[1] == 0xFE) && !(data[0] == 0xFE && data[1] == 0xFF) {
		return data
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return bytes.TrimPrefix(data, utf8BOM)
	}
	return out
}

// readZipFile reads the full contents of a zip entry, enforcing
// maxEntrySize.
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxEntrySize)
}

// readZipFileWithLimit is the implementation of readZipFile with a
// configurable size limit.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("jarir: unsafe zip entry path: %s: %w", f.Name, ErrArchiveFormat)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("jarir: zip entry %s too large: %d bytes (max %d): %w", f.Name, f.UncompressedSize64, limit, ErrArchiveFormat)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("jarir: open zip entry %s: %w: %w", f.Name, ErrArchiveFormat, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect if the actual decompressed data
	// exceeds the limit (the declared size might be forged).
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("jarir: read zip entry %s: %w: %w", f.Name, ErrArchiveFormat, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("jarir: zip entry %s decompressed size exceeds limit (%d bytes): %w", f.Name, limit, ErrArchiveFormat)
	}

	return data, nil
}

// findFile returns the entry named exactly name, or nil.
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
