package jarir

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// objectReplacement is the placeholder the vendor uses for line breaks in
// chapter text.
const objectReplacement = "\uFFFC"

// ArchiveOption configures DecryptArchive.
type ArchiveOption func(*archiveOptions)

type archiveOptions struct {
	logger       *slog.Logger
	maxEntrySize int64
}

// WithArchiveLogger sets the logger used to report extraction progress.
func WithArchiveLogger(l *slog.Logger) ArchiveOption {
	return func(o *archiveOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxEntrySize limits the decompressed size of any single entry.
// Non-positive values keep the default.
func WithMaxEntrySize(n int64) ArchiveOption {
	return func(o *archiveOptions) {
		if n > 0 {
			o.maxEntrySize = n
		}
	}
}

// DecryptArchive is DecryptArchiveContext with a background context.
func DecryptArchive(archivePath, workDir string, key BookKey, opts ...ArchiveOption) error {
	return DecryptArchiveContext(context.Background(), archivePath, workDir, key, opts...)
}

// DecryptArchiveContext extracts every entry of the package at archivePath
// into workDir and decrypts the protected ones in place.
//
// Binary entries (.DATA, .dat) are RC4-decrypted. Chapter text (.html) and,
// from format version 10, metadata (.json, .spans except info.json) is
// RC4-decrypted, inflated and normalised to UTF-8 with U+FFFC turned into
// line breaks. Everything else is copied verbatim. Existing files in workDir
// are overwritten.
//
// A zero-length archive is deleted and reported as ErrCorruptedArchive.
// ctx is checked between entries.
func DecryptArchiveContext(ctx context.Context, archivePath, workDir string, key BookKey, opts ...ArchiveOption) error {
	o := archiveOptions{logger: slog.Default(), maxEntrySize: maxEntrySize}
	for _, opt := range opts {
		opt(&o)
	}

	cipherKey := key.Bytes()
	if len(cipherKey) == 0 {
		return fmt.Errorf("jarir: decrypt %s: %w: %w", archivePath, ErrCipher, ErrEmptyKey)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return ioError("stat archive "+archivePath, err)
	}
	if info.Size() == 0 {
		if err := os.Remove(archivePath); err != nil {
			o.logger.Warn("remove corrupted archive", "path", archivePath, "error", err)
		}
		return fmt.Errorf("jarir: %s: %w: %w", archivePath, ErrArchiveFormat, ErrCorruptedArchive)
	}

	zrc, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("jarir: open archive %s: %w: %w", archivePath, ErrArchiveFormat, err)
	}
	defer zrc.Close()

	version := formatVersionFromZip(&zrc.Reader)
	o.logger.Debug("decrypting archive", "path", archivePath, "entries", len(zrc.File), "format_version", version)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return ioError("create "+workDir, err)
	}

	for _, f := range zrc.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractEntry(f, workDir, cipherKey, version, o); err != nil {
			return err
		}
	}
	return nil
}

// extractEntry writes one archive entry below workDir, decrypting it
// according to its class.
func extractEntry(f *zip.File, workDir string, key []byte, version uint, o archiveOptions) error {
	dest, err := extractPath(workDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return ioError("create "+dest, err)
		}
		return nil
	}

	data, err := readZipFileWithLimit(f, o.maxEntrySize)
	if err != nil {
		return err
	}

	class := classifyEntry(f.Name, version)
	switch class {
	case classBinary:
		data, err = decryptBinary(data, key)
	case classText:
		data, err = decryptText(data, key, o.maxEntrySize)
	}
	if err != nil {
		return fmt.Errorf("jarir: entry %s: %w", f.Name, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ioError("create "+filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return ioError("write "+dest, err)
	}

	o.logger.Debug("extracted entry", "entry", f.Name, "class", class.String(), "bytes", len(data))
	return nil
}

func decryptBinary(data, key []byte) ([]byte, error) {
	c, err := NewStreamCipher(key)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(data), nil
}

// decryptText decrypts, inflates and normalises a text entry. The inflated
// text may not exceed limit bytes.
func decryptText(data, key []byte, limit int64) ([]byte, error) {
	plain, err := decryptBinary(data, key)
	if err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("jarir: inflate: %w: %w", ErrDecompression, err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("jarir: inflate: %w: %w", ErrDecompression, err)
	}
	if int64(len(inflated)) > limit {
		return nil, fmt.Errorf("jarir: inflated size exceeds limit (%d bytes): %w", limit, ErrDecompression)
	}

	return []byte(normalizeText(inflated)), nil
}

// normalizeText turns object replacement characters into line breaks and
// replaces every maximal invalid UTF-8 subsequence with one U+FFFD, so
// character offsets into the text stay aligned with the vendor's.
func normalizeText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[invalidPrefixLen(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return strings.ReplaceAll(sb.String(), objectReplacement, "\n")
}

// invalidPrefixLen returns the length of the maximal prefix of b that
// starts a well-formed UTF-8 sequence without completing it. b must not
// begin with a valid encoding. The result is at least 1.
func invalidPrefixLen(b []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}
	n := 1
	for ; n <= need && n < len(b); n++ {
		if b[n] < lo || b[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}
