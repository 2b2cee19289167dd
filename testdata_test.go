package jarir

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestZipBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestZipBytes returns the raw bytes of a ZIP archive holding files.
func buildTestZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestZipFile writes a ZIP archive holding files to p.
func buildTestZipFile(t *testing.T, p string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("buildTestZipFile: %v", err)
	}
	if err := os.WriteFile(p, buildTestZipBytes(t, files), 0o644); err != nil {
		t.Fatalf("buildTestZipFile: %v", err)
	}
}

// rc4Encrypt runs the RC4 keystream of key over data.
func rc4Encrypt(t *testing.T, key BookKey, data []byte) []byte {
	t.Helper()
	if len(key) == 0 {
		t.Fatal("rc4Encrypt: empty key")
	}
	return referenceRC4(key.Bytes(), data)
}

// encryptText compresses and encrypts s the way packages store chapter text.
func encryptText(t *testing.T, key BookKey, s string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := io.WriteString(zw, s); err != nil {
		t.Fatalf("encryptText: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("encryptText: %v", err)
	}
	return string(rc4Encrypt(t, key, buf.Bytes()))
}

// testChapter is one chapter of a test book.
type testChapter struct {
	text  string
	spans string
}

// testBookFiles returns the archive entries of a format-10 EPUB package
// with the given chapters and table of contents, encrypted with key.
func testBookFiles(t *testing.T, key BookKey, lang string, toc []TocEntry, chapters []testChapter) map[string]string {
	t.Helper()
	info, err := json.Marshal(map[string]any{
		"type":          "epub",
		"chapters":      len(chapters),
		"language":      lang,
		"formatVersion": 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	tocJSON, err := json.Marshal(toc)
	if err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"Index/info.json": string(info),
		"Index/toc.json":  encryptText(t, key, string(tocJSON)),
	}
	for i, ch := range chapters {
		base := filepath.ToSlash(filepath.Join("Text", chapterName(i+1)))
		files[base] = encryptText(t, key, ch.text)
		spans := ch.spans
		if spans == "" {
			spans = "[]"
		}
		files[base+".spans"] = encryptText(t, key, spans)
	}
	return files
}

func chapterName(i int) string {
	return filepath.Base(chapterPath("", uint(i)))
}

// writeWorkDir lays out an already-decrypted working directory.
func writeWorkDir(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
