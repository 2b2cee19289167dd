package jarir

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// defaultFormatVersion applies when the manifest omits formatVersion.
	defaultFormatVersion uint = 5
	// defaultLanguage applies when the manifest omits language.
	defaultLanguage = "en"
)

// rawManifest mirrors Index/info.json with optional fields as pointers so
// absent values can be told apart from zero values.
type rawManifest struct {
	Type          string `json:"type"`
	Chapters      *uint  `json:"chapters"`
	Language      string `json:"language"`
	Cover         string `json:"cover"`
	FormatVersion *uint  `json:"formatVersion"`
}

// ParseManifest decodes Index/info.json. Missing language and format version
// take their defaults; a missing chapter count is zero.
func ParseManifest(data []byte) (Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(stripBOM(data), &raw); err != nil {
		return Manifest{}, fmt.Errorf("jarir: parse manifest: %w: %w", ErrManifest, err)
	}

	m := Manifest{
		Type:          raw.Type,
		Language:      raw.Language,
		Cover:         raw.Cover,
		FormatVersion: defaultFormatVersion,
	}
	if raw.Chapters != nil {
		m.Chapters = *raw.Chapters
	}
	if raw.FormatVersion != nil {
		m.FormatVersion = *raw.FormatVersion
	}
	if m.Language == "" {
		m.Language = defaultLanguage
	}
	return m, nil
}

// ReadManifest reads Index/info.json from an extracted working directory.
func ReadManifest(workDir string) (Manifest, error) {
	p := filepath.Join(workDir, filepath.FromSlash(manifestEntry))
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("jarir: read manifest %s: %w: %w", p, ErrManifest, ErrEntryNotFound)
		}
		return Manifest{}, ioError("read manifest "+p, err)
	}
	return ParseManifest(data)
}

// formatVersionFromZip reads the format version from the archive's manifest
// without extracting anything. Any failure yields the default version.
func formatVersionFromZip(zr *zip.Reader) uint {
	f := findFile(zr, manifestEntry)
	if f == nil {
		return defaultFormatVersion
	}
	data, err := readZipFile(f)
	if err != nil {
		return defaultFormatVersion
	}
	m, err := ParseManifest(data)
	if err != nil {
		return defaultFormatVersion
	}
	return m.FormatVersion
}
