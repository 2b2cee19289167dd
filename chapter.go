package jarir

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh unique identifier.
type IDGenerator func() string

// NewUUIDv7 generates a time-ordered UUID string.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ChapterOption configures BuildChapters.
type ChapterOption func(*chapterOptions)

type chapterOptions struct {
	renderer  *Renderer
	ids       IDGenerator
	logger    *slog.Logger
	copyright bool
}

// WithRenderer sets the renderer used for chapter markup.
func WithRenderer(r *Renderer) ChapterOption {
	return func(o *chapterOptions) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithIDGenerator sets the generator used to name untitled chapters.
func WithIDGenerator(g IDGenerator) ChapterOption {
	return func(o *chapterOptions) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithChapterLogger sets the logger for chapter assembly.
func WithChapterLogger(l *slog.Logger) ChapterOption {
	return func(o *chapterOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithoutCopyrights omits the trailing copyrights chapter.
func WithoutCopyrights() ChapterOption {
	return func(o *chapterOptions) { o.copyright = false }
}

// chapterPath returns the working-directory path of chapter index (1-based).
func chapterPath(workDir string, index uint) string {
	return filepath.Join(workDir, "Text", fmt.Sprintf("chapter-%03d.html", index))
}

// BuildChapters renders the m.Chapters chapters extracted in workDir.
//
// Each chapter is titled from Index/toc.json by its character range within
// the book, named after its title, and rendered from its text and spans into
// a <body> fragment with one paragraph per line. Untitled chapters get a
// generated filename. The copyrights chapter is appended last.
func BuildChapters(workDir string, m Manifest, opts ...ChapterOption) ([]Chapter, error) {
	o := chapterOptions{ids: NewUUIDv7, logger: slog.Default(), copyright: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.renderer == nil {
		o.renderer = NewRenderer(o.logger)
	}

	tocData, err := readWorkFile(filepath.Join(workDir, "Index", "toc.json"))
	if err != nil {
		return nil, err
	}
	toc, err := ParseTOC(tocData)
	if err != nil {
		return nil, err
	}
	mapper := TocMapper{Entries: toc}

	rtl := IsRTL(m.Language)
	names := newFilenameSet(reservedFilenames...)
	var cursor OffsetCursor

	chapters := make([]Chapter, 0, m.Chapters+1)
	for i := uint(1); i <= m.Chapters; i++ {
		p := chapterPath(workDir, i)
		textData, err := readWorkFile(p)
		if err != nil {
			return nil, err
		}
		spanData, err := readWorkFile(p + ".spans")
		if err != nil {
			return nil, err
		}
		spans, err := ParseSpans(spanData)
		if err != nil {
			return nil, fmt.Errorf("jarir: chapter %d: %w", i, err)
		}

		text := string(textData)
		start, end := cursor.Advance(text)
		title, ok := mapper.Title(start, end)

		filename := ""
		if ok {
			filename = CleanFilename(title, "-")
		}
		if filename == "" {
			filename = o.ids()
		}

		chapters = append(chapters, Chapter{
			Title:    title,
			Filename: names.unique(filename),
			Markup:   "<body>" + Paragraphs(o.renderer.Render(text, spans), rtl) + "</body>",
			Text:     text,
		})
		o.logger.Debug("built chapter", "index", i, "title", title, "start", start, "end", end)
	}

	if o.copyright {
		c := CopyrightsChapter(o.renderer, m.Language)
		c.Filename = names.unique(c.Filename)
		chapters = append(chapters, c)
	}
	return chapters, nil
}

// readWorkFile reads an extracted file. A missing file is reported as
// ErrEntryNotFound.
func readWorkFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("jarir: %s does not exist: %w: %w", p, ErrArchiveFormat, ErrEntryNotFound)
		}
		return nil, ioError("read "+p, err)
	}
	return data, nil
}

// unsafeFilenameChars matches runs of characters that are not allowed in
// file names on common filesystems, including whitespace.
var unsafeFilenameChars = regexp.MustCompile(`[/?<>\\:*|"\x00-\x1f\x{80}-\x{9f}\s]+`)

// maxFilenameRunes bounds the length of generated file names.
const maxFilenameRunes = 255

// CleanFilename replaces runs of unsafe characters and whitespace in text
// with replace, trims replace from both ends and truncates to 255 characters.
// It returns "" when nothing usable remains.
func CleanFilename(text, replace string) string {
	if replace == "" {
		replace = "-"
	}
	s := unsafeFilenameChars.ReplaceAllString(text, replace)
	s = strings.Trim(s, replace)
	if r := []rune(s); len(r) > maxFilenameRunes {
		s = strings.Trim(string(r[:maxFilenameRunes]), replace)
	}
	if s == "." || s == ".." {
		return ""
	}
	return s
}

// filenameSet hands out unique file names, suffixing repeats with -2, -3...
type filenameSet struct {
	seen map[string]int
}

func newFilenameSet(reserved ...string) *filenameSet {
	s := &filenameSet{seen: make(map[string]int)}
	for _, r := range reserved {
		s.seen[strings.ToLower(r)] = 1
	}
	return s
}

func (s *filenameSet) unique(name string) string {
	key := strings.ToLower(name)
	n := s.seen[key]
	s.seen[key] = n + 1
	if n == 0 {
		return name
	}
	for {
		n++
		candidate := name + "-" + strconv.Itoa(n)
		ck := strings.ToLower(candidate)
		if s.seen[ck] == 0 {
			s.seen[ck] = 1
			s.seen[key] = n
			return candidate
		}
	}
}
