package jarir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/abdumu/jarir-reader/store"
)

// Book types dispatched by Reconstruct.
const (
	BookTypeEPUB  = "epub"
	BookTypePDF   = "pdf"
	BookTypeAudio = "mp3"
)

// Result describes a reconstructed book.
type Result struct {
	BookID string

	// Type is the manifest type that was reconstructed.
	Type string

	// OutputPath is the packaged file (.epub or .pdf), or the chapter
	// directory when EPUB packaging is disabled.
	OutputPath string

	// ChapterDir holds the loose .xhtml chapters of an EPUB book.
	ChapterDir string

	// Chapters counts the chapters written, copyrights included.
	Chapters int
}

// bookRecord is what the engine remembers about a book in the store.
type bookRecord struct {
	URL        string  `json:"url,omitempty"`
	Header     string  `json:"header,omitempty"`
	Key        BookKey `json:"key,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStore sets the store that receives book records. The engine does not
// close a store passed this way.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// Engine turns downloaded packages into readable books. It is safe for
// concurrent use; calls for the same book id are collapsed into one run.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	store    store.Store
	ownStore bool
	renderer *Renderer
	group    singleflight.Group
}

// New validates cfg and returns an Engine. When no store is supplied and
// cfg.Store names a driver, the store is opened and owned by the engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = cfg.NewLogger()
	}
	if e.store == nil && cfg.Store.Driver != "" {
		s, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		e.store = s
		e.ownStore = true
	}
	e.renderer = NewRenderer(e.logger)
	return e, nil
}

// Close releases the store if the engine opened it.
func (e *Engine) Close() error {
	if e.ownStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Reconstruct decrypts the downloaded package of book and writes the
// readable result under the output directory. token is the account token
// used to decrypt the header of split downloads; it may be empty otherwise.
//
// Errors are *StageError values. Nothing is retried; IsRetryable tells
// whether downloading again may help.
func (e *Engine) Reconstruct(ctx context.Context, book Book, token string) (Result, error) {
	if err := validateBookID(book.ID); err != nil {
		return Result{}, &StageError{BookID: book.ID, Stage: StageValidate, Err: err}
	}
	v, err, shared := e.group.Do(book.ID, func() (any, error) {
		return e.reconstruct(ctx, book, token)
	})
	if shared {
		e.logger.Debug("joined reconstruction in progress", "book_id", book.ID)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (e *Engine) reconstruct(ctx context.Context, book Book, token string) (Result, error) {
	log := e.logger.With("book_id", book.ID)
	fail := func(stage Stage, err error) (Result, error) {
		log.Error("reconstruction failed", "stage", stage, "error", err)
		return Result{}, &StageError{BookID: book.ID, Stage: stage, Err: err}
	}

	archive := book.ArchivePath
	if archive == "" {
		archive = filepath.Join(e.cfg.BooksDir, book.ID+".zip")
	}
	key := book.key()

	// 1. splice
	if book.Header != "" {
		bodyPath := filepath.Join(e.cfg.BooksDir, book.ID+".zip.body")
		if _, err := os.Stat(bodyPath); err == nil {
			spliced, err := SpliceFile(bodyPath, book.Header, token, archive)
			if err != nil {
				return fail(StageSplice, err)
			}
			if spliced != nil {
				key = spliced
			}
			if err := e.saveRecord(ctx, book.ID, func(r *bookRecord) {
				r.URL, r.Header, r.Key = book.URL, book.Header, key
			}); err != nil {
				return fail(StageSplice, err)
			}
			log.Info("spliced header", "archive", archive)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fail(StageSplice, ioError("stat "+bodyPath, err))
		}
	}

	// 2. decrypt
	workDir := filepath.Join(e.cfg.BooksDir, book.ID)
	err := DecryptArchiveContext(ctx, archive, workDir, key,
		WithArchiveLogger(log), WithMaxEntrySize(e.cfg.MaxEntryBytes()))
	if err != nil {
		return fail(StageDecrypt, err)
	}

	// 3. dispatch
	m, err := ReadManifest(workDir)
	if err != nil {
		return fail(StageManifest, err)
	}
	if m.Type == "" {
		m.Type = book.Type
	}
	name := CleanFilename(book.Title, "-")
	if name == "" {
		name = book.ID
	}

	res := Result{BookID: book.ID, Type: m.Type}
	switch strings.ToLower(m.Type) {
	case BookTypeEPUB:
		res, err = e.reconstructEPUB(ctx, log, book, m, workDir, name)
		if err != nil {
			var se *StageError
			if errors.As(err, &se) {
				return fail(se.Stage, se.Err)
			}
			return fail(StagePackage, err)
		}
	case BookTypePDF:
		res.OutputPath = filepath.Join(e.cfg.OutputDir, name+".pdf")
		if err := PackagePDF(workDir, res.OutputPath, e.cfg.ValidatePDF); err != nil {
			return fail(StagePackage, err)
		}
	case BookTypeAudio:
		return fail(StageManifest, fmt.Errorf("jarir: audio books are not reconstructed: %w", ErrUnsupportedType))
	default:
		return fail(StageManifest, fmt.Errorf("jarir: book type %q: %w", m.Type, ErrUnsupportedType))
	}

	if err := e.saveRecord(ctx, book.ID, func(r *bookRecord) { r.OutputPath = res.OutputPath }); err != nil {
		log.Warn("could not record output path", "error", err)
	}

	// 4. cleanup
	if err := ClearResidue(e.cfg.BooksDir, book.ID); err != nil {
		return fail(StageCleanup, err)
	}
	log.Info("reconstructed book", "type", res.Type, "output", res.OutputPath)
	return res, nil
}

func (e *Engine) reconstructEPUB(ctx context.Context, log *slog.Logger, book Book, m Manifest, workDir, name string) (Result, error) {
	res := Result{BookID: book.ID, Type: m.Type}

	chapters, err := BuildChapters(workDir, m, WithRenderer(e.renderer), WithChapterLogger(log))
	if err != nil {
		return res, &StageError{BookID: book.ID, Stage: StageRender, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return res, &StageError{BookID: book.ID, Stage: StageRender, Err: err}
	}
	res.Chapters = len(chapters)

	lang := m.Language
	if lang == "" {
		lang = defaultLanguage
	}

	res.ChapterDir = filepath.Join(e.cfg.OutputDir, name)
	if err := os.MkdirAll(res.ChapterDir, 0o755); err != nil {
		return res, ioError("create "+res.ChapterDir, err)
	}
	for _, ch := range chapters {
		p := filepath.Join(res.ChapterDir, ch.Filename+".xhtml")
		if err := os.WriteFile(p, ChapterDocument(ch, lang), 0o644); err != nil {
			return res, ioError("write "+p, err)
		}
	}
	imgDir := filepath.Join(workDir, imagesDir)
	if err := copyImages(imgDir, filepath.Join(res.ChapterDir, "Images")); err != nil {
		return res, err
	}
	res.OutputPath = res.ChapterDir

	if e.cfg.EPUB {
		pub := Publication{
			Title:     book.Title,
			Authors:   book.Authors,
			Language:  lang,
			Chapters:  chapters,
			ImagesDir: imgDir,
		}
		if cover, ok := findCover(workDir, book, m, chapters); ok {
			pub.CoverPath = cover.Path
		}
		dest := filepath.Join(e.cfg.OutputDir, name+".epub")
		if err := WriteEPUB(dest, pub); err != nil {
			return res, err
		}
		res.OutputPath = dest
	}

	if e.cfg.Markdown {
		if err := NewMarkdownConverter().WriteMarkdown(res.ChapterDir, chapters); err != nil {
			return res, err
		}
	}
	return res, nil
}

// saveRecord updates the stored record of book id. Records replace the
// whole "books/<id>" value, so the previous one is read first.
func (e *Engine) saveRecord(ctx context.Context, id string, update func(*bookRecord)) error {
	if e.store == nil {
		return nil
	}
	key := "books/" + id
	var rec bookRecord
	if _, err := store.GetJSON(ctx, e.store, key, &rec); err != nil {
		return fmt.Errorf("jarir: load book record: %w: %w", ErrIO, err)
	}
	update(&rec)
	if err := store.SetJSON(ctx, e.store, key, rec); err != nil {
		return fmt.Errorf("jarir: save book record: %w: %w", ErrIO, err)
	}
	return nil
}

// copyImages copies the images of src into dest. A missing src is fine.
func copyImages(src, dest string) error {
	images, err := collectImages(src)
	if err != nil || len(images) == 0 {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return ioError("create "+dest, err)
	}
	for _, img := range images {
		data, err := os.ReadFile(img.path)
		if err != nil {
			return ioError("read "+img.path, err)
		}
		if err := os.WriteFile(filepath.Join(dest, img.name), data, 0o644); err != nil {
			return ioError("write "+img.name, err)
		}
	}
	return nil
}
