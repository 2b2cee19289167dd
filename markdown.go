package jarir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// MarkdownConverter turns rendered chapter markup into CommonMark.
// A MarkdownConverter is safe for concurrent use.
type MarkdownConverter struct {
	conv *converter.Converter
}

// NewMarkdownConverter returns a converter with the base and CommonMark
// plugins.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Convert returns the chapter as Markdown, headed by its title.
func (m *MarkdownConverter) Convert(ch Chapter) (string, error) {
	md, err := m.conv.ConvertString(ch.Markup)
	if err != nil {
		return "", fmt.Errorf("jarir: convert %s to markdown: %w", ch.Filename, err)
	}
	var b strings.Builder
	if ch.Title != "" && ch.Title != UntitledChapter {
		b.WriteString("# " + ch.Title + "\n\n")
	}
	b.WriteString(strings.TrimSpace(md))
	b.WriteString("\n")
	return b.String(), nil
}

// WriteMarkdown writes every chapter to dir as <filename>.md.
func (m *MarkdownConverter) WriteMarkdown(dir string, chapters []Chapter) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioError("create "+dir, err)
	}
	for _, ch := range chapters {
		md, err := m.Convert(ch)
		if err != nil {
			return err
		}
		p := filepath.Join(dir, ch.Filename+".md")
		if err := os.WriteFile(p, []byte(md), 0o644); err != nil {
			return ioError("write "+p, err)
		}
	}
	return nil
}

// WriteText writes the plain text of every chapter to dir as
// <filename>.txt.
func WriteText(dir string, chapters []Chapter) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioError("create "+dir, err)
	}
	for _, ch := range chapters {
		text, err := TextContent(ch.Markup)
		if err != nil {
			return fmt.Errorf("jarir: extract text of %s: %w", ch.Filename, err)
		}
		p := filepath.Join(dir, ch.Filename+".txt")
		if err := os.WriteFile(p, []byte(text+"\n"), 0o644); err != nil {
			return ioError("write "+p, err)
		}
	}
	return nil
}
