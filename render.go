package jarir

import (
	"log/slog"
	"slices"
	"strings"
)

// Style type identifiers used in .spans files.
const (
	TypeBold        = 0
	TypeItalic      = 1
	TypeHeading     = 2
	TypeSmall       = 3
	TypeBlockquote  = 4
	TypeCode        = 5
	TypeUnderline   = 6
	TypeSuperscript = 7
	TypeSubscript   = 8
	TypePoetryRight = 9
	TypePoetryLeft  = 10
	TypeCenter      = 11
	TypeQuran       = 12
	TypeColor       = 100
	TypeLink        = 101
	TypeTitle       = 102
	TypeImage       = 104
)

// inlineStyles maps the payload-free inline types to their element.
var inlineStyles = map[int]string{
	TypeBold:        "strong",
	TypeItalic:      "em",
	TypeSmall:       "small",
	TypeCode:        "code",
	TypeUnderline:   "u",
	TypeSuperscript: "sup",
	TypeSubscript:   "sub",
}

type blockStyle struct {
	tag   string
	class string
}

// blockStyles maps block types to their element. TypeImage is handled
// separately because it replaces the text.
var blockStyles = map[int]blockStyle{
	TypeHeading:     {tag: "h3"},
	TypeBlockquote:  {tag: "blockquote"},
	TypePoetryRight: {tag: "div", class: "poetry-right"},
	TypePoetryLeft:  {tag: "div", class: "poetry-left"},
	TypeCenter:      {tag: "p", class: "center"},
	TypeQuran:       {tag: "div", class: "quran"},
	TypeTitle:       {tag: "h1"},
}

func isInlineType(id int) bool {
	_, ok := inlineStyles[id]
	return ok || id == TypeColor || id == TypeLink
}

func isBlockType(id int) bool {
	_, ok := blockStyles[id]
	return ok || id == TypeImage
}

// Renderer turns chapter plaintext and its spans into markup.
// A Renderer is safe for concurrent use.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer returns a Renderer that reports unknown type ids to logger.
// A nil logger uses slog.Default().
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// RenderSpans renders text with the default renderer.
func RenderSpans(text string, spans []Span) string {
	return NewRenderer(nil).Render(text, spans)
}

// Render applies spans to text. The text itself is escaped and never
// interpreted as markup; all elements come from the spans.
//
// Spans with identical offsets are merged first. Offsets are character
// offsets; an end past the text is clamped and a start past the end is
// moved to the end. Spans are nested by containment, and a span that
// crosses the end of the span containing its start is split at that
// boundary so the markup stays well formed. Inline styles wrap the text
// innermost-first in ascending type id; at most one block style applies
// per span, the lowest block id present. Spans are cut at line breaks so
// the output of Paragraphs stays well formed.
func (r *Renderer) Render(text string, spans []Span) string {
	runes := []rune(text)
	st := &renderState{
		runes:  runes,
		logger: r.logger,
		warned: make(map[int]bool),
	}
	root := buildSpanTree(normalizeSpans(spans, runes), len(runes))
	return st.render(root)
}

// normalizeSpans clamps spans to the text, cuts them at line breaks, merges
// identical ranges and drops empty spans that carry no image.
func normalizeSpans(spans []Span, runes []rune) []Span {
	n := len(runes)
	cut := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Start = max(s.Start, 0)
		s.End = min(max(s.End, 0), n)
		s.Start = min(s.Start, s.End)
		if slices.Contains(s.Types, TypeImage) {
			cut = append(cut, s)
			continue
		}
		cut = appendLineSegments(cut, s, runes)
	}

	merged := MergeSpans(cut)
	out := merged[:0]
	for _, s := range merged {
		if s.Start == s.End && !slices.Contains(s.Types, TypeImage) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// appendLineSegments appends the parts of s that lie between line breaks.
// The paragraph pass splits on newlines, so no element may contain one.
func appendLineSegments(dst []Span, s Span, runes []rune) []Span {
	from := s.Start
	for i := s.Start; i < s.End; i++ {
		if runes[i] != '\n' {
			continue
		}
		if i > from {
			seg := s
			seg.Start, seg.End = from, i
			dst = append(dst, seg)
		}
		from = i + 1
	}
	if from < s.End {
		seg := s
		seg.Start = from
		dst = append(dst, seg)
	}
	return dst
}

type spanNode struct {
	span     Span
	root     bool
	children []*spanNode
}

// buildSpanTree arranges sorted spans into a containment tree rooted at a
// node covering the whole text. Children of a node are disjoint and ordered.
func buildSpanTree(spans []Span, n int) *spanNode {
	root := &spanNode{span: Span{Start: 0, End: n}, root: true}
	stack := []*spanNode{root}
	queue := slices.Clone(spans)

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for len(stack) > 1 && stack[len(stack)-1].span.End <= s.Start {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]

		if s.End > parent.span.End {
			rest := s
			rest.Start = parent.span.End
			s.End = parent.span.End
			i, _ := slices.BinarySearchFunc(queue, rest, func(a, b Span) int {
				if c := compareSpans(a, b); c != 0 {
					return c
				}
				return -1
			})
			queue = slices.Insert(queue, i, rest)
		}

		node := &spanNode{span: s}
		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}
	return root
}

type renderState struct {
	runes  []rune
	logger *slog.Logger
	warned map[int]bool
}

// render splices the text between child spans character for character.
// Gap text is only escaped so it stays text in the XHTML output.
func (st *renderState) render(n *spanNode) string {
	var b strings.Builder
	pos := n.span.Start
	for _, c := range n.children {
		b.WriteString(escapeText(string(st.runes[pos:c.span.Start])))
		b.WriteString(st.render(c))
		pos = c.span.End
	}
	b.WriteString(escapeText(string(st.runes[pos:n.span.End])))

	if n.root {
		return b.String()
	}
	return st.wrap(n.span, b.String())
}

// wrap applies the inline styles of s to content, then its block style.
func (st *renderState) wrap(s Span, content string) string {
	block := -1
	var inline []int
	for _, id := range s.Types {
		switch {
		case isInlineType(id):
			inline = append(inline, id)
		case isBlockType(id):
			if block == -1 || id < block {
				block = id
			}
		default:
			if !st.warned[id] {
				st.warned[id] = true
				st.logger.Warn("unsupported span type", "type_id", id, "start", s.Start, "end", s.End)
			}
		}
	}

	if block == TypeImage {
		return imageTag(s)
	}

	for _, id := range inline {
		content = st.inlineTag(id, s, content)
	}

	if block != -1 {
		bs := blockStyles[block]
		open := "<" + bs.tag
		if bs.class != "" {
			open += ` class="` + bs.class + `"`
		}
		content = open + ">" + content + "</" + bs.tag + ">"
	}
	return content
}

func (st *renderState) inlineTag(id int, s Span, content string) string {
	switch id {
	case TypeColor:
		if s.Extra == "" {
			return content
		}
		return `<span style="color:` + escapeAttr(s.Extra) + `">` + content + "</span>"
	case TypeLink:
		if s.Extra == "" || !isSafeURI(s.Extra) {
			return content
		}
		return `<a href="` + escapeAttr(strings.TrimSpace(s.Extra)) + `">` + content + "</a>"
	}
	tag := inlineStyles[id]
	return "<" + tag + ">" + content + "</" + tag + ">"
}

// imageTag renders an image span. The covered text is discarded.
func imageTag(s Span) string {
	src := cleanImagePath(s.Extra)
	if src == "" {
		return ""
	}
	return `<img src="` + escapeAttr(src) + `"/>`
}

// Paragraphs wraps every non-blank line of markup in a paragraph element,
// right-to-left when rtl is set. Blank lines become bare newlines.
func Paragraphs(markup string, rtl bool) string {
	open := "<p>"
	if rtl {
		open = `<p style="direction:rtl">`
	}

	var b strings.Builder
	for _, line := range strings.Split(markup, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(open)
		b.WriteString(line)
		b.WriteString("</p>")
	}
	return b.String()
}
