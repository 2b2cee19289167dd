package jarir

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRenderSpans(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []Span
		want  string
	}{
		{
			name: "no spans",
			text: "a < b & c",
			want: "a &lt; b &amp; c",
		},
		{
			name:  "bold",
			text:  "Hello world",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeBold}}},
			want:  "<strong>Hello</strong> world",
		},
		{
			name: "merged inline types wrap in ascending order",
			text: "Hello world",
			spans: []Span{
				{Start: 0, End: 5, Types: []int{TypeBold}},
				{Start: 0, End: 5, Types: []int{TypeItalic}},
			},
			want: "<em><strong>Hello</strong></em> world",
		},
		{
			name:  "heading",
			text:  "Hello world",
			spans: []Span{{Start: 6, End: 11, Types: []int{TypeHeading}}},
			want:  "Hello <h3>world</h3>",
		},
		{
			name:  "character offsets",
			text:  "مرحبا بكم",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeBold}}},
			want:  "<strong>مرحبا</strong> بكم",
		},
		{
			name:  "end clamped to text",
			text:  "abc",
			spans: []Span{{Start: 1, End: 99, Types: []int{TypeItalic}}},
			want:  "a<em>bc</em>",
		},
		{
			name:  "span past the text is dropped",
			text:  "abc",
			spans: []Span{{Start: 5, End: 9, Types: []int{TypeBold}}},
			want:  "abc",
		},
		{
			name: "nested",
			text: "abcdef",
			spans: []Span{
				{Start: 0, End: 6, Types: []int{TypeBold}},
				{Start: 2, End: 4, Types: []int{TypeItalic}},
			},
			want: "<strong>ab<em>cd</em>ef</strong>",
		},
		{
			name: "crossing spans are split",
			text: "abcdef",
			spans: []Span{
				{Start: 0, End: 4, Types: []int{TypeBold}},
				{Start: 2, End: 6, Types: []int{TypeItalic}},
			},
			want: "<strong>ab<em>cd</em></strong><em>ef</em>",
		},
		{
			name:  "block wraps inline",
			text:  "Title",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeBold, TypeHeading}}},
			want:  "<h3><strong>Title</strong></h3>",
		},
		{
			name:  "lowest block id wins",
			text:  "Title",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeCenter, TypeHeading}}},
			want:  "<h3>Title</h3>",
		},
		{
			name:  "block with class",
			text:  "verse",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeQuran}}},
			want:  `<div class="quran">verse</div>`,
		},
		{
			name:  "image replaces text",
			text:  "x",
			spans: []Span{{Start: 0, End: 1, Types: []int{TypeImage}, Extra: "Images/a.jpg", HasExtra: true}},
			want:  `<img src="./Images/a.jpg"/>`,
		},
		{
			name:  "image path cannot escape",
			text:  "x",
			spans: []Span{{Start: 0, End: 1, Types: []int{TypeImage}, Extra: "../../a.png", HasExtra: true}},
			want:  `<img src="./a.png"/>`,
		},
		{
			name:  "image without path",
			text:  "x",
			spans: []Span{{Start: 0, End: 1, Types: []int{TypeImage}}},
			want:  "",
		},
		{
			name:  "empty image span",
			text:  "ab",
			spans: []Span{{Start: 1, End: 1, Types: []int{TypeImage}, Extra: "i.png", HasExtra: true}},
			want:  `a<img src="./i.png"/>b`,
		},
		{
			name:  "link",
			text:  "go",
			spans: []Span{{Start: 0, End: 2, Types: []int{TypeLink}, Extra: "https://x.y/?a=1&b=2", HasExtra: true}},
			want:  `<a href="https://x.y/?a=1&amp;b=2">go</a>`,
		},
		{
			name:  "unsafe link dropped",
			text:  "go",
			spans: []Span{{Start: 0, End: 2, Types: []int{TypeLink}, Extra: "javascript:alert(1)", HasExtra: true}},
			want:  "go",
		},
		{
			name:  "link without target",
			text:  "go",
			spans: []Span{{Start: 0, End: 2, Types: []int{TypeLink}}},
			want:  "go",
		},
		{
			name:  "color",
			text:  "go",
			spans: []Span{{Start: 0, End: 2, Types: []int{TypeColor}, Extra: "#ff0000", HasExtra: true}},
			want:  `<span style="color:#ff0000">go</span>`,
		},
		{
			name:  "unknown type ignored",
			text:  "go",
			spans: []Span{{Start: 0, End: 2, Types: []int{999, TypeBold}}},
			want:  "<strong>go</strong>",
		},
		{
			name:  "spans cut at line breaks",
			text:  "ab\ncd",
			spans: []Span{{Start: 0, End: 5, Types: []int{TypeBold}}},
			want:  "<strong>ab</strong>\n<strong>cd</strong>",
		},
		{
			name: "quotes left alone",
			text: `say "hi"`,
			want: `say "hi"`,
		},
	}
	r := NewRenderer(slog.New(slog.DiscardHandler))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Render(tt.text, tt.spans); got != tt.want {
				t.Errorf("Render(%q) = %q; want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRenderWarnsOncePerUnknownType(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(slog.New(slog.NewTextHandler(&buf, nil)))

	got := r.Render("abc", []Span{
		{Start: 0, End: 1, Types: []int{999}},
		{Start: 1, End: 2, Types: []int{999}},
		{Start: 2, End: 3, Types: []int{998}},
	})
	if got != "abc" {
		t.Errorf("Render() = %q; want %q", got, "abc")
	}
	if n := strings.Count(buf.String(), "unsupported span type"); n != 2 {
		t.Errorf("logged %d warnings; want 2 (one per id)\n%s", n, buf.String())
	}
}

func TestRenderDoesNotModifySpans(t *testing.T) {
	spans := []Span{{Start: 0, End: 99, Types: []int{TypeItalic, TypeBold}}}
	RenderSpans("abc", spans)
	if spans[0].End != 99 || spans[0].Types[0] != TypeItalic {
		t.Errorf("spans modified: %+v", spans[0])
	}
}

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		rtl    bool
		want   string
	}{
		{"single line", "a", false, "<p>a</p>"},
		{"blank line kept", "a\n\nb", false, "<p>a</p>\n<p>b</p>"},
		{"whitespace line is blank", "a\n  \nb", false, "<p>a</p>\n<p>b</p>"},
		{"rtl", "a", true, `<p style="direction:rtl">a</p>`},
		{"empty", "", false, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Paragraphs(tt.markup, tt.rtl); got != tt.want {
				t.Errorf("Paragraphs(%q, %v) = %q; want %q", tt.markup, tt.rtl, got, tt.want)
			}
		})
	}
}

func TestRenderedMarkupParses(t *testing.T) {
	text := "first line\nsecond & third\nfourth"
	spans := []Span{
		{Start: 0, End: 20, Types: []int{TypeBold}},
		{Start: 6, End: 25, Types: []int{TypeItalic}},
		{Start: 11, End: 17, Types: []int{TypeHeading}},
	}
	body := "<body>" + Paragraphs(RenderSpans(text, spans), false) + "</body>"
	got, err := TextContent(body)
	if err != nil {
		t.Fatalf("TextContent: %v", err)
	}
	if want := "first line\nsecond & third\nfourth"; got != want {
		t.Errorf("TextContent(rendered) = %q; want %q", got, want)
	}
}
