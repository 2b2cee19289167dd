package jarir

import (
	"log/slog"
	"strings"
	"testing"
)

func BenchmarkStreamCipher(b *testing.B) {
	data := make([]byte, 1<<20)
	b.SetBytes(int64(len(data)))
	for b.Loop() {
		c, err := NewStreamCipher(DefaultBookKey.Bytes())
		if err != nil {
			b.Fatal(err)
		}
		c.Decrypt(data)
	}
}

func benchSpans(n int) (string, []Span) {
	text := strings.Repeat("lorem ipsum dolor sit amet\n", n)
	var spans []Span
	for i := 0; i < n; i++ {
		start := i * 27
		spans = append(spans,
			Span{Start: start, End: start + 5, Types: []int{TypeBold}},
			Span{Start: start + 6, End: start + 17, Types: []int{TypeItalic, TypeUnderline}},
			Span{Start: start, End: start + 26, Types: []int{TypeCenter}},
		)
	}
	return text, spans
}

func BenchmarkRender(b *testing.B) {
	text, spans := benchSpans(500)
	r := NewRenderer(slog.New(slog.DiscardHandler))
	for b.Loop() {
		r.Render(text, spans)
	}
}

func BenchmarkMergeSpans(b *testing.B) {
	_, spans := benchSpans(500)
	spans = append(spans, spans...)
	for b.Loop() {
		MergeSpans(spans)
	}
}
