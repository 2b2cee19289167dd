package jarir

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// textEscaper escapes chapter plaintext for use as element content. Quotes
// are left alone; they are only significant inside attribute values.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText escapes s for use as element content.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// escapeAttr escapes s for use inside a double-quoted attribute value.
func escapeAttr(s string) string {
	return html.EscapeString(s)
}

// paragraphTags is the set of tags that should insert a newline when
// encountered during text extraction.
var paragraphTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H3:         true,
	atom.Blockquote: true,
	atom.Img:        true,
}

// skipTags is the set of tags whose content should be skipped during text extraction.
var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// TextContent extracts the plain text of rendered chapter markup.
// Paragraph-level elements produce line breaks and entities are decoded.
func TextContent(markup string) (string, error) {
	return extractText([]byte(markup))
}

// extractText extracts the plain text content from HTML data.
func extractText(htmlData []byte) (string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlData))

	var buf strings.Builder
	skipDepth := 0
	lastWasNewline := true

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				return strings.TrimSpace(buf.String()), nil
			}
			return "", err

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if tt == html.StartTagToken && skipTags[a] {
				skipDepth++
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if paragraphTags[a] && buf.Len() > 0 && !lastWasNewline {
				buf.WriteByte('\n')
				lastWasNewline = true
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if skipTags[atom.Lookup(tn)] && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := collapseWhitespace(string(tokenizer.Text()))
			if text != "" {
				buf.WriteString(text)
				lastWasNewline = strings.HasSuffix(text, "\n")
			}
		}
	}
}

// collapseWhitespace replaces runs of whitespace with a single space.
// Returns the empty string if s is all whitespace. Leading and trailing
// whitespace is kept as a single space so inline elements keep their spacing.
func collapseWhitespace(s string) string {
	var buf strings.Builder
	inSpace := false
	hasNonSpace := false
	for _, r := range s {
		if isWhitespace(r) {
			inSpace = true
			continue
		}
		if inSpace && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteRune(r)
		inSpace = false
		hasNonSpace = true
	}
	if !hasNonSpace {
		return ""
	}
	result := buf.String()
	if isWhitespace(rune(s[0])) {
		result = " " + result
	}
	if inSpace {
		result += " "
	}
	return result
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// findElement performs a depth-first search for a node with the given atom tag.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

// attrValue returns the value of the attribute named key, or "".
func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// isSafeURI validates link targets before they are rendered as anchors.
// Allowed values:
//   - relative paths and fragments
//   - schemes: http, https, mailto
//   - data:image/*
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") || strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") || strings.HasPrefix(v, "?") {
		return true
	}

	u, err := url.Parse(v)
	if err != nil {
		return false
	}

	if u.Scheme == "" {
		return true
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	default:
		return false
	}
}

// cleanImagePath turns an image payload into a package-relative path with a
// single "./" prefix. Leading separators and "./" or "../" segments are
// dropped so the reference cannot leave the book directory. It returns ""
// when nothing remains.
func cleanImagePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for {
		trimmed := strings.TrimLeft(p, "/")
		trimmed = strings.TrimPrefix(trimmed, "./")
		trimmed = strings.TrimPrefix(trimmed, "../")
		if trimmed == ".." || trimmed == "." {
			trimmed = ""
		}
		if trimmed == p {
			break
		}
		p = trimmed
	}
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if !isSafePath(p) || p == "." {
		return ""
	}
	return "./" + p
}
