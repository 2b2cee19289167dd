package jarir

import (
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// coverImage is a cover found on the local filesystem.
type coverImage struct {
	// Path is the filesystem path of the image.
	Path string

	// MediaType is derived from the file extension.
	MediaType string
}

// findCover locates a local cover image. Strategies are tried in order:
//  1. the book record's cover, when it is a local file
//  2. the manifest's cover, relative to the working directory
//  3. the first <img> in the rendered chapters
//
// Remote covers are skipped; fetching them belongs to the download client.
func findCover(workDir string, book Book, m Manifest, chapters []Chapter) (coverImage, bool) {
	if c, ok := localCover(book.Cover, ""); ok {
		return c, true
	}
	if c, ok := localCover(m.Cover, workDir); ok {
		return c, true
	}
	for _, ch := range chapters {
		if src := findFirstImageInHTML(ch.Markup); src != "" {
			if c, ok := localCover(src, workDir); ok {
				return c, true
			}
		}
	}
	return coverImage{}, false
}

// localCover resolves ref to an existing image file. Relative references
// are resolved against root when root is set.
func localCover(ref, root string) (coverImage, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || isRemote(ref) {
		return coverImage{}, false
	}

	p := ref
	if root != "" {
		clean := strings.TrimPrefix(cleanImagePath(ref), "./")
		if clean == "" {
			return coverImage{}, false
		}
		p = filepath.Join(root, filepath.FromSlash(clean))
	}

	mediaType := mime.TypeByExtension(strings.ToLower(path.Ext(p)))
	if !isImageMediaType(mediaType) {
		return coverImage{}, false
	}
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		return coverImage{}, false
	}
	return coverImage{Path: p, MediaType: mediaType}, true
}

// isRemote reports whether ref is an absolute http(s) URL.
func isRemote(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// findFirstImageInHTML returns the src of the first <img> in markup, or "".
func findFirstImageInHTML(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	img := findElement(doc, atom.Img)
	if img == nil {
		return ""
	}
	return attrValue(img, "src")
}

// isImageMediaType returns true if the media type starts with "image/".
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
