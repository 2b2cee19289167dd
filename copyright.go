package jarir

import (
	"encoding/base64"
	"sync"
)

const (
	copyrightsFilename = "copyrights"
	copyrightsTitleAR  = "حقوق الناشر"
	copyrightsTitleEN  = "Copyrights"
)

// copyrightsText is the bilingual notice appended to every EPUB.
const copyrightsText = "KNiq2YXYqikKCi0tLS0tLS0tLS0KCjEtINmH2LDYpyDYp9mE2YPYqtin2Kgg2KrZhSDYp9i12K/Yp9ix2Ycg2YjYp9mG2KrYp9is2Ycg2YTZgtin2LHYpiDYrNix2YrYsS/YsdmB2YjZgSDZiNmK2YXZhti5INmF2YbYudin2Ysg2KjYp9iq2KfZiyDZhti02LHZhyDYqNiv2YjZhiDYp9iw2YYg2K7Yt9mKINmF2YYg2LTYsdmD2Kkg2KzYsdmK2LEv2LHZgdmI2YEuCjItINin2LDYpyDZgtmF2Kog2KjZhti02LEg2KfZhNmD2KrYp9ioINmB2KPZhtmDINiq2YPZiNmGINmC2K8g2KfZgtiq2LHZgdiqINiu2LfYoyDZgtin2YbZiNmG2YrYp9mLINmK2KzYsdmF2Ycg2KfZhNmC2KfZhtmI2YYg2YjZitit2YIg2YTYtNix2YPYqSDYrNix2YrYsS/YsdmB2YjZgSDZhdmC2KfYttin2KrZgyDZiNmF2YTYp9it2YLYqtmDINmC2KfZhtmI2YbZitin2YsuCjMtINmE2Kcg2YrYqtit2YXZhCDZhdi32YjYsSDYo9iv2KfYqSDYp9mE2YXYrdmI2YQg2KfZhNiw2Yog2KrZhSDYqNmH2Kcg2KfYs9iq2K7Ysdin2Kwg2KfZhNmD2KrYp9ioINij2Yog2KrYqNi52KfYqiDZgtin2YbZiNmG2YrYqSDYqtit2K/YqyDZhdmGINij2Yog2YHYsdivINin2Ygg2YXYpNiz2LPYqSDYo9mIINis2YfYqSDYo9mKINmD2KfZhiDZhtmI2LnZh9inINiq2YLZiNmFINio2YHYudmEINi62YrYsSDZgtin2YbZiNmKINio2KfZhNin2K/Yp9ipINmD2YbYtNixINin2YTZg9iq2Kgg2K/ZiNmGINin2LDZhiDZhdmGINi02LHZg9ipINis2LHZitixL9ix2YHZiNmBLgo0LSDYo9mGINmG2LTYsdmDINmE2YfYsNinINin2YTZg9iq2KfYqCDZhNi12YrYutipINin2K7YsdmJINi52KjYsSDYp9mE2KfYr9in2Kkg2YfZiiDZhNin2LLYp9mE2Kkg2KfZhNiv2Yog2KfYsSDYp9mFINmI2KfZhNmC2LHYp9ih2Kkg2KjYsdin2K3YqSDYudmE2Ykg2KfZiiDYudin2LHYtiDYp9iu2LHZiSDZhNmDINi02K7YtdmK2Kcg2YjZhNin2YrYudi32YrZgyDYp9mE2K3ZgiDYqNmG2LTYsSDYp9mE2YPYqtin2Kgg2YjZhNinINiq2YjYstmK2LnZhy4KOTktIERvIG5vdCBzaGFyZSwgc2VsbCwgYW5kL29yIGRpc3RyaWJ1dGUgdGhpcyBjb3B5cmlnaHRlZCBtYXRlcmlhbCEgQnkgdmlvbGF0aW5nIHRoZXNlIHRlcm1zLCB5b3UgYXJlIHN1YmplY3RlZCB0byBsZWdhbCBwcm9jZWVkaW5ncyBhZ2FpbnN0IHlvdSBieSBKYXJpci9SdWZvb2YgY29tcGFueSBhbmQgd2UgKHRvb2wgZGV2ZWxvcGVyKSBhcmUgbm90IHJlc3BvbnNpYmxlIGJ5IGFueSBtZWFucyBieSB5b3VyIGZvdWwgYWN0aW9ucy5vdXIgcGVyc29uYWwgdXNlIG9ubHkgYW5kIHRoYXQgeW8iCgoKLS0tLS0tLS0tLQ=="

// copyrightsSpans bolds the leading marker of the notice.
var copyrightsSpans = []Span{{Start: 0, End: 5, Types: []int{TypeBold}}}

var copyrightsOnce = sync.OnceValue(func() string {
	b, err := base64.StdEncoding.DecodeString(copyrightsText)
	if err != nil {
		panic("jarir: copyrights text: " + err.Error())
	}
	return string(b)
})

// CopyrightsChapter returns the trailing publisher-rights chapter. Its title
// is Arabic for Arabic books and English otherwise; its paragraphs are
// always right to left.
func CopyrightsChapter(r *Renderer, lang string) Chapter {
	if r == nil {
		r = NewRenderer(nil)
	}
	text := copyrightsOnce()
	title := copyrightsTitleEN
	if isArabic(lang) {
		title = copyrightsTitleAR
	}
	return Chapter{
		Title:    title,
		Filename: copyrightsFilename,
		Markup:   "<body>" + Paragraphs(r.Render(text, copyrightsSpans), true) + "</body>",
		Text:     text,
	}
}
