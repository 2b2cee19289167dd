package jarir

import (
	"strings"

	"golang.org/x/text/language"
)

// rtlBases lists the base languages written right to left.
var rtlBases = map[string]bool{
	"ar":  true,
	"fa":  true,
	"he":  true,
	"ur":  true,
	"ps":  true,
	"yi":  true,
	"dv":  true,
	"ckb": true,
	"sd":  true,
	"ug":  true,
}

// IsRTL reports whether code names a right-to-left language. Region and
// script subtags are ignored; unparsable codes are treated as left to right.
func IsRTL(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return rtlBases[base.String()]
}

// isArabic reports whether code's base language is Arabic.
func isArabic(code string) bool {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "ar"
}
