package core

import (
	"regexp"
	"strings"
)

// space matches the same runes as Python's str.isspace. RE2's \s is ASCII
// only and misses \v, NO-BREAK SPACE and the other Unicode separators.
const space = `\t\n\v\f\r\x{1c}-\x{1f}\x{85}\p{Z}`

var (
	urlPattern   = regexp.MustCompile(`http[^` + space + `]+`)
	nonAlphaText = regexp.MustCompile(`[^a-z` + space + `]`)
)

// CleanText lowercases s, removes URLs and then every character that is not
// a lowercase ASCII letter or whitespace. Unicode spaces count as whitespace.
//
// Stripping can join fragments into a new URL-looking token ("ht-tpx" becomes
// "httpx"), so both passes repeat until no URL remains. Each extra pass
// strictly shortens the text, which keeps CleanText idempotent.
func CleanText(s string) string {
	out := strings.ToLower(s)
	for {
		out = urlPattern.ReplaceAllString(out, "")
		out = nonAlphaText.ReplaceAllString(out, "")
		if !urlPattern.MatchString(out) {
			return out
		}
	}
}
