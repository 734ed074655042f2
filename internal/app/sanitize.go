package app

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NameMaxLength bounds display names after sanitization.
const NameMaxLength = 32

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize normalizes user supplied text: NFC form, markup and control
// characters removed, whitespace collapsed, truncated to max runes.
func Sanitize(text string, max int) string {
	if text == "" {
		return ""
	}
	clean := norm.NFC.String(text)
	clean = markupPattern.ReplaceAllString(clean, "")
	clean = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			return -1
		case strings.ContainsRune("<>\"'`", r):
			return -1
		}
		return r
	}, clean)
	clean = strings.Join(strings.Fields(clean), " ")
	if max > 0 && utf8.RuneCountInString(clean) > max {
		clean = strings.TrimSpace(string([]rune(clean)[:max]))
	}
	return clean
}

// SanitizeName applies Sanitize with the display name limit.
func SanitizeName(name string) string {
	return Sanitize(name, NameMaxLength)
}
