// Package content normalizes user-submitted question and answer text.
package content

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
// Looks for opening tags like <p>, <br>, <div>, <b>, etc.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|pre|code|h[1-6]|blockquote)[\s>/]`)

// ContainsHTML checks if a string appears to contain HTML markup.
// Returns true if common HTML tags are detected.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// ToMarkdown converts HTML content to Markdown. Content pasted from rich
// editors or imported from other forums arrives as HTML; stored content is
// always Markdown. If the input doesn't contain HTML, it's returned
// unchanged apart from sanitation.
func ToMarkdown(s string) string {
	s = Sanitize(s)
	if s == "" || !ContainsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// If conversion fails, keep the original string
		return s
	}

	return strings.TrimSpace(markdown)
}

// Sanitize removes null bytes and other control characters (newlines and
// tabs excepted) from user text. Pasted input sometimes carries null
// terminators, which break JSON encoding and store keys.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeTitle is Sanitize plus single-line folding for titles: newlines
// and tabs become spaces, runs collapse, ends trim.
func SanitizeTitle(s string) string {
	return strings.Join(strings.Fields(Sanitize(s)), " ")
}
