package markdown

import (
	"html"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// ExcerptLength is the rune budget for list excerpts.
	ExcerptLength = 150
	// WordsPerMinute is the reading speed used for read time estimates.
	WordsPerMinute = 200

	ellipsis = "…"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// PlainText strips tags from rendered HTML, decodes entities and collapses
// whitespace.
func PlainText(htmlContent string) string {
	text := tagPattern.ReplaceAllString(htmlContent, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns the first max runes of the plain text, with an ellipsis
// when anything was cut.
func Excerpt(htmlContent string, max int) string {
	plain := PlainText(htmlContent)
	if utf8.RuneCountInString(plain) <= max {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:max])) + ellipsis
}

// ReadTimeMinutes estimates reading time: words / WordsPerMinute rounded up,
// never less than one minute.
func ReadTimeMinutes(htmlContent string) int {
	words := len(strings.Fields(PlainText(htmlContent)))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
