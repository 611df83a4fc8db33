// Package stringutils derives display titles from message content.
package stringutils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlPattern          = regexp.MustCompile(`(?i)(https?://|www\.)[^\s]+`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	multiSpacePattern   = regexp.MustCompile(`\s+`)
)

// sanitize strips URLs, markdown links and noise characters so the
// remainder reads as a plain title.
func sanitize(content string) string {
	content = urlPattern.ReplaceAllString(content, "")
	content = markdownLinkPattern.ReplaceAllString(content, "$1")

	var out strings.Builder
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(".,!?-'", r) {
			out.WriteRune(r)
		}
	}
	content = multiSpacePattern.ReplaceAllString(out.String(), " ")
	return strings.TrimRight(strings.TrimSpace(content), " .,!?-'")
}

// truncate cuts at maxLen bytes, preferring a word boundary in the second
// half. The cut always lands on a rune boundary so multibyte content never
// yields invalid UTF-8.
func truncate(title string, maxLen int) string {
	if len(title) <= maxLen {
		return title
	}

	ellipsis := "..."
	limit := maxLen - len(ellipsis)
	if limit < 0 {
		limit = 0
	}
	for limit > 0 && !utf8.RuneStart(title[limit]) {
		limit--
	}
	cut := title[:limit]
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > limit/2 {
		cut = strings.TrimRight(cut[:lastSpace], " ")
	}
	return cut + ellipsis
}

// GenerateTitle creates a clean, truncated title from content. Returns ""
// when nothing usable survives sanitization.
func GenerateTitle(content string, maxLen int) string {
	sanitized := sanitize(content)
	if sanitized == "" {
		return ""
	}
	return truncate(sanitized, maxLen)
}
