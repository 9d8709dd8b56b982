package format

import (
	"html"
	"regexp"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// EscapeHTML escapes user-provided text for safe interpolation into
// HTML-formatted Telegram messages.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// StripTags removes all HTML tags from a message. Used for the degraded
// retry after the Telegram API rejects a formatted send.
func StripTags(text string) string {
	return tagRe.ReplaceAllString(text, "")
}
