// Package htmlsanitize strips markup from user-supplied text before it is
// stored. Templates escape on output, so stored values are plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag; script and style bodies are dropped with them.
var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML from s, decodes the entities bluemonday
// produces, and trims surrounding whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
