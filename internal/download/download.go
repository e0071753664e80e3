// Package download derives download filenames and headers from a snippet.
//
// The editor downloads a snippet as a plain file: the body is the raw code
// bytes and the filename comes from the title plus the language's extension
// ("hello.js", "solver.py"). The frontend reads the name back out of the
// Content-Disposition header, so the header must always carry a sensible,
// filesystem-safe name — even for an untitled snippet.
package download

import (
	"fmt"
	"strings"
	"time"

	"github.com/sakif/code-share/internal/model"
)

// unsafeChars are characters that are path separators or otherwise rejected
// by common filesystems (Windows is the strictest). Each is replaced with a
// hyphen rather than stripped, so "a/b" and "ab" stay distinguishable.
const unsafeChars = `/\:*?"<>|`

// Filename returns the download filename for a snippet.
//
// An empty (or whitespace) title falls back to the current date plus a fixed
// "code" suffix — "2026-09-01-code.go" — so the saved file still says what
// and roughly when, instead of being called ".go".
//
// now is a parameter, not time.Now(), so tests can pin the date.
func Filename(snippet *model.Snippet, now time.Time) string {
	base := sanitize(snippet.Title)
	if base == "" {
		base = now.Format("2006-01-02") + "-code"
	}
	return base + "." + snippet.Language.Extension()
}

// ContentDisposition builds the attachment header value for a filename.
// Quotes in the name would break the header's own quoting, so they are
// stripped by sanitize before we get here.
func ContentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

// sanitize makes a title safe to use as a filename: trims whitespace,
// replaces separator/reserved characters with hyphens and drops quotes.
func sanitize(title string) string {
	title = strings.TrimSpace(title)

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case strings.ContainsRune(unsafeChars, r):
			b.WriteRune('-')
		case r == '"':
			// dropped entirely — see ContentDisposition
		case r < 0x20:
			// control characters have no business in a filename
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
