// Package redact scrubs credentials from strings before they reach logs or exit messages.
package redact

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Rules run in order; query keys go last so a key=value match on the same text wins.
var rules = []rule{
	{regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`), "Bearer <redacted>"},
	// Env-style and header-style keys echoed by the Gemini client and our own config errors.
	{regexp.MustCompile(`(?i)\b(api[_-]?key|(gemini|google)[_-]?api[_-]?key|x-goog-api-key)\b\s*[:=]\s*[^\s"']+`), "<redacted_kv>"},
	{regexp.MustCompile(`([?&])key=[^&\s"']+`), "${1}key=<redacted>"},
}

// Secrets returns s with API keys and bearer tokens replaced, trimmed of surrounding space.
func Secrets(s string) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.TrimSpace(s)
}
