package registryparser

import (
	"strings"
	"unicode"
)

// SanitizeLink trims and strips control characters from a document URL. It
// returns nil unless the cleaned value starts with an http(s) scheme.
func SanitizeLink(raw string) *string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw))

	if cleaned == "" {
		return nil
	}

	lower := strings.ToLower(cleaned)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil
	}

	return &cleaned
}
