package registryparser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// termSet collects search terms in insertion order without duplicates.
type termSet struct {
	seen  map[string]struct{}
	terms []string
}

func newTermSet() *termSet {
	return &termSet{seen: make(map[string]struct{})}
}

func (s *termSet) add(term string) {
	if term == "" {
		return
	}
	if _, ok := s.seen[term]; ok {
		return
	}
	s.seen[term] = struct{}{}
	s.terms = append(s.terms, term)
}

// addVariants adds the lower-cased literal, its alphanumeric-only form and the
// diacritic-folded alphanumeric form.
func (s *termSet) addVariants(value string) {
	literal := strings.ToLower(strings.TrimSpace(value))
	if literal == "" {
		return
	}
	s.add(literal)

	alnum := alphanumericOnly(literal)
	s.add(alnum)
	s.add(foldDiacritics(alnum))
}

func alphanumericOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// foldDiacritics strips combining marks, so "ł" stays but "ó" becomes "o".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// initials returns the lower-cased first letters of a multi-word name, or an
// empty string for single words.
func initials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) < 2 {
		return ""
	}

	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			b.WriteRune(unicode.ToLower(r))
			break
		}
	}
	return b.String()
}

// BuildSearchTerms derives the deduplicated search terms of a drug.
func BuildSearchTerms(tradeName, commonName string, substances []string, atcCode, manufacturer, form string) []string {
	set := newTermSet()

	set.addVariants(tradeName)
	set.addVariants(commonName)
	for _, substance := range substances {
		set.addVariants(substance)
	}
	set.addVariants(atcCode)
	set.addVariants(manufacturer)
	set.add(initials(manufacturer))
	set.addVariants(form)

	return set.terms
}

// SplitSubstances splits an active substance list on commas and semicolons,
// trimming and deduplicating case-insensitively.
func SplitSubstances(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})

	seen := make(map[string]struct{}, len(parts))
	substances := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		substances = append(substances, p)
	}
	return substances
}
