package data

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/registryparser/entities"
)

// Compile-time check to ensure SearchIndex implements interfaces.SearchIndex
var _ interfaces.SearchIndex = (*SearchIndex)(nil)

// SearchIndex is an inverted index from search term to drug positions. It is
// immutable once built.
type SearchIndex struct {
	drugs     []entities.Drug
	byID      map[string]int
	terms     map[string][]int
	termList  []string
	writtenAt time.Time
}

// NewSearchIndex indexes the search terms of drugs.
func NewSearchIndex(drugs []entities.Drug, writtenAt time.Time) *SearchIndex {
	ix := &SearchIndex{
		drugs:     drugs,
		byID:      make(map[string]int, len(drugs)),
		terms:     make(map[string][]int),
		writtenAt: writtenAt,
	}

	for i, d := range drugs {
		if _, exists := ix.byID[d.ID]; !exists {
			ix.byID[d.ID] = i
		}
		for _, term := range d.SearchTerms {
			positions := ix.terms[term]
			if len(positions) > 0 && positions[len(positions)-1] == i {
				continue
			}
			ix.terms[term] = append(positions, i)
		}
	}

	ix.termList = make([]string, 0, len(ix.terms))
	for term := range ix.terms {
		ix.termList = append(ix.termList, term)
	}
	slices.Sort(ix.termList)

	return ix
}

func (ix *SearchIndex) Len() int {
	return len(ix.drugs)
}

func (ix *SearchIndex) Lookup(id string) (entities.Drug, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return entities.Drug{}, false
	}
	return ix.drugs[i], true
}

// Search returns drugs whose terms equal the query first, then drugs with a
// term containing it, each group in feed order. limit <= 0 means no limit.
func (ix *SearchIndex) Search(query string, limit int) []entities.Drug {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, q)

	seen := make(map[int]bool)
	var exact []int
	for _, term := range []string{q, compact} {
		for _, pos := range ix.terms[term] {
			if !seen[pos] {
				seen[pos] = true
				exact = append(exact, pos)
			}
		}
	}
	slices.Sort(exact)

	var partial []int
	for _, term := range ix.termList {
		if !strings.Contains(term, q) && (compact == "" || !strings.Contains(term, compact)) {
			continue
		}
		for _, pos := range ix.terms[term] {
			if !seen[pos] {
				seen[pos] = true
				partial = append(partial, pos)
			}
		}
	}
	slices.Sort(partial)

	positions := append(exact, partial...)
	if limit > 0 && len(positions) > limit {
		positions = positions[:limit]
	}

	results := make([]entities.Drug, 0, len(positions))
	for _, pos := range positions {
		results = append(results, ix.drugs[pos])
	}
	return results
}
