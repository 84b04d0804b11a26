package usecase

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Matching defaults
const (
	defaultMinSimilarity      = 50
	defaultMaxResults         = 10
	defaultDuplicateThreshold = 85
)

// FuzzyMatch is one ranked candidate
type FuzzyMatch struct {
	Name       string `json:"name"`
	Similarity int    `json:"similarity"`
	IsExact    bool   `json:"isExact"`
}

// MatchOptions bounds a fuzzy search. A nil MinSimilarity and a zero
// MaxResults fall back to the defaults; an explicit threshold of 0 keeps every
// candidate.
type MatchOptions struct {
	MinSimilarity *int
	MaxResults    int
}

// Threshold returns a pointer to a similarity threshold for MatchOptions
func Threshold(v int) *int {
	return &v
}

// FuzzyMatcher ranks candidate item names against a query
type FuzzyMatcher struct {
	minSimilarity      int
	maxResults         int
	duplicateThreshold int
}

// FuzzyMatcherConfig holds configuration for the fuzzy matcher
type FuzzyMatcherConfig struct {
	MinSimilarity      *int // nil means the default; 0 keeps every candidate
	MaxResults         int
	DuplicateThreshold int
}

// NewFuzzyMatcher creates a matcher with the given defaults
func NewFuzzyMatcher(config FuzzyMatcherConfig) *FuzzyMatcher {
	m := &FuzzyMatcher{
		minSimilarity:      defaultMinSimilarity,
		maxResults:         config.MaxResults,
		duplicateThreshold: config.DuplicateThreshold,
	}
	if config.MinSimilarity != nil {
		m.minSimilarity = *config.MinSimilarity
	}
	if m.maxResults <= 0 {
		m.maxResults = defaultMaxResults
	}
	if m.duplicateThreshold <= 0 {
		m.duplicateThreshold = defaultDuplicateThreshold
	}
	return m
}

// FindMatches runs FindFuzzyMatches with the matcher's configured bounds
func (m *FuzzyMatcher) FindMatches(query string, candidates []string) []FuzzyMatch {
	return FindFuzzyMatches(query, candidates, MatchOptions{
		MinSimilarity: Threshold(m.minSimilarity),
		MaxResults:    m.maxResults,
	})
}

// IsDuplicate reports whether two names refer to the same item under the matcher's threshold
func (m *FuzzyMatcher) IsDuplicate(a, b string) bool {
	return isDuplicate(a, b, m.duplicateThreshold)
}

// LevenshteinDistance is the classic edit distance with unit-cost insert,
// delete and substitute. A transposition costs two edits.
func LevenshteinDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// CalculateSimilarity scores two strings 0-100 from their case-insensitive edit
// distance normalized by the longer string's length
func CalculateSimilarity(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 100
	}

	longest := utf8.RuneCountInString(la)
	if n := utf8.RuneCountInString(lb); n > longest {
		longest = n
	}
	if longest < 1 {
		longest = 1
	}

	d := LevenshteinDistance(la, lb)
	return int(math.Round(100 * (1 - float64(d)/float64(longest))))
}

// FindFuzzyMatches normalizes the query and every candidate, drops candidates
// that normalize to a name already seen, and returns those scoring at least
// MinSimilarity sorted by similarity (ties keep candidate order), truncated to
// MaxResults. An empty query yields an empty result.
func FindFuzzyMatches(query string, candidates []string, opts MatchOptions) []FuzzyMatch {
	minSimilarity := defaultMinSimilarity
	if opts.MinSimilarity != nil {
		minSimilarity = *opts.MinSimilarity
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	normalizedQuery := Normalize(query)
	if normalizedQuery == "" {
		return []FuzzyMatch{}
	}

	seen := make(map[string]bool, len(candidates))
	matches := make([]FuzzyMatch, 0, len(candidates))

	for _, candidate := range candidates {
		normalized := Normalize(candidate)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		exact := normalized == normalizedQuery
		similarity := 100
		if !exact {
			similarity = CalculateSimilarity(normalizedQuery, normalized)
		}
		if similarity < minSimilarity {
			continue
		}

		matches = append(matches, FuzzyMatch{
			Name:       candidate,
			Similarity: similarity,
			IsExact:    exact,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > opts.MaxResults {
		matches = matches[:opts.MaxResults]
	}
	return matches
}

// IsDuplicateItemName reports whether two pantry item names describe the same item
func IsDuplicateItemName(a, b string) bool {
	return isDuplicate(a, b, defaultDuplicateThreshold)
}

func isDuplicate(a, b string, threshold int) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return CalculateSimilarity(na, nb) > threshold
}
