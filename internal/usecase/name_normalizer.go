package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// qualifierPrefixes are leading words that do not change which item is meant
var qualifierPrefixes = map[string]bool{
	"a":       true,
	"an":      true,
	"the":     true,
	"some":    true,
	"fresh":   true,
	"organic": true,
}

// nameNoiseRegex matches anything that is not a letter, digit, space, hyphen or apostrophe
var nameNoiseRegex = regexp.MustCompile(`[^\p{L}\p{N}\s'-]+`)

// Normalize canonicalizes a free-text item name into the join key used by the
// ledger: accents folded, lowercased, punctuation collapsed, leading qualifier
// words removed and the last word singularized. Normalize is idempotent.
func Normalize(raw string) string {
	s := foldAccents(strings.TrimSpace(raw))
	s = strings.ToLower(s)
	s = nameNoiseRegex.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	// Strip qualifiers but never the last remaining word
	for len(words) > 1 && qualifierPrefixes[words[0]] {
		words = words[1:]
	}

	last := len(words) - 1
	words[last] = Singularize(words[last])

	return strings.Join(words, " ")
}

// Singularize applies the English plural rules used for item names:
// -oes/-ches/-shes drop "es", -ies becomes -y, -ves becomes -f, otherwise a
// trailing "s" is dropped unless the word is two letters or shorter or ends in "ss".
// The rules are applied without an exceptions list, so "pies" gives "py".
func Singularize(word string) string {
	n := len(word)
	switch {
	case n <= 2:
		return word
	case strings.HasSuffix(word, "oes"), strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"):
		return word[:n-2]
	case strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case strings.HasSuffix(word, "ves"):
		return word[:n-3] + "f"
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:n-1]
	}
	return word
}

// foldAccents strips combining marks so "jalapeño" and "jalapeno" compare equal
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
