package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pantryCandidates = []string{"milk", "bread", "eggs", "butter", "cheese", "yam", "jam"}

func TestLevenshteinDistance(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"milk", "milk", 0},
		{"milk", "silk", 1},
		{"milk", "milkk", 1},
		{"milk", "mlk", 1},
		{"milk", "mikl", 2}, // transposition is two edits
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, LevenshteinDistance(tc.a, tc.b))
		})
	}
}

func TestCalculateSimilarity(t *testing.T) {
	assert.Equal(t, 100, CalculateSimilarity("milk", "milk"))
	assert.Equal(t, 100, CalculateSimilarity("Milk", "milk"))
	assert.Equal(t, 100, CalculateSimilarity("", ""))
	assert.Equal(t, 80, CalculateSimilarity("millk", "milk"))
	assert.Equal(t, 75, CalculateSimilarity("milk", "silk"))
	assert.Less(t, CalculateSimilarity("apple", "zebra"), 40)
	assert.Equal(t, 0, CalculateSimilarity("", "abc"))
}

func TestFindFuzzyMatches(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		got := FindFuzzyMatches("", pantryCandidates, MatchOptions{})
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("plural query finds exact singular", func(t *testing.T) {
		got := FindFuzzyMatches("yams", pantryCandidates, MatchOptions{})
		require.NotEmpty(t, got)
		assert.Equal(t, FuzzyMatch{Name: "yam", Similarity: 100, IsExact: true}, got[0])
	})

	t.Run("typo ranks intended item first", func(t *testing.T) {
		got := FindFuzzyMatches("millk", pantryCandidates, MatchOptions{})
		require.NotEmpty(t, got)
		assert.Equal(t, "milk", got[0].Name)
		assert.Greater(t, got[0].Similarity, 75)
		assert.False(t, got[0].IsExact)
	})

	t.Run("doubled vowel still finds yam", func(t *testing.T) {
		got := FindFuzzyMatches("yaams", pantryCandidates, MatchOptions{})
		var yam *FuzzyMatch
		for i := range got {
			if got[i].Name == "yam" {
				yam = &got[i]
			}
		}
		require.NotNil(t, yam)
		assert.GreaterOrEqual(t, yam.Similarity, 55)
	})

	t.Run("candidates normalizing alike are deduplicated", func(t *testing.T) {
		got := FindFuzzyMatches("egg", []string{"Eggs", "eggs", "Organic Eggs", "egg"}, MatchOptions{})
		require.Len(t, got, 1)
		assert.Equal(t, "Eggs", got[0].Name)
		assert.True(t, got[0].IsExact)
	})

	t.Run("below threshold filtered", func(t *testing.T) {
		got := FindFuzzyMatches("milk", []string{"zebra", "pineapple"}, MatchOptions{MinSimilarity: Threshold(50)})
		assert.Empty(t, got)
	})

	t.Run("zero threshold keeps every candidate", func(t *testing.T) {
		got := FindFuzzyMatches("milk", []string{"zebra", "pineapple", "milk"}, MatchOptions{MinSimilarity: Threshold(0)})
		require.Len(t, got, 3)
		assert.Equal(t, "milk", got[0].Name)
		assert.Equal(t, "pineapple", got[1].Name)
		assert.Equal(t, FuzzyMatch{Name: "zebra", Similarity: 0}, got[2])
	})

	t.Run("unset threshold uses the default", func(t *testing.T) {
		got := FindFuzzyMatches("milk", []string{"zebra", "pineapple", "milk"}, MatchOptions{})
		require.Len(t, got, 1)
		assert.Equal(t, "milk", got[0].Name)
	})

	t.Run("truncated to max results", func(t *testing.T) {
		got := FindFuzzyMatches("jam", []string{"jam", "yam", "ham", "ram", "spam"}, MatchOptions{MaxResults: 2})
		require.Len(t, got, 2)
		assert.Equal(t, "jam", got[0].Name)
		assert.Equal(t, "yam", got[1].Name) // ties keep candidate order
	})
}

func TestFindFuzzyMatches_SortedBySimilarity(t *testing.T) {
	queries := []string{"milk", "millk", "yaams", "chese", "buter", "bred", "j"}
	candidateSets := [][]string{
		pantryCandidates,
		{"jam", "ham", "yam", "jams", "jelly", "jalapeno"},
		{"butter", "buttermilk", "peanut butter", "cheddar cheese", "cheese"},
	}

	for _, candidates := range candidateSets {
		for _, q := range queries {
			got := FindFuzzyMatches(q, candidates, MatchOptions{MinSimilarity: Threshold(0), MaxResults: 100})
			for i := 1; i < len(got); i++ {
				if got[i].Similarity > got[i-1].Similarity {
					t.Errorf("query %q: results not sorted at %d: %+v", q, i, got)
				}
			}
		}
	}
}

func TestIsDuplicateItemName(t *testing.T) {
	testCases := []struct {
		a, b string
		want bool
	}{
		{"Tomatoes", "tomato", true},
		{"Organic Eggs", "eggs", true},
		{"strawberry", "strawberies", true},
		{"milk", "silk", false},
		{"bread", "butter", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateItemName(tc.a, tc.b))
		})
	}
}

func TestFuzzyMatcher_Config(t *testing.T) {
	m := NewFuzzyMatcher(FuzzyMatcherConfig{})
	assert.Equal(t, defaultMinSimilarity, m.minSimilarity)
	assert.Equal(t, defaultMaxResults, m.maxResults)
	assert.Equal(t, defaultDuplicateThreshold, m.duplicateThreshold)

	strict := NewFuzzyMatcher(FuzzyMatcherConfig{MinSimilarity: Threshold(90), DuplicateThreshold: 70})
	assert.Len(t, strict.FindMatches("millk", pantryCandidates), 0)
	assert.True(t, strict.IsDuplicate("milk", "silk"))

	permissive := NewFuzzyMatcher(FuzzyMatcherConfig{MinSimilarity: Threshold(0)})
	assert.Equal(t, 0, permissive.minSimilarity)
	assert.Len(t, permissive.FindMatches("milk", []string{"zebra", "pineapple"}), 2)
}
