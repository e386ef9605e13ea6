package budget

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// normalizeText folds case, applies NFKC, replaces punctuation with spaces
// and collapses whitespace.
func normalizeText(s string) string {
	s = folder.String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity scores two normalized strings in [0, 1] as the better of the
// edit-distance similarity and the word-set Jaccard similarity.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	lev := levenshtein.Similarity(a, b, nil)
	jac := wordJaccard(a, b)
	if jac > lev {
		return jac
	}
	return lev
}

// wordJaccard computes Jaccard similarity on word sets.
func wordJaccard(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// bestMatch returns the highest similarity of text against a vocabulary of
// normalized terms.
func bestMatch(text string, vocab []string) float64 {
	best := 0.0
	for _, term := range vocab {
		if s := similarity(text, term); s > best {
			best = s
			if best == 1 {
				break
			}
		}
	}
	return best
}
