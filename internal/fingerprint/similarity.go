package fingerprint

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// IsEqualRatio is the similarity at or above which two bodies are treated as
// the same page.
const IsEqualRatio = 0.90

// Similarity returns the 2*M/T matching ratio of a and b over their
// characters. Two empty strings are identical; an empty and a non-empty
// string share nothing.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return newMatcher(a, b).Ratio()
}

// SimilarityAtLeast reports whether Similarity(a, b) >= threshold. It bails
// out on the cheap upper bounds (length ratio, then character multiset)
// before computing the full ratio.
func SimilarityAtLeast(a, b string, threshold float64) bool {
	if a == b {
		return threshold <= 1.0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if 2*float64(min(la, lb))/float64(la+lb) < threshold {
		return false
	}
	m := newMatcher(a, b)
	if m.QuickRatio() < threshold {
		return false
	}
	return m.Ratio() >= threshold
}

// The matching blocks difflib finds depend on argument order, so the pair is
// put in a canonical order to keep the score symmetric.
//
// Autojunk stays on: once the second body reaches 200 characters, characters
// making up more than 1% of it only extend matches and never anchor them.
// Without that, every space and '<' of an HTML page is a match candidate and
// Ratio is quadratic in the body size.
func newMatcher(a, b string) *difflib.SequenceMatcher {
	if a > b {
		a, b = b, a
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b))
}

func splitChars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
