// Package extract turns noisy Vietnamese (and mixed-script) chat text into
// structured shopping signals: price ranges, quantities, category mentions and
// cart references. Every function here is pure and safe for concurrent use.
//
// Matching is done on a folded form of the text (lowercase, diacritics
// stripped, whitespace collapsed) so that "Gợi ý sách Kinh Tế" and
// "goi y sach kinh te" are treated the same.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceRE = regexp.MustCompile(`\s+`)

// Fold lowercases s, strips combining marks, maps đ to d and collapses
// whitespace runs to a single space.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// transform chains keep state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	out = strings.NewReplacer("đ", "d", "Đ", "d").Replace(out)
	return strings.TrimSpace(spaceRE.ReplaceAllString(out, " "))
}

// FuzzyTitleMatch reports whether either title, once folded, contains the
// other. Empty input never matches.
func FuzzyTitleMatch(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return false
	}
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}

var recommendLexicon = []string{
	"goi y", "tu van", "de xuat", "cho toi", "can mua", "muon sach",
}

// LooksLikeRecommend reports whether text contains one of the phrases users
// typically open a recommendation request with.
func LooksLikeRecommend(text string) bool {
	f := Fold(text)
	for _, p := range recommendLexicon {
		if strings.Contains(f, p) {
			return true
		}
	}
	return false
}
