package extract

import (
	"regexp"
	"strings"
)

// MaxCategoryNames caps how many candidate names ExtractCategoryNames returns.
const MaxCategoryNames = 5

var (
	hashtagRE = regexp.MustCompile(`#([a-z0-9\-]+)`)

	// introducer phrases followed by a free-form category phrase
	categoryIntroRE = []*regexp.Regexp{
		regexp.MustCompile(`\bthe\s*loai\s+([a-z0-9\s\-]+)`),
		regexp.MustCompile(`\bsach\s+([a-z0-9\s\-]+)`),
		regexp.MustCompile(`\bthu\s*vien\s+([a-z0-9\s\-]+)`),
		regexp.MustCompile(`\bgenre\s*[:\-]?\s*([a-z0-9\s\-]+)`),
	}

	categorySplitRE = regexp.MustCompile(`,|/|\s+va\s+`)
	hasAlnumRE      = regexp.MustCompile(`[a-z0-9]`)
)

// ExtractCategoryNames returns up to MaxCategoryNames folded phrases that
// might name a category: hashtags plus whatever follows "the loai", "sach",
// "thu vien" or "genre". The matching is permissive on purpose; callers
// resolve candidates against real category names.
//
// Hashtags are kept whatever their length, so "#ai" yields "ai". Introducer
// phrases are split on " va " and fragments shorter than 3 bytes dropped.
// The capture class stops at ',' and '/', so only the text before the first
// comma is taken: "sach kinh te, tam ly" yields just "kinh te".
func ExtractCategoryNames(text string) []string {
	f := Fold(text)
	if f == "" {
		return nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, MaxCategoryNames)
	add := func(name string) bool {
		if !hasAlnumRE.MatchString(name) {
			return false
		}
		if _, dup := seen[name]; dup {
			return false
		}
		seen[name] = struct{}{}
		out = append(out, name)
		return len(out) == MaxCategoryNames
	}

	for _, m := range hashtagRE.FindAllStringSubmatch(f, -1) {
		if add(strings.Trim(m[1], "-")) {
			return out
		}
	}
	for _, re := range categoryIntroRE {
		m := re.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		for _, part := range categorySplitRE.Split(m[1], -1) {
			part = strings.Trim(strings.TrimSpace(part), "-")
			if len(part) < 3 {
				continue
			}
			if add(part) {
				return out
			}
		}
	}
	return out
}
