package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/tbourn/go-bookshop-assistant/internal/extract"
)

// unknownWeight is the baseline mass given to "none of the above". It keeps
// a single weak cue from producing a near-certain prediction.
const unknownWeight = 0.5

// defaultLexicon holds folded cue phrases per intent.
var defaultLexicon = map[Intent][]string{
	Recommend: {
		"goi y", "tu van", "de xuat", "cho toi", "can mua", "muon sach", "tim sach",
		"sach nao", "co sach", "the loai", "ban chay", "hay nhat", "recommend", "suggest",
	},
	Refine: {
		"re hon", "mac hon", "dat hon", "cuon khac", "loai khac", "thay doi", "chi lay", "loc lai",
	},
	AddToCart: {
		"them", "vao gio", "gio hang", "dat mua", "lay cuon", "mua cuon", "lay", "add", "cart",
	},
	ConfirmYes: {
		"dong y", "xac nhan", "ok", "oke", "yes", "chuan", "dung roi", "duoc",
	},
	ConfirmNo: {
		"huy", "khong dong y", "khong can", "thoi", "bo qua", "cancel",
	},
	Greeting: {
		"xin chao", "chao", "hello", "hi", "hey", "alo",
	},
	Goodbye: {
		"tam biet", "bye", "goodbye", "cam on", "hen gap lai",
	},
}

type cue struct {
	re     *regexp.Regexp
	weight float64
}

// LexiconClassifier is an offline, deterministic keyword classifier. Each
// matched cue adds its word count to its intent; scores are normalised over
// the known intents plus a fixed Unknown baseline.
type LexiconClassifier struct {
	cues map[Intent][]cue
}

// NewLexiconClassifier builds a classifier from the built-in cue phrases.
func NewLexiconClassifier() *LexiconClassifier {
	return NewLexiconClassifierWith(defaultLexicon)
}

// NewLexiconClassifierWith builds a classifier from custom cue phrases.
// Phrases are folded before matching and must match on word boundaries.
func NewLexiconClassifierWith(lexicon map[Intent][]string) *LexiconClassifier {
	c := &LexiconClassifier{cues: make(map[Intent][]cue, len(lexicon))}
	for in, phrases := range lexicon {
		for _, p := range phrases {
			f := extract.Fold(p)
			if f == "" {
				continue
			}
			c.cues[in] = append(c.cues[in], cue{
				re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(f) + `\b`),
				weight: float64(len(strings.Fields(f))),
			})
		}
	}
	return c
}

// Classify scores text against every intent. Ties go to the intent listed
// first in Labels. Text with no cue at all is Unknown at the baseline
// confidence.
func (c *LexiconClassifier) Classify(_ context.Context, text string) (Prediction, error) {
	f := extract.Fold(text)

	raw := make([]float64, len(Labels))
	total := unknownWeight
	for i, in := range Labels {
		for _, cu := range c.cues[in] {
			if cu.re.MatchString(f) {
				raw[i] += cu.weight
			}
		}
		total += raw[i]
	}

	best := -1
	for i, w := range raw {
		if w > 0 && (best < 0 || w > raw[best]) {
			best = i
		}
	}

	scores := make([]float64, len(raw))
	for i, w := range raw {
		scores[i] = w / total
	}
	if best < 0 {
		return Prediction{Label: string(Unknown), Confidence: unknownWeight, Scores: scores}, nil
	}
	return Prediction{Label: string(Labels[best]), Confidence: scores[best], Scores: scores}, nil
}
