package extract

import (
	"regexp"
	"strconv"
)

const (
	// MinQuantity and MaxQuantity bound any quantity read from chat text.
	MinQuantity = 1
	MaxQuantity = 50
)

// digitsRE is greedy, so the first match is always a whole digit run.
var digitsRE = regexp.MustCompile(`\d+`)

// ExtractQuantity returns the first standalone integer in text clamped to
// [MinQuantity, MaxQuantity], or def when text holds no number.
func ExtractQuantity(text string, def int) int {
	m := digitsRE.FindString(text)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// only overflow can fail here
		return MaxQuantity
	}
	return ClampQuantity(n)
}

// ClampQuantity bounds n to [MinQuantity, MaxQuantity].
func ClampQuantity(n int) int {
	if n < MinQuantity {
		return MinQuantity
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}
