package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyRE matches a number, optionally written with thousands separators,
// followed by an optional thousand unit.
var moneyRE = regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})+|\d+)\s*(?:(k|nghìn|nghin|ngàn|ngan)\b)?`)

var (
	thousand   = decimal.NewFromInt(1000)
	lowFactor  = decimal.RequireFromString("0.8")
	highFactor = decimal.RequireFromString("1.2")
)

// PriceRange is an optional [Min, Max] bound. A nil side is unbounded.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// IsZero reports whether neither bound is set.
func (r PriceRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Contains reports whether price falls within the set bounds.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	if r.Min != nil && price.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && price.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// ExtractPriceRange scans text for money amounts.
//
// No amount yields an empty range. A single amount N yields [0.8N, 1.2N]
// ("around N"). Two or more yield the smallest and largest amounts seen,
// regardless of where they appear. The last rule is a heuristic: unrelated
// numbers in the same message widen the range.
func ExtractPriceRange(text string) PriceRange {
	var values []decimal.Decimal
	for _, m := range moneyRE.FindAllStringSubmatch(text, -1) {
		digits := strings.NewReplacer(".", "", ",", "").Replace(m[1])
		v, err := decimal.NewFromString(digits)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v = v.Mul(thousand)
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return PriceRange{}
	case 1:
		lo := values[0].Mul(lowFactor)
		hi := values[0].Mul(highFactor)
		return PriceRange{Min: &lo, Max: &hi}
	}

	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })
	lo, hi := values[0], values[len(values)-1]
	return PriceRange{Min: &lo, Max: &hi}
}
