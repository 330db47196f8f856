package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// CartItemRef points at one book the user wants, either by its 1-based
// position in the last recommendation list or by (part of) its title.
// Quantity is 0 when the user did not give one for this item.
type CartItemRef struct {
	Index    int
	Title    string
	Quantity int
}

// CartRequest is what ParseCartReference reads out of an add-to-cart message.
// All three channels can fire on the same message; the caller merges them.
type CartRequest struct {
	// All is set by phrases such as "tất cả" or "như trên".
	All bool
	// EachQty comes from "mỗi cuốn N"; 0 when absent.
	EachQty int
	Items   []CartItemRef
}

// QuantityFor resolves the quantity to use for item: its own when given,
// else EachQty, else 1.
func (r CartRequest) QuantityFor(item CartItemRef) int {
	if item.Quantity > 0 {
		return ClampQuantity(item.Quantity)
	}
	return r.DefaultQuantity()
}

// DefaultQuantity is EachQty when given, else 1.
func (r CartRequest) DefaultQuantity() int {
	if r.EachQty > 0 {
		return ClampQuantity(r.EachQty)
	}
	return 1
}

var (
	allPhrasesRE = regexp.MustCompile(`\b(?:tat ca|toan bo|het|nhung cuon vua roi|nhu tren|cuon tren)\b`)
	eachQtyRE    = regexp.MustCompile(`\bmoi\s*(?:cuon|sach|quyen)?\s*(\d+)`)
	indexRefRE   = regexp.MustCompile(`(?:\bsach|\bcuon|#)\s*(\d+)\s*(?:[x*×]\s*(\d+))?`)
	quotedRefRE  = regexp.MustCompile(`(?:"([^"]+)"|“([^”]+)”)\s*(?:[xX*×]\s*(\d+))?`)
	ordinalRefRE = regexp.MustCompile(`\bcuon thu\s+([^\s,\.]+)(?:\s*[x*×]\s*(\d+))?`)
)

// ordinalWords maps folded Vietnamese number words to positions.
var ordinalWords = map[string]int{
	"nhat": 1, "mot": 1,
	"hai": 2,
	"ba":  3,
	"bon": 4, "tu": 4,
	"nam":  5,
	"sau":  6,
	"bay":  7,
	"tam":  8,
	"chin": 9,
	"muoi": 10,
}

// ParseCartReference reads cart references out of text:
//
//	"cuốn 2 x3", "sách 1", "#4"      index references (optional "x Q")
//	"\"Dế Mèn\" x2"                  quoted title references
//	"cuốn thứ ba", "cuốn thứ 2"      ordinal references
//	"mỗi cuốn 2"                     quantity for every item
//	"tất cả", "như trên", ...        everything in the last list
//
// Quoted titles are read from the raw text; everything else from its folded
// form. Unparseable input yields an empty request, never an error.
func ParseCartReference(text string) CartRequest {
	var req CartRequest
	f := Fold(text)

	req.All = allPhrasesRE.MatchString(f)

	// "moi cuon 2" must not also count as a reference to book 2
	if loc := eachQtyRE.FindStringSubmatchIndex(f); loc != nil {
		req.EachQty = atoiOrZero(f[loc[2]:loc[3]])
		f = f[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + f[loc[1]:]
	}

	for _, m := range indexRefRE.FindAllStringSubmatch(f, -1) {
		idx := atoiOrZero(m[1])
		if idx <= 0 {
			continue
		}
		req.Items = append(req.Items, CartItemRef{Index: idx, Quantity: atoiOrZero(m[2])})
	}

	for _, m := range quotedRefRE.FindAllStringSubmatch(text, -1) {
		title := strings.TrimSpace(m[1] + m[2])
		if title == "" {
			continue
		}
		req.Items = append(req.Items, CartItemRef{Title: title, Quantity: atoiOrZero(m[3])})
	}

	for _, m := range ordinalRefRE.FindAllStringSubmatch(f, -1) {
		idx, ok := ordinalWords[m[1]]
		if !ok {
			idx = atoiOrZero(m[1])
		}
		if idx <= 0 {
			continue
		}
		req.Items = append(req.Items, CartItemRef{Index: idx, Quantity: atoiOrZero(m[2])})
	}

	return req
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
