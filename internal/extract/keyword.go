package extract

import (
	"regexp"
	"strings"
)

var (
	qtyPhraseRE  = regexp.MustCompile(`(?:\b[x*]|×)\s*\d+\b|\b\d+\s*(?:quyen|cuon|ban|tap|copy)\b`)
	idxPhraseRE  = regexp.MustCompile(`(?:#|\bcuon|\bsach)\s*#?\s*\d+\b`)
	nonWordRE    = regexp.MustCompile(`[^a-z0-9\s]+`)
	multiStopRE  = regexp.MustCompile(`\b(?:cho minh|xac nhan|gio hang)\b`)
	digitsOnlyRE = regexp.MustCompile(`^\d+$`)
)

// cartStopTokens are verbs, fillers and counters that carry no title signal
// in an add-to-cart message.
var cartStopTokens = toSet(
	"them", "bo", "vao", "gio", "add", "mua", "dat", "order", "dua", "chon", "lay", "giup",
	"quyen", "cuon", "sach", "ban", "tap", "volume", "vol", "copy",
	"va", "voi", "hoac", "hay", "nua", "tiep", "di", "nhe", "nha",
	"toi", "minh", "em", "anh", "chi", "cho", "cart",
)

// CartKeywords returns search keywords for an add-to-cart message that did
// not reference the last recommendation list. Quoted titles come first, then
// the message with quantities, positions and filler words removed. The result
// is empty when nothing title-like remains.
func CartKeywords(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range quotedRefRE.FindAllStringSubmatch(text, -1) {
		add(Fold(m[1] + m[2]))
	}

	f := Fold(text)
	f = qtyPhraseRE.ReplaceAllString(f, " ")
	f = idxPhraseRE.ReplaceAllString(f, " ")
	f = multiStopRE.ReplaceAllString(f, " ")
	f = nonWordRE.ReplaceAllString(f, " ")

	var kept []string
	for _, tok := range strings.Fields(f) {
		if digitsOnlyRE.MatchString(tok) {
			continue
		}
		if _, stop := cartStopTokens[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	add(strings.Join(kept, " "))
	return out
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
