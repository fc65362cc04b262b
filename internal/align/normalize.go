package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalized carries canonicalized text plus a map from each normalized rune
// back to the rune index it came from in the original string. Normalization
// changes length, so the map is required to recover original offsets.
type Normalized struct {
	Text     string
	Runes    []rune
	IndexMap []int
}

// Normalize canonicalizes text for matching: NFKC, lowercased, punctuation
// collapsed to spaces, whitespace runs collapsed to a single space, no
// leading or trailing space. Normalizing already-normalized text is a no-op.
func Normalize(text string) Normalized {
	var (
		out      []rune
		indexMap []int
		pending  bool
	)
	for origIdx, r := range []rune(text) {
		for _, folded := range []rune(strings.ToLower(norm.NFKC.String(string(r)))) {
			if unicode.IsLetter(folded) || unicode.IsNumber(folded) {
				if pending && len(out) > 0 {
					out = append(out, ' ')
					indexMap = append(indexMap, origIdx)
				}
				pending = false
				out = append(out, folded)
				indexMap = append(indexMap, origIdx)
			} else {
				pending = true
			}
		}
	}
	return Normalized{Text: string(out), Runes: out, IndexMap: indexMap}
}

// OriginalIndex maps a normalized rune offset to an original rune offset.
// An offset one past the end maps one past the last original rune.
func (n Normalized) OriginalIndex(normIdx int) int {
	if len(n.IndexMap) == 0 {
		return 0
	}
	if normIdx >= len(n.IndexMap) {
		return n.IndexMap[len(n.IndexMap)-1] + 1
	}
	if normIdx < 0 {
		normIdx = 0
	}
	return n.IndexMap[normIdx]
}

// Len returns the normalized length in runes.
func (n Normalized) Len() int {
	return len(n.Runes)
}
