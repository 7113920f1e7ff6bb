package practice

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// SoundsClose reports whether spoken is phonetically close to target even
// though the literal comparison scored poorly: both are canonicalised and
// their Double Metaphone codes are compared token-wise. A shared primary or
// secondary code on any token pair counts as close.
//
// Used to enrich retry-tier feedback without touching the numeric score.
func SoundsClose(spoken, target string) bool {
	spokenCodes := metaphoneCodes(Normalize(spoken))
	targetCodes := metaphoneCodes(Normalize(target))
	if len(spokenCodes) == 0 || len(targetCodes) == 0 {
		return false
	}
	// Iterate over the smaller set.
	if len(spokenCodes) > len(targetCodes) {
		spokenCodes, targetCodes = targetCodes, spokenCodes
	}
	for code := range spokenCodes {
		if _, ok := targetCodes[code]; ok {
			return true
		}
	}
	return false
}

// metaphoneCodes returns the union of Double Metaphone codes for every
// whitespace-separated token of canonical text. Empty codes (produced when a
// token is too short or has no consonants) are excluded.
func metaphoneCodes(canonical string) map[string]struct{} {
	tokens := strings.Fields(canonical)
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}
