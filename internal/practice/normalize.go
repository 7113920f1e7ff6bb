// Package practice implements the pronunciation practice engine: transcript
// normalisation, the similarity scorer, feedback tiers with phonetic
// hinting, and the session state machine that drives a learner through a
// shuffled queue of words.
package practice

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// punctuation is the fixed set of characters stripped during normalisation.
const punctuation = ".,/#!$%^&*;:{}=-_`~()?\"'"

// Normalize canonicalises text for comparison. The transformation is applied
// in a fixed order: lowercase, Unicode canonical decomposition with combining
// marks stripped (so "café" folds to "cafe"), punctuation removal, whitespace
// collapsing, and trimming. Pure and total: it never fails and is idempotent.
//
// The canonical form is used only for comparison, never for display;
// attempts store the raw transcript verbatim.
func Normalize(text string) string {
	lower := strings.ToLower(text)

	// Decompose and drop combining marks so accented letters fold to their
	// base letter.
	decomposed := norm.NFD.String(lower)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}

	// Fields both collapses interior whitespace runs and trims the ends.
	return strings.Join(strings.Fields(b.String()), " ")
}
