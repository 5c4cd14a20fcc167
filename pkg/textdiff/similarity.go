package textdiff

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Similarity scores how close the divergent material on the two sides of an
// alignment is, in [0.0, 1.0]. It joins the divergent tokens of each side
// (normalised) and compares them with Jaro-Winkler.
//
// Operators use the score to triage diffs: a one-word homophone substitution
// ("tejas" heard as "texas") scores high and is probably a transcription
// artefact, while a low score suggests the synthesis actually spoke the wrong
// words and the line needs regeneration.
//
// Returns 1.0 when neither side has divergent tokens and 0.0 when exactly one
// side does (insertion or deletion with nothing to compare against).
func Similarity(a Alignment) float64 {
	origRun := divergentText(a.Original)
	transRun := divergentText(a.Transcription)

	switch {
	case origRun == "" && transRun == "":
		return 1.0
	case origRun == "" || transRun == "":
		return 0.0
	}
	return matchr.JaroWinkler(origRun, transRun, false)
}

// divergentText joins the normalised divergent tokens of one side.
// Tokens that normalise to the empty string (pure punctuation) are skipped —
// they carry no phonetic content to compare.
func divergentText(side []AlignedToken) string {
	var parts []string
	for _, tok := range side {
		if !tok.Divergent {
			continue
		}
		if norm := Normalize(tok.Token); norm != "" {
			parts = append(parts, norm)
		}
	}
	return strings.Join(parts, " ")
}
