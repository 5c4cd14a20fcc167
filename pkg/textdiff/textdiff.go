// Package textdiff computes word-level diffs between an original script line
// and the transcription produced after audio synthesis.
//
// The pipeline has three stages:
//
//  1. Tokenisation ([Tokenize]): text is split into whitespace-delimited
//     tokens. Display text is never altered — punctuation and casing survive
//     into the output.
//
//  2. Alignment ([Align]): a longest-common-subsequence alignment over
//     normalised tokens ([Normalize]) classifies every token on both sides as
//     matched or divergent. The LCS backtrack tie-break is fixed (see [Align])
//     so that diff output is reproducible across runs and implementations.
//
//  3. Presentation ([Spans]): adjacent divergent tokens are merged into single
//     highlight spans for rendering, leaving matched tokens as plain spans.
//
// All functions are pure and safe for concurrent use.
package textdiff

import "strings"

// normalizeCutset is the punctuation removed from tokens before comparison.
// Script lines are Spanish-language text, so the inverted marks ¿ and ¡ are
// included alongside ASCII punctuation.
const normalizeCutset = ".,;:!?¿¡\"'`()[]{}…-"

// Tokenize splits text into whitespace-delimited tokens. Runs of whitespace
// act as a single separator and empty tokens are discarded, so an empty or
// all-whitespace input yields an empty slice.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Normalize lowercases token and strips the punctuation characters used for
// comparison. A token made entirely of punctuation normalises to the empty
// string; such tokens still participate in alignment as distinct entities and
// are never filtered out beforehand.
func Normalize(token string) string {
	lowered := strings.ToLower(token)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(normalizeCutset, r) {
			return -1
		}
		return r
	}, lowered)
}
