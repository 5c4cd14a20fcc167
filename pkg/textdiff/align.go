package textdiff

// AlignedToken is a single token of one side of an alignment, tagged with
// whether it diverges from the other side.
type AlignedToken struct {
	// Token is the original display text, with punctuation and casing intact.
	Token string

	// Divergent is true when the token has no matching counterpart on the
	// other side under [Normalize] equality.
	Divergent bool
}

// Alignment is the result of aligning an original token sequence against a
// transcription token sequence. Both slices have exactly the length of their
// respective inputs, in input order.
type Alignment struct {
	Original      []AlignedToken
	Transcription []AlignedToken
}

// Align computes a longest-common-subsequence alignment between original and
// transcription, comparing tokens under [Normalize] equality. Tokens that are
// part of the LCS are marked matched on both sides; all others are marked
// divergent.
//
// LCS backtracking is not unique when DP values tie. Align fixes the policy:
// when the tokens at the current positions differ, the transcription-side
// token is consumed first whenever L[i][j-1] >= L[i-1][j]. Callers that need
// byte-identical diff output across systems rely on this exact tie-break.
//
// Time and space are O(len(original) × len(transcription)). Script lines are
// short (typically under 40 words) so the quadratic table is fine; inputs of
// many thousands of tokens would need a divide-and-conquer variant instead.
func Align(original, transcription []string) Alignment {
	n, m := len(original), len(transcription)

	normOrig := make([]string, n)
	for i, t := range original {
		normOrig[i] = Normalize(t)
	}
	normTrans := make([]string, m)
	for j, t := range transcription {
		normTrans[j] = Normalize(t)
	}

	// L[i][j] = LCS length of normOrig[:i] and normTrans[:j].
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if normOrig[i-1] == normTrans[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	origDivergent := make([]bool, n)
	transDivergent := make([]bool, m)

	// Backtrack from the bottom-right corner.
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && normOrig[i-1] == normTrans[j-1]:
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			transDivergent[j-1] = true
			j--
		default:
			origDivergent[i-1] = true
			i--
		}
	}

	out := Alignment{
		Original:      make([]AlignedToken, n),
		Transcription: make([]AlignedToken, m),
	}
	for i, t := range original {
		out.Original[i] = AlignedToken{Token: t, Divergent: origDivergent[i]}
	}
	for j, t := range transcription {
		out.Transcription[j] = AlignedToken{Token: t, Divergent: transDivergent[j]}
	}
	return out
}

// AlignText tokenises both inputs with [Tokenize] and aligns them.
func AlignText(original, transcription string) Alignment {
	return Align(Tokenize(original), Tokenize(transcription))
}
