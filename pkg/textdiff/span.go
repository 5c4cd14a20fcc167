package textdiff

import "strings"

// Span is a renderable segment of one side of a diff. Matched tokens become
// one span each; maximal runs of adjacent divergent tokens are merged into a
// single highlighted span.
type Span struct {
	// Text is the span content. For a highlighted span this is the divergent
	// tokens joined by single spaces.
	Text string

	// Highlighted marks the span as divergent for visual distinction.
	Highlighted bool
}

// Spans groups one side of an alignment into render spans. Only *adjacent*
// divergent tokens merge — a matched token between two divergent ones ends
// the run and starts a new group. Grouping is presentation-only; it never
// feeds back into alignment or ledger state.
func Spans(side []AlignedToken) []Span {
	var spans []Span
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		spans = append(spans, Span{Text: strings.Join(run, " "), Highlighted: true})
		run = run[:0]
	}

	for _, tok := range side {
		if tok.Divergent {
			run = append(run, tok.Token)
			continue
		}
		flush()
		spans = append(spans, Span{Text: tok.Token})
	}
	flush()
	return spans
}
