package textdiff_test

import (
	"testing"

	"github.com/hipnotiq/revisor/pkg/textdiff"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "simple", in: "uno dos tres", want: []string{"uno", "dos", "tres"}},
		{name: "whitespace runs", in: "uno \t dos\n\ntres", want: []string{"uno", "dos", "tres"}},
		{name: "empty", in: "", want: nil},
		{name: "only whitespace", in: "   \t\n", want: nil},
		{name: "punctuation tokens survive", in: "y... entonces — calma", want: []string{"y...", "entonces", "—", "calma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := textdiff.Tokenize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Hola,", want: "hola"},
		{in: "¿Listo?", want: "listo"},
		{in: "¡tranquilo!", want: "tranquilo"},
		{in: "(susurro)", want: "susurro"},
		{in: "...", want: ""},
		{in: "don't", want: "dont"},
		{in: "años", want: "años"}, // diacritics are preserved
		{in: "uno…dos", want: "unodos"},
	}

	for _, tt := range tests {
		if got := textdiff.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpans_Grouping(t *testing.T) {
	t.Parallel()

	// [matched, divergent, divergent, matched, divergent] must yield exactly
	// four spans: single, group-of-2, single, single.
	side := []textdiff.AlignedToken{
		{Token: "la"},
		{Token: "voz", Divergent: true},
		{Token: "baja", Divergent: true},
		{Token: "te"},
		{Token: "envuelve", Divergent: true},
	}

	spans := textdiff.Spans(side)
	if len(spans) != 4 {
		t.Fatalf("Spans: got %d spans, want 4: %+v", len(spans), spans)
	}

	want := []textdiff.Span{
		{Text: "la"},
		{Text: "voz baja", Highlighted: true},
		{Text: "te"},
		{Text: "envuelve", Highlighted: true},
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("Spans[%d] = %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestSpans_AllMatched(t *testing.T) {
	t.Parallel()

	side := []textdiff.AlignedToken{{Token: "todo"}, {Token: "bien"}}
	spans := textdiff.Spans(side)
	if len(spans) != 2 {
		t.Fatalf("Spans: got %d spans, want 2", len(spans))
	}
	for i, s := range spans {
		if s.Highlighted {
			t.Errorf("Spans[%d]: highlighted=true, want false", i)
		}
	}
}

func TestSpans_Empty(t *testing.T) {
	t.Parallel()

	if spans := textdiff.Spans(nil); len(spans) != 0 {
		t.Fatalf("Spans(nil): got %d spans, want 0", len(spans))
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	// Homophone substitution should score high.
	a := textdiff.AlignText(
		"el techo de tejas terracota",
		"el techo de texas terracota",
	)
	if got := textdiff.Similarity(a); got < 0.7 {
		t.Errorf("Similarity(tejas/texas) = %f, want >= 0.7", got)
	}

	// Identical lines: nothing divergent, perfect score.
	a = textdiff.AlignText("respira hondo", "respira hondo")
	if got := textdiff.Similarity(a); got != 1.0 {
		t.Errorf("Similarity(identical) = %f, want 1.0", got)
	}

	// Pure insertion: one side has divergent tokens, the other does not.
	a = textdiff.AlignText("respira hondo", "respira muy hondo")
	if got := textdiff.Similarity(a); got != 0.0 {
		t.Errorf("Similarity(insertion) = %f, want 0.0", got)
	}
}
