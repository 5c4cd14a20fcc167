package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeCompleter implements [Completer] for tests.
type fakeCompleter struct {
	response string
	err      error

	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestLLM_ParsesResponse(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{response: `{
		"correctedText": "cie-rra los ojos",
		"substitutions": [
			{"original": "cierra", "corrected": "cie-rra", "confidence": 0.9}
		]
	}`}
	l := NewLLM(fc)

	suggestions, err := l.Suggest(context.Background(), "cierra los ojos", "sierra los ojos")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("suggestions = %+v, want one", suggestions)
	}

	s := suggestions[0]
	if s.Text != "cie-rra los ojos" || s.Source != "llm" {
		t.Errorf("suggestion = %+v", s)
	}
	if len(s.Substitutions) != 1 || s.Substitutions[0].Corrected != "cie-rra" {
		t.Errorf("substitutions = %+v", s.Substitutions)
	}
	if s.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", s.Confidence)
	}

	// Both texts must reach the model.
	if !strings.Contains(fc.lastUser, "cierra los ojos") || !strings.Contains(fc.lastUser, "sierra los ojos") {
		t.Errorf("user message missing inputs: %q", fc.lastUser)
	}
	if !strings.Contains(fc.lastSystem, "Spanish") {
		t.Errorf("system prompt lost its language constraint")
	}
}

func TestLLM_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{response: "```json\n" + `{"correctedText": "la luz des-cien-de", "substitutions": []}` + "\n```"}
	l := NewLLM(fc)

	suggestions, err := l.Suggest(context.Background(), "la luz desciende", "la luz de sien de")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Text != "la luz des-cien-de" {
		t.Errorf("suggestions = %+v", suggestions)
	}
}

func TestLLM_UnparseableResponseDegrades(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{response: "I think the word should probably be cierra."}
	l := NewLLM(fc)

	suggestions, err := l.Suggest(context.Background(), "cierra los ojos", "sierra los ojos")
	if err != nil {
		t.Fatalf("Suggest: err = %v, want graceful degradation", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("suggestions = %+v, want none from prose response", suggestions)
	}
}

func TestLLM_NoChangeProposed(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{response: `{"correctedText": "cierra los ojos", "substitutions": []}`}
	l := NewLLM(fc)

	suggestions, err := l.Suggest(context.Background(), "cierra los ojos", "cierra los ojos")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("suggestions = %+v, want none when the model keeps the line", suggestions)
	}
}

func TestLLM_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection reset")
	l := NewLLM(&fakeCompleter{err: wantErr})

	if _, err := l.Suggest(context.Background(), "cierra los ojos", "sierra los ojos"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
}

func TestPipeline_SkipsFailingStage(t *testing.T) {
	t.Parallel()

	failing := NewLLM(&fakeCompleter{err: errors.New("boom")})
	p := NewPipeline(failing, NewPhonetic(), nil)

	suggestions := p.Suggest(context.Background(), "cierra los ojos", "sierra los ojos")
	if len(suggestions) != 1 || suggestions[0].Source != "phonetic" {
		t.Errorf("suggestions = %+v, want the phonetic one only", suggestions)
	}
}

func TestPipeline_EmptyIsNonNil(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	suggestions := p.Suggest(context.Background(), "a", "a")
	if suggestions == nil || len(suggestions) != 0 {
		t.Errorf("suggestions = %#v, want empty non-nil slice", suggestions)
	}
}

func TestNewOpenAICompleter_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAICompleter("", "gpt-4o-mini"); err == nil {
		t.Error("empty api key accepted")
	}
	if _, err := NewOpenAICompleter("sk-test", ""); err == nil {
		t.Error("empty model accepted")
	}
}
