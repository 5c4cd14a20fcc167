// Package suggest produces candidate corrected texts for a script line whose
// synthesized audio transcription diverges from it.
//
// Suggestions come from a pipeline of stages. The phonetic stage is cheap and
// always on; the LLM stage is optional and only wired when an API key is
// configured. A stage that fails is logged and skipped, never surfaced to the
// operator: an empty suggestion list is a valid answer.
package suggest

import (
	"context"
	"log/slog"
)

// Substitution captures a single word-level replacement inside a suggestion.
type Substitution struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
}

// Suggestion is one candidate corrected text for a script line.
type Suggestion struct {
	// Text is the full proposed replacement line.
	Text string `json:"text"`

	// Source names the stage that produced the suggestion.
	Source string `json:"source"`

	// Confidence is the stage's overall confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Substitutions []Substitution `json:"substitutions"`
}

// Stage is one suggestion producer. Stages must be safe for concurrent use.
type Stage interface {
	// Name identifies the stage in logs and in [Suggestion.Source].
	Name() string

	// Suggest proposes corrected texts for the line. original is the script
	// text, transcription what the synthesized audio actually said.
	// Returning an empty slice with a nil error means "nothing to propose".
	Suggest(ctx context.Context, original, transcription string) ([]Suggestion, error)
}

// Pipeline runs stages in order and concatenates their suggestions.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a Pipeline over the given stages. Nil stages are
// skipped so callers can pass optional stages unconditionally.
func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Suggest runs every stage. A failing stage contributes nothing; the
// remaining stages still run.
func (p *Pipeline) Suggest(ctx context.Context, original, transcription string) []Suggestion {
	var out []Suggestion
	for _, stage := range p.stages {
		suggestions, err := stage.Suggest(ctx, original, transcription)
		if err != nil {
			slog.Warn("suggestion stage failed", "stage", stage.Name(), "err", err)
			continue
		}
		out = append(out, suggestions...)
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}
