package suggest

import (
	"context"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"github.com/hipnotiq/revisor/pkg/textdiff"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// PhoneticOption is a functional option for configuring a [Phonetic] stage.
type PhoneticOption func(*Phonetic)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched token to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) PhoneticOption {
	return func(p *Phonetic) {
		p.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the stage falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) PhoneticOption {
	return func(p *Phonetic) {
		p.fuzzyThreshold = threshold
	}
}

// Phonetic proposes a corrected line by mapping each divergent transcription
// token back to the divergent script token it most plausibly voices.
//
// Candidate filtering uses Double Metaphone code overlap; ranking uses
// Jaro-Winkler on the normalized token strings. A transcription token with no
// phonetic candidate gets a second chance against all divergent script tokens
// using the stricter fuzzy threshold. Tokens that match nothing stay as
// transcribed.
//
// The stage is safe for concurrent use; thresholds may be retuned at runtime
// with [Phonetic.SetThresholds].
type Phonetic struct {
	mu                sync.RWMutex
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewPhonetic returns a Phonetic stage configured with the supplied options.
func NewPhonetic(opts ...PhoneticOption) *Phonetic {
	p := &Phonetic{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements [Stage].
func (p *Phonetic) Name() string { return "phonetic" }

// SetThresholds replaces both matching thresholds. Used when the service
// configuration is reloaded.
func (p *Phonetic) SetThresholds(phonetic, fuzzy float64) {
	p.mu.Lock()
	p.phoneticThreshold = phonetic
	p.fuzzyThreshold = fuzzy
	p.mu.Unlock()
}

// Suggest implements [Stage]. It returns at most one suggestion: the
// transcription with every mappable divergent token replaced by its script
// counterpart. No divergence, or no mappable token, yields no suggestions.
func (p *Phonetic) Suggest(_ context.Context, original, transcription string) ([]Suggestion, error) {
	if strings.TrimSpace(original) == "" || strings.TrimSpace(transcription) == "" {
		return nil, nil
	}

	a := textdiff.AlignText(original, transcription)

	var scriptCandidates []string
	for _, tok := range a.Original {
		if tok.Divergent && textdiff.Normalize(tok.Token) != "" {
			scriptCandidates = append(scriptCandidates, tok.Token)
		}
	}
	if len(scriptCandidates) == 0 {
		return nil, nil
	}

	var (
		resultTokens []string
		subs         []Substitution
		scoreSum     float64
	)
	for _, tok := range a.Transcription {
		if !tok.Divergent {
			resultTokens = append(resultTokens, tok.Token)
			continue
		}

		replacement, score, matched := p.match(tok.Token, scriptCandidates)
		if !matched {
			resultTokens = append(resultTokens, tok.Token)
			continue
		}
		resultTokens = append(resultTokens, replacement)
		subs = append(subs, Substitution{
			Original:   tok.Token,
			Corrected:  replacement,
			Confidence: score,
		})
		scoreSum += score
	}

	if len(subs) == 0 {
		return nil, nil
	}

	text := strings.Join(resultTokens, " ")
	if text == transcription {
		return nil, nil
	}

	return []Suggestion{{
		Text:          text,
		Source:        p.Name(),
		Confidence:    scoreSum / float64(len(subs)),
		Substitutions: subs,
	}}, nil
}

// match finds the candidate most phonetically similar to token. When matched
// is false, the token has no acceptable counterpart.
func (p *Phonetic) match(token string, candidates []string) (corrected string, confidence float64, matched bool) {
	norm := textdiff.Normalize(token)
	if norm == "" {
		return token, 0, false
	}
	p.mu.RLock()
	phoneticThreshold, fuzzyThreshold := p.phoneticThreshold, p.fuzzyThreshold
	p.mu.RUnlock()
	tokenPrimary, tokenSecondary := matchr.DoubleMetaphone(norm)

	type scored struct {
		candidate string
		score     float64
		phonetic  bool
	}
	var best scored

	for _, cand := range candidates {
		candNorm := textdiff.Normalize(cand)
		if candNorm == "" {
			continue
		}

		candPrimary, candSecondary := matchr.DoubleMetaphone(candNorm)
		phonetic := codesOverlap(tokenPrimary, tokenSecondary, candPrimary, candSecondary)
		score := matchr.JaroWinkler(norm, candNorm, false)

		if phonetic {
			if score >= phoneticThreshold && (!best.phonetic || score > best.score) {
				best = scored{candidate: cand, score: score, phonetic: true}
			}
		} else if !best.phonetic && score >= fuzzyThreshold && score > best.score {
			best = scored{candidate: cand, score: score, phonetic: false}
		}
	}

	if best.candidate == "" {
		return token, 0, false
	}
	return best.candidate, best.score, true
}

// codesOverlap reports whether the two Double Metaphone code pairs share at
// least one non-empty code.
func codesOverlap(ap, as, bp, bs string) bool {
	for _, a := range [2]string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}
