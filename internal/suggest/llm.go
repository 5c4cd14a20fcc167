package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const defaultTemperature = 0.1

// systemPrompt instructs the model to behave as a conservative correction
// assistant. Scripts are predominantly Spanish hypnosis and relaxation
// material, so the prompt spells that out to keep the model from
// "translating" or anglicizing words.
const systemPrompt = `You are a correction assistant for text-to-speech scripts, mostly written in Spanish (hypnosis and guided relaxation material).

You are given the original script line and the transcription of the audio that was synthesized from it. The transcription shows how the synthesizer actually pronounced the line.

Your task: propose a corrected version of the line that, when synthesized again, would be pronounced as the original line intends.

Rules:
- ONLY change words whose pronunciation diverged; leave everything else byte-for-byte identical.
- Never translate. The script language (usually Spanish) must be preserved, including accents and punctuation.
- Be conservative. If you are not confident a change helps pronunciation, propose nothing.
- Respellings for pronunciation (e.g. splitting syllables, adding accents) are acceptable.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "correctedText": "<full corrected line>",
  "substitutions": [
    {"original": "<original word>", "corrected": "<corrected word>", "confidence": <0.0-1.0>}
  ]
}

If no correction is needed, return an empty substitutions array and correctedText equal to the original line.`

// llmResponse is the expected JSON structure returned by the model.
type llmResponse struct {
	CorrectedText string `json:"correctedText"`
	Substitutions []struct {
		Original   string  `json:"original"`
		Corrected  string  `json:"corrected"`
		Confidence float64 `json:"confidence"`
	} `json:"substitutions"`
}

// Completer is the single chat call the LLM stage needs.
// [OpenAICompleter] is the production implementation; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter implements [Completer] with the OpenAI chat completions API.
type OpenAICompleter struct {
	client      oai.Client
	model       string
	temperature float64
}

// OpenAIOption is a functional option for [NewOpenAICompleter].
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	baseURL     string
	timeout     time.Duration
	temperature float64
}

// WithBaseURL overrides the default OpenAI API base URL, for proxies and
// compatible servers.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) {
		c.timeout = d
	}
}

// WithTemperature sets the sampling temperature. Lower values produce more
// deterministic corrections. Default: 0.1.
func WithTemperature(temp float64) OpenAIOption {
	return func(c *openaiConfig) {
		c.temperature = temp
	}
}

// NewOpenAICompleter constructs an [OpenAICompleter].
func NewOpenAICompleter(apiKey, model string, opts ...OpenAIOption) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("suggest: openai apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("suggest: openai model must not be empty")
	}

	cfg := &openaiConfig{temperature: defaultTemperature}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &OpenAICompleter{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		temperature: cfg.temperature,
	}, nil
}

// Complete implements [Completer].
func (o *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	}
	if o.temperature != 0 {
		params.Temperature = param.NewOpt(o.temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("suggest: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("suggest: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// LLM is the model-backed suggestion stage.
//
// Context cancellation and transport errors propagate as errors and the
// pipeline skips the stage. An unparseable model response degrades to no
// suggestions with a nil error.
type LLM struct {
	completer Completer
}

// NewLLM returns an LLM stage backed by the given [Completer].
func NewLLM(c Completer) *LLM {
	return &LLM{completer: c}
}

// Name implements [Stage].
func (l *LLM) Name() string { return "llm" }

// Suggest implements [Stage].
func (l *LLM) Suggest(ctx context.Context, original, transcription string) ([]Suggestion, error) {
	if strings.TrimSpace(original) == "" {
		return nil, nil
	}

	user := fmt.Sprintf("Original line: %s\nTranscription of synthesized audio: %s", original, transcription)

	content, err := l.completer.Complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, err
	}

	suggestion, ok := parseResponse(content, original)
	if !ok {
		return nil, nil
	}
	return []Suggestion{suggestion}, nil
}

// parseResponse unmarshals the model output, stripping optional markdown
// code fences first. ok is false when the response is unusable or proposes
// no change.
func parseResponse(content, original string) (Suggestion, bool) {
	cleaned := stripMarkdown(content)

	var r llmResponse
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return Suggestion{}, false
	}
	if r.CorrectedText == "" || r.CorrectedText == original {
		return Suggestion{}, false
	}

	s := Suggestion{
		Text:   r.CorrectedText,
		Source: "llm",
	}
	var confSum float64
	for _, sub := range r.Substitutions {
		if sub.Original == "" || sub.Original == sub.Corrected {
			continue
		}
		s.Substitutions = append(s.Substitutions, Substitution(sub))
		confSum += sub.Confidence
	}
	if len(s.Substitutions) > 0 {
		s.Confidence = confSum / float64(len(s.Substitutions))
	}
	return s, true
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
