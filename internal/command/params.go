package command

import (
	"fmt"
	"strings"

	"fastllamad/internal/native"
)

// Generation defaults.
const (
	DefaultNumTokens     = 500
	DefaultTopK          = 40
	DefaultTopP          = 0.95
	DefaultTemperature   = 0.8
	DefaultRepeatPenalty = 1.0
	DefaultPrefix        = "\n\n### Instruction:\n\n"
	DefaultSuffix        = "\n\n### Response:\n\n"
)

// DefaultStopWords end a response at the next instruction header.
var DefaultStopWords = []string{"###"}

// Params are the per-session generation settings changed by `set`.
type Params struct {
	NumTokens     int      `json:"max_gen_token_length" yaml:"max_gen_token_length" toml:"max_gen_token_length"`
	TopK          int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP          float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	Temperature   float64  `json:"temp" yaml:"temp" toml:"temp"`
	RepeatPenalty float64  `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	Prefix        string   `json:"p_prefix" yaml:"p_prefix" toml:"p_prefix"`
	Suffix        string   `json:"p_suffix" yaml:"p_suffix" toml:"p_suffix"`
	StopWords     []string `json:"stop_words" yaml:"stop_words" toml:"stop_words"`
	Seed          int      `json:"seed" yaml:"seed" toml:"seed"`
}

// DefaultParams returns the generation settings of a new session.
func DefaultParams() Params {
	return Params{
		NumTokens:     DefaultNumTokens,
		TopK:          DefaultTopK,
		TopP:          DefaultTopP,
		Temperature:   DefaultTemperature,
		RepeatPenalty: DefaultRepeatPenalty,
		Prefix:        DefaultPrefix,
		Suffix:        DefaultSuffix,
		StopWords:     append([]string(nil), DefaultStopWords...),
	}
}

// WithDefaults fills unset numeric fields from d. Empty prefix and suffix are kept.
func (p Params) WithDefaults(d Params) Params {
	if p.NumTokens <= 0 {
		p.NumTokens = d.NumTokens
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.TopP <= 0 {
		p.TopP = d.TopP
	}
	if p.Temperature <= 0 {
		p.Temperature = d.Temperature
	}
	if p.RepeatPenalty <= 0 {
		p.RepeatPenalty = d.RepeatPenalty
	}
	if p.StopWords == nil {
		p.StopWords = append([]string(nil), d.StopWords...)
	}
	return p
}

// Apply returns p updated by a validated `set` invocation. On error p is
// returned unchanged.
func (p Params) Apply(inv Invocation) (Params, error) {
	if inv.Name != Set {
		return p, &ValidationError{Command: inv.Name, Reason: "not a set command"}
	}
	next := p
	next.StopWords = append([]string(nil), p.StopWords...)
	if inv.Has("max_gen_token_length") {
		next.NumTokens = inv.Int("max_gen_token_length")
	}
	if inv.Has("top_k") {
		next.TopK = inv.Int("top_k")
	}
	if inv.Has("top_p") {
		next.TopP = inv.Float("top_p")
	}
	if inv.Has("temp") {
		next.Temperature = inv.Float("temp")
	}
	if inv.Has("repeat_penalty") {
		next.RepeatPenalty = inv.Float("repeat_penalty")
	}
	if inv.Has("p_prefix") {
		next.Prefix = inv.String("p_prefix")
	}
	if inv.Has("p_suffix") {
		next.Suffix = inv.String("p_suffix")
	}
	if inv.Has("stop_words") {
		next.StopWords = splitStopWords(inv.String("stop_words"))
	}
	if inv.Has("seed") {
		next.Seed = inv.Int("seed")
	}
	if err := next.Validate(); err != nil {
		return p, &ValidationError{Command: Set, Reason: err.Error()}
	}
	return next, nil
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.NumTokens <= 0:
		return fmt.Errorf("max_gen_token_length must be positive, got %d", p.NumTokens)
	case p.TopK <= 0:
		return fmt.Errorf("top_k must be positive, got %d", p.TopK)
	case p.TopP <= 0 || p.TopP > 1:
		return fmt.Errorf("top_p must be in (0, 1], got %v", p.TopP)
	case p.Temperature < 0:
		return fmt.Errorf("temp must not be negative, got %v", p.Temperature)
	case p.RepeatPenalty <= 0:
		return fmt.Errorf("repeat_penalty must be positive, got %v", p.RepeatPenalty)
	}
	return nil
}

// Prompt wraps text with the configured prefix and suffix.
func (p Params) Prompt(text string) string { return p.Prefix + text + p.Suffix }

// Sampling converts p to engine sampling parameters.
func (p Params) Sampling() native.SamplingParams {
	return native.SamplingParams{
		NumTokens:     p.NumTokens,
		TopK:          p.TopK,
		TopP:          float32(p.TopP),
		Temperature:   float32(p.Temperature),
		RepeatPenalty: float32(p.RepeatPenalty),
		Seed:          p.Seed,
	}
}

func splitStopWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
