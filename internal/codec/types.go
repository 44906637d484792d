package codec

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty generation response")

// #region message
// Speaker identifies who said a message from the model's point of view.
type Speaker string

const (
	SpeakerOperator    Speaker = "operator"    // the human rep; sent as the user role
	SpeakerCounterpart Speaker = "counterpart" // the simulated prospect; sent as the model role
)

// Message is one prior turn in the recent-turn window.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Request is a single generation call.
type Request struct {
	System    string
	Turns     []Message // oldest first; the last entry is the operator's latest line
	MaxTokens int
}

// #endregion message

// #region generator
// Generator produces the counterpart's next line. Implementations must honor
// ctx cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
func (f GeneratorFunc) Name() string { return "func" }

// #endregion generator

// #region config
// Config selects and configures a provider.
type Config struct {
	Provider  string `yaml:"provider"` // "grpc" | "anthropic" | "gemini" | "echo"
	Model     string `yaml:"model"`
	Addr      string `yaml:"addr"` // grpc only
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

const defaultMaxTokens = 256

// #endregion config
