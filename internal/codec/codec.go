package codec

import (
	"context"
	"fmt"
	"strings"
)

// #region factory
// New builds the generator named by cfg.Provider. The returned closer releases
// any connection the provider holds and is never nil.
func New(ctx context.Context, cfg Config) (Generator, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Provider) {
	case "grpc", "":
		if cfg.Addr == "" {
			return nil, noop, fmt.Errorf("grpc provider needs an address")
		}
		g, err := NewGRPCGenerator(cfg.Addr, cfg.MaxTokens)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	case "anthropic":
		return NewAnthropicGenerator(cfg), noop, nil
	case "gemini":
		g, err := NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		return g, noop, nil
	case "echo":
		return Echo{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// #endregion factory

// #region echo
// Echo is an offline generator for local runs: it answers with a neutral
// acknowledgement and never fails.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Okay. Go on, I'm listening.", nil
}

// #endregion echo

// #region helpers
// alternate trims leading counterpart turns and merges consecutive turns by
// the same speaker so chat APIs see a strict user/model alternation that
// starts with the operator.
func alternate(turns []Message) []Message {
	var out []Message
	for _, m := range turns {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		if len(out) == 0 && m.Speaker == SpeakerCounterpart {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Speaker == m.Speaker {
			out[n-1].Text += "\n" + text
			continue
		}
		out = append(out, Message{Speaker: m.Speaker, Text: text})
	}
	return out
}

// #endregion helpers
