package signals

import "github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"

// #region config

// ProducerConfig holds tuning knobs for signal detection.
type ProducerConfig struct {
	VerboseWords      int `yaml:"verbose_words"`      // utterances longer than this are over-explaining
	ControlLossHits   int `yaml:"control_loss_hits"`  // apologies + fillers needed for lost control
	ObjectionLookback int `yaml:"objection_lookback"` // counterpart turns scanned for a live objection
}

// DefaultProducerConfig returns sensible defaults.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		VerboseWords:      120,
		ControlLossHits:   2,
		ObjectionLookback: 3,
	}
}

// #endregion config

// #region input

// ProduceInput bundles the data available for interpreting one operator turn.
type ProduceInput struct {
	Utterance         string
	RecentCounterpart []transcript.Turn // oldest first
}

// #endregion input
