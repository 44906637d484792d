package gate

import "github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"

// #region source
// Source is the random draw the gate isolates. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// #endregion source

// #region gate-config
// GateConfig holds the resistance-surfacing probabilities. The values are
// empirically tuned defaults and are expected to be overridden from config.
type GateConfig struct {
	BaseLow    float64 `yaml:"base_low"`    // objection frequency low
	BaseMedium float64 `yaml:"base_medium"` // objection frequency medium
	BaseHigh   float64 `yaml:"base_high"`   // objection frequency high

	HighResistance    float64 `yaml:"high_resistance"`     // bonus applies strictly above this
	HighResistanceMin float64 `yaml:"high_resistance_min"` // bonus just above the threshold
	HighResistanceMax float64 `yaml:"high_resistance_max"` // bonus at resistance 10

	LowTrust      float64 `yaml:"low_trust"` // bonus applies strictly below this
	LowTrustBonus float64 `yaml:"low_trust_bonus"`
	LowValue      float64 `yaml:"low_value"` // bonus applies strictly below this
	LowValueBonus float64 `yaml:"low_value_bonus"`

	MinTurns int `yaml:"min_turns"` // no resistance before this operator turn (1-based)

	// Pillar health for the logistics category.
	HealthyValue      float64 `yaml:"healthy_value"`
	HealthyTrust      float64 `yaml:"healthy_trust"`
	HealthyResistance float64 `yaml:"healthy_resistance"`
}

// DefaultGateConfig returns the stock probability table.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		BaseLow:           0.10,
		BaseMedium:        0.20,
		BaseHigh:          0.30,
		HighResistance:    7,
		HighResistanceMin: 0.10,
		HighResistanceMax: 0.20,
		LowTrust:          4,
		LowTrustBonus:     0.15,
		LowValue:          4,
		LowValueBonus:     0.15,
		MinTurns:          1,
		HealthyValue:      6,
		HealthyTrust:      6,
		HealthyResistance: 4,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of one resistance gate evaluation.
type GateDecision struct {
	Surface     bool
	Probability float64
	Draw        float64
	Category    objection.Category // weakest pillar; CategoryNone when not surfacing
	Reason      string
}

// #endregion gate-decision
