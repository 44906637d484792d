package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Seed            uint64                  `json:"seed"`
	Start           FixtureStart            `json:"start"`
	Config          FixtureConfig           `json:"config"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStart is either an explicit state or a tier plus funnel category
// that is initialized the way a new session would be.
type FixtureStart struct {
	State          *state.BehaviorState `json:"state,omitempty"`
	Tier           string               `json:"tier,omitempty"`
	FunnelCategory string               `json:"funnel_category,omitempty"`
}

// FixtureInteraction mirrors Interaction with JSON tags.
type FixtureInteraction struct {
	TurnID      string `json:"turn_id"`
	Operator    string `json:"operator"`
	Counterpart string `json:"counterpart"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// FixtureExpectedResult captures the expected action per turn.
type FixtureExpectedResult struct {
	TurnID string `json:"turn_id"`
	Action string `json:"action"`
}

// FixtureConfig overrides pipeline thresholds. Zero values keep defaults.
type FixtureConfig struct {
	MinTurns      int     `json:"min_turns"`
	MaxFieldDelta float64 `json:"max_field_delta"`
	MaxStepJump   int     `json:"max_step_jump"`
	VerboseWords  int     `json:"verbose_words"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// StartState resolves the fixture's starting behavior state.
func (s FixtureStart) StartState() (state.BehaviorState, error) {
	if s.State != nil {
		return s.State.Clamped(), nil
	}
	tier, err := difficulty.ParseTier(s.Tier)
	if err != nil {
		return state.BehaviorState{}, err
	}
	fc, err := funnel.Classify(funnel.Category(s.FunnelCategory))
	if err != nil {
		return state.BehaviorState{}, err
	}
	return state.Initialize(difficulty.Profile{Tier: tier}, fc), nil
}

// ToInteractions converts fixture interactions to domain interactions.
func (f *Fixture) ToInteractions() []Interaction {
	out := make([]Interaction, len(f.Interactions))
	for i, fi := range f.Interactions {
		out[i] = Interaction{
			TurnID:      fi.TurnID,
			Operator:    fi.Operator,
			Counterpart: fi.Counterpart,
			Degraded:    fi.Degraded,
		}
	}
	return out
}

// ToReplayConfig applies the fixture overrides on top of the defaults.
func (fc FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.MinTurns > 0 {
		cfg.Gate.MinTurns = fc.MinTurns
	}
	if fc.MaxFieldDelta > 0 {
		cfg.Eval.MaxFieldDelta = fc.MaxFieldDelta
	}
	if fc.MaxStepJump > 0 {
		cfg.Eval.MaxStepJump = fc.MaxStepJump
	}
	if fc.VerboseWords > 0 {
		cfg.Producer.VerboseWords = fc.VerboseWords
	}
	return cfg
}

// #endregion fixture-loader
