package update

import "github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"

// #region signals
// Signal names one interpreted operator action.
type Signal string

const (
	SignalDemonstratedAuthority Signal = "demonstrated_authority"
	SignalAskedDeepQuestions    Signal = "asked_deep_questions"
	SignalReframedEffectively   Signal = "reframed_effectively"
	SignalBuiltValue            Signal = "built_value"
	SignalBuiltTrust            Signal = "built_trust"
	SignalHandledObjection      Signal = "handled_objection"
	SignalAppliedPressure       Signal = "applied_pressure"
	SignalLostControl           Signal = "lost_control"
	SignalOverExplained         Signal = "over_explained"
)

// ActionSignals is the interpreted operator action for one turn.
// Several signals may fire at once.
type ActionSignals struct {
	DemonstratedAuthority bool `json:"demonstrated_authority"`
	AskedDeepQuestions    bool `json:"asked_deep_questions"`
	ReframedEffectively   bool `json:"reframed_effectively"`
	BuiltValue            bool `json:"built_value"`
	BuiltTrust            bool `json:"built_trust"`
	HandledObjection      bool `json:"handled_objection"`
	AppliedPressure       bool `json:"applied_pressure"`
	LostControl           bool `json:"lost_control"`
	OverExplained         bool `json:"over_explained"`
}

// Fired lists the signals that are set, in table order.
func (a ActionSignals) Fired() []Signal {
	flags := []struct {
		on  bool
		sig Signal
	}{
		{a.DemonstratedAuthority, SignalDemonstratedAuthority},
		{a.AskedDeepQuestions, SignalAskedDeepQuestions},
		{a.ReframedEffectively, SignalReframedEffectively},
		{a.BuiltValue, SignalBuiltValue},
		{a.BuiltTrust, SignalBuiltTrust},
		{a.HandledObjection, SignalHandledObjection},
		{a.AppliedPressure, SignalAppliedPressure},
		{a.LostControl, SignalLostControl},
		{a.OverExplained, SignalOverExplained},
	}
	var out []Signal
	for _, f := range flags {
		if f.on {
			out = append(out, f.sig)
		}
	}
	return out
}

// Names returns Fired as plain strings.
func (a ActionSignals) Names() []string {
	fired := a.Fired()
	out := make([]string, len(fired))
	for i, s := range fired {
		out[i] = string(s)
	}
	return out
}

// #endregion signals

// #region delta
// Delta is the effect of one signal. Numeric fields are additive; step fields
// vote +1 (toward open/deep/quick) or -1.
type Delta struct {
	Resistance      float64
	Trust           float64
	Engagement      float64
	ValuePerception float64
	Openness        int
	Depth           int
	Pace            int
}

// #endregion delta

// #region decision
// Decision records what the transition decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region metrics
// Metrics captures telemetry from one transition.
type Metrics struct {
	Fired    []string           `json:"fired"`
	Deltas   map[string]float64 `json:"deltas"`   // applied change per numeric field, after clamping
	Ratchets map[string]int     `json:"ratchets"` // applied step per categorical field
	Backlash bool               `json:"backlash"`
}

// #endregion metrics

// #region config
// Config holds the delta table and the pressure backlash rule.
type Config struct {
	Deltas map[Signal]Delta

	// Pressure applied while incoming trust is below this threshold uses
	// Backlash instead of the ordinary pressure delta.
	PressureTrustThreshold float64
	Backlash               Delta
}

// DefaultConfig returns the standard delta table.
func DefaultConfig() Config {
	deltas := make(map[Signal]Delta, len(defaultDeltas))
	for k, v := range defaultDeltas {
		deltas[k] = v
	}
	return Config{
		Deltas:                 deltas,
		PressureTrustThreshold: 5,
		Backlash:               pressureBacklash,
	}
}

// #endregion config

// #region result
// Result bundles everything returned by Transition.
type Result struct {
	NewState state.BehaviorState
	Decision Decision
	Metrics  Metrics
}

// #endregion result
