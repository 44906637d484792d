package update

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

// #region delta-table
var defaultDeltas = map[Signal]Delta{
	SignalDemonstratedAuthority: {Trust: 0.75, Resistance: -0.5, Openness: +1},
	SignalAskedDeepQuestions:    {Engagement: 1, Trust: 0.5, Depth: +1},
	SignalReframedEffectively:   {Resistance: -1, ValuePerception: 0.5},
	SignalBuiltValue:            {ValuePerception: 1, Engagement: 0.5},
	SignalBuiltTrust:            {Trust: 1, Resistance: -0.5, Pace: +1},
	SignalHandledObjection:      {Resistance: -1, Trust: 0.5},
	SignalAppliedPressure:       {Resistance: 0.5, Engagement: -0.5},
	SignalLostControl:           {Engagement: -1, Resistance: 0.5, Pace: -1},
	SignalOverExplained:         {Engagement: -1, ValuePerception: -0.5, Depth: -1},
}

// pressureBacklash replaces the pressure delta when trust has not been earned.
var pressureBacklash = Delta{Resistance: 2, Trust: -1, Engagement: -0.5, Openness: -1}

// #endregion delta-table

// #region transition
// Transition is a pure function computing the next behavior state from the
// current one and the interpreted operator action. Numeric deltas are summed
// then clamped; each categorical field moves at most one step by net vote.
func Transition(old state.BehaviorState, sig ActionSignals, cfg Config) Result {
	if cfg.Deltas == nil {
		cfg = DefaultConfig()
	}

	fired := sig.Fired()
	if len(fired) == 0 {
		return Result{
			NewState: old.Clamped(),
			Decision: Decision{Action: "no_op", Reason: "no action signals"},
			Metrics:  Metrics{Deltas: map[string]float64{}, Ratchets: map[string]int{}},
		}
	}

	var total Delta
	backlash := false
	for _, s := range fired {
		d := cfg.Deltas[s]
		// Measured on the incoming state, not on partially applied deltas.
		if s == SignalAppliedPressure && old.Trust < cfg.PressureTrustThreshold {
			d = cfg.Backlash
			backlash = true
		}
		total = add(total, d)
	}

	next := old
	next.Resistance = state.Clamp(old.Resistance + total.Resistance)
	next.Trust = state.Clamp(old.Trust + total.Trust)
	next.Engagement = state.Clamp(old.Engagement + total.Engagement)
	next.ValuePerception = state.Clamp(old.ValuePerception + total.ValuePerception)

	next.Openness = ratchet(old.Openness, total.Openness)
	next.AnswerDepth = ratchet(old.AnswerDepth, total.Depth)
	next.ResponsePace = ratchet(old.ResponsePace, total.Pace)

	metrics := Metrics{
		Fired: sig.Names(),
		Deltas: map[string]float64{
			"resistance":       next.Resistance - old.Resistance,
			"trust":            next.Trust - old.Trust,
			"engagement":       next.Engagement - old.Engagement,
			"value_perception": next.ValuePerception - old.ValuePerception,
		},
		Ratchets: map[string]int{
			"openness":      int(next.Openness) - int(old.Openness),
			"answer_depth":  int(next.AnswerDepth) - int(old.AnswerDepth),
			"response_pace": int(next.ResponsePace) - int(old.ResponsePace),
		},
		Backlash: backlash,
	}

	reason := fmt.Sprintf("applied %s", strings.Join(metrics.Fired, ","))
	if backlash {
		reason += "; pressure before trust"
	}

	return Result{
		NewState: next,
		Decision: Decision{Action: "commit", Reason: reason},
		Metrics:  metrics,
	}
}

// #endregion transition

// #region helpers
func add(a, b Delta) Delta {
	return Delta{
		Resistance:      a.Resistance + b.Resistance,
		Trust:           a.Trust + b.Trust,
		Engagement:      a.Engagement + b.Engagement,
		ValuePerception: a.ValuePerception + b.ValuePerception,
		Openness:        a.Openness + b.Openness,
		Depth:           a.Depth + b.Depth,
		Pace:            a.Pace + b.Pace,
	}
}

type stepper[T any] interface {
	Advance() T
	Retreat() T
}

func ratchet[T stepper[T]](v T, vote int) T {
	switch {
	case vote > 0:
		return v.Advance()
	case vote < 0:
		return v.Retreat()
	}
	return v
}

// #endregion helpers
