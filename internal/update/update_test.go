package update

import (
	"testing"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

func midState() state.BehaviorState {
	return state.BehaviorState{
		Resistance: 5, Trust: 4, Engagement: 5, ValuePerception: 5,
		Openness: state.OpennessCautious, AnswerDepth: state.DepthMedium, ResponsePace: state.PaceMeasured,
	}
}

func allSignals() ActionSignals {
	return ActionSignals{true, true, true, true, true, true, true, true, true}
}

func TestTransitionNoOp(t *testing.T) {
	old := midState()
	r := Transition(old, ActionSignals{}, DefaultConfig())
	if r.Decision.Action != "no_op" {
		t.Fatalf("expected no_op, got %s", r.Decision.Action)
	}
	if r.NewState != old {
		t.Fatalf("state changed: %+v", r.NewState)
	}
}

func TestTransitionDeterministic(t *testing.T) {
	sig := ActionSignals{DemonstratedAuthority: true, AppliedPressure: true, OverExplained: true}
	r1 := Transition(midState(), sig, DefaultConfig())
	r2 := Transition(midState(), sig, DefaultConfig())
	if r1.NewState != r2.NewState {
		t.Fatalf("non-deterministic: %+v vs %+v", r1.NewState, r2.NewState)
	}
	if r1.Decision != r2.Decision {
		t.Fatal("decision differs between identical calls")
	}
}

func TestTransitionStaysInBounds(t *testing.T) {
	extremes := []state.BehaviorState{
		{Resistance: 0, Trust: 0, Engagement: 0, ValuePerception: 0},
		{Resistance: 10, Trust: 10, Engagement: 10, ValuePerception: 10,
			Openness: state.OpennessOpen, AnswerDepth: state.DepthDeep, ResponsePace: state.PaceQuick},
		{Resistance: 9.8, Trust: 0.2, Engagement: 9.9, ValuePerception: 0.1},
	}
	signalSets := []ActionSignals{
		allSignals(),
		{AppliedPressure: true, LostControl: true, OverExplained: true},
		{DemonstratedAuthority: true, AskedDeepQuestions: true, BuiltTrust: true, BuiltValue: true, HandledObjection: true},
	}

	for _, s := range extremes {
		for _, sig := range signalSets {
			cur := s
			for i := 0; i < 20; i++ {
				cur = Transition(cur, sig, DefaultConfig()).NewState
				for name, v := range map[string]float64{
					"resistance": cur.Resistance, "trust": cur.Trust,
					"engagement": cur.Engagement, "value": cur.ValuePerception,
				} {
					if v < state.MinValue || v > state.MaxValue {
						t.Fatalf("%s out of bounds: %f", name, v)
					}
				}
				if !cur.Openness.Valid() || !cur.AnswerDepth.Valid() || !cur.ResponsePace.Valid() {
					t.Fatalf("invalid step field: %+v", cur)
				}
			}
		}
	}
}

func TestPressureBeforeTrustBacklash(t *testing.T) {
	base := ActionSignals{AskedDeepQuestions: true}
	pressured := base
	pressured.AppliedPressure = true

	old := midState() // trust 4
	without := Transition(old, base, DefaultConfig())
	with := Transition(old, pressured, DefaultConfig())

	if !(with.NewState.Resistance > without.NewState.Resistance) {
		t.Fatalf("resistance did not increase: %f vs %f", with.NewState.Resistance, without.NewState.Resistance)
	}
	if !(with.NewState.Trust < without.NewState.Trust) {
		t.Fatalf("trust did not decrease: %f vs %f", with.NewState.Trust, without.NewState.Trust)
	}
	if !with.Metrics.Backlash {
		t.Fatal("expected backlash flag")
	}
	if got := with.NewState.Resistance - without.NewState.Resistance; got != 2 {
		t.Fatalf("backlash resistance delta = %f, want 2", got)
	}
}

func TestPressureAfterTrustIsMild(t *testing.T) {
	old := midState()
	old.Trust = 7
	r := Transition(old, ActionSignals{AppliedPressure: true}, DefaultConfig())
	if r.Metrics.Backlash {
		t.Fatal("no backlash expected once trust is earned")
	}
	if r.NewState.Trust != 7 || r.NewState.Resistance != 5.5 {
		t.Fatalf("unexpected state: %+v", r.NewState)
	}
}

func TestRatchetOneStepPerTransition(t *testing.T) {
	old := state.BehaviorState{Openness: state.OpennessClosed, AnswerDepth: state.DepthShallow, ResponsePace: state.PaceSlow}
	cfg := DefaultConfig()
	cfg.Deltas[SignalBuiltValue] = Delta{Openness: +1}

	// Authority and built value both vote for openness; it still moves one step.
	sig := ActionSignals{DemonstratedAuthority: true, AskedDeepQuestions: true, BuiltTrust: true, BuiltValue: true}
	r := Transition(old, sig, cfg)
	if r.NewState.Openness != state.OpennessCautious {
		t.Fatalf("openness = %s", r.NewState.Openness)
	}
	if r.NewState.AnswerDepth != state.DepthMedium || r.NewState.ResponsePace != state.PaceMeasured {
		t.Fatalf("unexpected ratchets: %+v", r.NewState)
	}
	if r.Metrics.Ratchets["openness"] != 1 {
		t.Fatalf("ratchet metric = %d", r.Metrics.Ratchets["openness"])
	}
}

func TestRatchetNetVoteCancels(t *testing.T) {
	old := midState()
	// deep questions +1 depth, over-explained -1 depth
	r := Transition(old, ActionSignals{AskedDeepQuestions: true, OverExplained: true}, DefaultConfig())
	if r.NewState.AnswerDepth != old.AnswerDepth {
		t.Fatalf("depth moved: %s", r.NewState.AnswerDepth)
	}
}

func TestFiredOrder(t *testing.T) {
	names := ActionSignals{OverExplained: true, DemonstratedAuthority: true}.Names()
	if len(names) != 2 || names[0] != "demonstrated_authority" || names[1] != "over_explained" {
		t.Fatalf("unexpected order: %v", names)
	}
}
