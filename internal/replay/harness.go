package replay

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/eval"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/signals"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/update"
)

// #region types
// Interaction is one recorded exchange: what the operator said and what the
// counterpart answered. Degraded marks a turn whose counterpart line was the
// fallback; such turns leave the state unchanged.
type Interaction struct {
	TurnID      string
	Operator    string
	Counterpart string
	Degraded    bool
}

// ReplayConfig bundles the producer, transition, eval and gate configs for a run.
type ReplayConfig struct {
	Producer signals.ProducerConfig
	Update   update.Config
	Eval     eval.EvalConfig
	Gate     gate.GateConfig
}

// DefaultReplayConfig returns the stock config of every pipeline stage.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Producer: signals.DefaultProducerConfig(),
		Update:   update.DefaultConfig(),
		Eval:     eval.DefaultEvalConfig(),
		Gate:     gate.DefaultGateConfig(),
	}
}

// ReplayResult captures one interaction run through the pipeline.
type ReplayResult struct {
	TurnID    string
	TurnCount int    // 1-based operator turn
	Action    string // "commit" | "no_op" | "reject" | "degraded"
	Reason    string
	Signals   []string

	Transition update.Result
	Eval       eval.EvalResult
	Gate       gate.GateDecision

	// State after this turn; equals the previous state unless committed.
	State state.BehaviorState
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	Commits    int
	NoOps      int
	Rejects    int
	Degraded   int
	Surfaced   int
	StartState state.BehaviorState
	FinalState state.BehaviorState
}

// #endregion types

// #region replay
// Replay runs interactions in order through signals → transition → eval →
// gate, entirely in memory. The gate draws from rng once per turn, degraded
// or not, so a seeded source reproduces the recorded draws.
func Replay(start state.BehaviorState, interactions []Interaction, config ReplayConfig, rng gate.Source) []ReplayResult {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	producer := signals.NewProducer(config.Producer)
	evalInst := eval.NewEvalHarness(config.Eval)
	gateInst := gate.NewGate(config.Gate)

	current := start
	var history []transcript.Turn
	results := make([]ReplayResult, 0, len(interactions))

	for i, inter := range interactions {
		turnCount := i + 1

		// 1. Signals
		sig := producer.Produce(signals.ProduceInput{
			Utterance:         inter.Operator,
			RecentCounterpart: transcript.LastByRole(history, transcript.RoleCounterpart, config.Producer.ObjectionLookback),
		})

		// 2. Transition + eval
		tr := update.Transition(current, sig, config.Update)
		ev := evalInst.Run(current, tr.NewState)
		next := tr.NewState
		action, reason := tr.Decision.Action, tr.Decision.Reason
		if !ev.Passed {
			next = current
			action, reason = "reject", ev.Reason
		}

		// 3. Gate
		gd := gateInst.ShouldSurface(next, turnCount, rng)

		if inter.Degraded {
			next = current
			action, reason = "degraded", "fallback line"
		}

		results = append(results, ReplayResult{
			TurnID:     inter.TurnID,
			TurnCount:  turnCount,
			Action:     action,
			Reason:     reason,
			Signals:    sig.Names(),
			Transition: tr,
			Eval:       ev,
			Gate:       gd,
			State:      next,
		})
		current = next

		idx := transcript.NextIndex(history)
		history = append(history,
			transcript.Turn{Index: idx, Role: transcript.RoleOperator, Text: inter.Operator},
			transcript.Turn{Index: idx + 1, Role: transcript.RoleCounterpart, Text: inter.Counterpart, Degraded: inter.Degraded},
		)
	}

	return results
}

// #endregion replay

// #region summarize
// Summarize computes aggregate stats from replay results.
func Summarize(start state.BehaviorState, results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalTurns: len(results),
		StartState: start,
		FinalState: start,
	}
	for _, r := range results {
		switch r.Action {
		case "commit":
			s.Commits++
		case "no_op":
			s.NoOps++
		case "reject":
			s.Rejects++
		case "degraded":
			s.Degraded++
		}
		if r.Gate.Surface {
			s.Surfaced++
		}
	}
	if len(results) > 0 {
		s.FinalState = results[len(results)-1].State
	}
	return s
}

// #endregion summarize
