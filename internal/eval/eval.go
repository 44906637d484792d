package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

// #region eval-harness
// EvalHarness validates a proposed behavior state before it is committed.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks bounds, step validity and per-turn movement of the proposed state.
func (h *EvalHarness) Run(old, proposed state.BehaviorState) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	// 1. Numeric bounds and per-turn movement
	fields := []struct {
		name     string
		old, new float64
	}{
		{"resistance", old.Resistance, proposed.Resistance},
		{"trust", old.Trust, proposed.Trust},
		{"engagement", old.Engagement, proposed.Engagement},
		{"value_perception", old.ValuePerception, proposed.ValuePerception},
	}
	for _, f := range fields {
		inBounds := !math.IsNaN(f.new) && f.new >= state.MinValue && f.new <= state.MaxValue
		metrics = append(metrics, EvalMetric{Name: f.name, Value: f.new, Pass: inBounds})
		if !inBounds {
			failReasons = append(failReasons, fmt.Sprintf("%s %.2f outside [%.0f,%.0f]", f.name, f.new, state.MinValue, state.MaxValue))
		}

		delta := math.Abs(f.new - f.old)
		deltaPass := delta <= h.config.MaxFieldDelta
		metrics = append(metrics, EvalMetric{Name: f.name + "_delta", Value: delta, Pass: deltaPass})
		if !deltaPass {
			failReasons = append(failReasons, fmt.Sprintf("%s moved %.2f, max %.2f", f.name, delta, h.config.MaxFieldDelta))
		}
	}

	// 2. Categorical fields: valid and no skipped steps
	steps := []struct {
		name     string
		old, new int
		valid    bool
	}{
		{"openness", int(old.Openness), int(proposed.Openness), proposed.Openness.Valid()},
		{"answer_depth", int(old.AnswerDepth), int(proposed.AnswerDepth), proposed.AnswerDepth.Valid()},
		{"response_pace", int(old.ResponsePace), int(proposed.ResponsePace), proposed.ResponsePace.Valid()},
	}
	for _, s := range steps {
		jump := s.new - s.old
		if jump < 0 {
			jump = -jump
		}
		pass := s.valid && jump <= h.config.MaxStepJump
		metrics = append(metrics, EvalMetric{Name: s.name + "_step", Value: float64(jump), Pass: pass})
		if !s.valid {
			failReasons = append(failReasons, fmt.Sprintf("%s has invalid value %d", s.name, s.new))
		} else if !pass {
			failReasons = append(failReasons, fmt.Sprintf("%s jumped %d steps", s.name, jump))
		}
	}

	passed := len(failReasons) == 0
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
