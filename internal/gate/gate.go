package gate

import (
	"fmt"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

// #region gate
// Gate decides whether the counterpart raises resistance this turn.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the active configuration.
func (g *Gate) Config() GateConfig {
	return g.config
}

// ShouldSurface draws once from rng and compares against Probability.
func (g *Gate) ShouldSurface(s state.BehaviorState, turnCount int, rng Source) GateDecision {
	p := Probability(s, turnCount, g.config)
	draw := rng.Float64()

	d := GateDecision{
		Probability: p,
		Draw:        draw,
		Category:    objection.CategoryNone,
	}
	if draw < p {
		d.Surface = true
		d.Category = ClassifyCategory(s, g.config)
		d.Reason = fmt.Sprintf("draw %.3f < p %.3f", draw, p)
		return d
	}
	d.Reason = fmt.Sprintf("draw %.3f >= p %.3f", draw, p)
	return d
}

// #endregion gate

// #region probability
// Probability is the pure chance that resistance surfaces this turn.
func Probability(s state.BehaviorState, turnCount int, cfg GateConfig) float64 {
	if turnCount < cfg.MinTurns {
		return 0
	}
	s = s.Clamped()

	var p float64
	switch s.Derived().ObjectionFrequency {
	case state.FrequencyHigh:
		p = cfg.BaseHigh
	case state.FrequencyMedium:
		p = cfg.BaseMedium
	default:
		p = cfg.BaseLow
	}

	if s.Resistance > cfg.HighResistance {
		span := state.MaxValue - cfg.HighResistance
		frac := 1.0
		if span > 0 {
			frac = (s.Resistance - cfg.HighResistance) / span
		}
		p += cfg.HighResistanceMin + frac*(cfg.HighResistanceMax-cfg.HighResistanceMin)
	}
	if s.Trust < cfg.LowTrust {
		p += cfg.LowTrustBonus
	}
	if s.ValuePerception < cfg.LowValue {
		p += cfg.LowValueBonus
	}

	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// #endregion probability

// #region category
// ClassifyCategory picks the weakest pillar as the next likely objection.
// Pillars are value perception, trust and fit (10 - resistance); ties resolve
// in that order. When every pillar is healthy only logistics remain.
func ClassifyCategory(s state.BehaviorState, cfg GateConfig) objection.Category {
	s = s.Clamped()
	if s.ValuePerception >= cfg.HealthyValue && s.Trust >= cfg.HealthyTrust && s.Resistance <= cfg.HealthyResistance {
		return objection.CategoryLogistics
	}

	pillars := []struct {
		score float64
		cat   objection.Category
	}{
		{s.ValuePerception, objection.CategoryValue},
		{s.Trust, objection.CategoryTrust},
		{state.MaxValue - s.Resistance, objection.CategoryFit},
	}

	weakest := pillars[0]
	for _, p := range pillars[1:] {
		if p.score < weakest.score {
			weakest = p
		}
	}
	return weakest.cat
}

// #endregion category
