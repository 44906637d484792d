package state

import (
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
)

// #region presets
// tierPresets is the starting disposition per difficulty tier.
var tierPresets = map[difficulty.Tier]BehaviorState{
	difficulty.TierEasy: {
		Resistance: 2, Trust: 6, Engagement: 7, ValuePerception: 6,
		Openness: OpennessOpen, AnswerDepth: DepthDeep, ResponsePace: PaceQuick,
	},
	difficulty.TierRealistic: {
		Resistance: 4, Trust: 5, Engagement: 6, ValuePerception: 5,
		Openness: OpennessCautious, AnswerDepth: DepthMedium, ResponsePace: PaceMeasured,
	},
	difficulty.TierHard: {
		Resistance: 6, Trust: 4, Engagement: 5, ValuePerception: 4,
		Openness: OpennessCautious, AnswerDepth: DepthShallow, ResponsePace: PaceMeasured,
	},
	difficulty.TierElite: {
		Resistance: 7, Trust: 3, Engagement: 4, ValuePerception: 3,
		Openness: OpennessClosed, AnswerDepth: DepthShallow, ResponsePace: PaceSlow,
	},
	difficulty.TierNearImpossible: {
		Resistance: 8.5, Trust: 2, Engagement: 3, ValuePerception: 2,
		Openness: OpennessClosed, AnswerDepth: DepthShallow, ResponsePace: PaceSlow,
	},
}

// Preset returns the base state for a tier; unknown tiers get the realistic preset.
func Preset(tier difficulty.Tier) BehaviorState {
	if p, ok := tierPresets[tier]; ok {
		return p
	}
	return tierPresets[difficulty.TierRealistic]
}

// #endregion presets

// #region initialize
// Initialize builds the starting state from the difficulty profile and funnel
// context. Trust and resistance are shifted by the funnel defaults; every field
// is clamped after each adjustment.
func Initialize(profile difficulty.Profile, fc funnel.Context) BehaviorState {
	s := Preset(profile.Tier).Clamped()

	s.Trust = Clamp(s.Trust + fc.Impact.StartingTrust)
	s = s.Clamped()

	s.Resistance = Clamp(s.Resistance + fc.Impact.EarlyResistance)
	return s.Clamped()
}

// #endregion initialize

// #region derive
const (
	highFrequencyResistance   = 7.0
	mediumFrequencyResistance = 4.0

	hardIntensityGap = 4.0
	firmIntensityGap = 1.0

	challengeResistance  = 6.0
	challengeEngagement  = 5.0
	mediumChallengeFloor = 4.0
)

// Derived recomputes the categorical labels from the numeric fields.
func (s BehaviorState) Derived() Derived {
	var d Derived

	switch {
	case s.Resistance >= highFrequencyResistance:
		d.ObjectionFrequency = FrequencyHigh
	case s.Resistance >= mediumFrequencyResistance:
		d.ObjectionFrequency = FrequencyMedium
	default:
		d.ObjectionFrequency = FrequencyLow
	}

	switch gap := s.Resistance - s.Trust; {
	case gap >= hardIntensityGap:
		d.ObjectionIntensity = IntensityHard
	case gap >= firmIntensityGap:
		d.ObjectionIntensity = IntensityFirm
	default:
		d.ObjectionIntensity = IntensitySoft
	}

	switch {
	case s.Resistance >= challengeResistance && s.Engagement >= challengeEngagement:
		d.Challengeability = LevelHigh
	case s.Resistance >= mediumChallengeFloor:
		d.Challengeability = LevelMedium
	default:
		d.Challengeability = LevelLow
	}

	return d
}

// #endregion derive
