package difficulty

import (
	"errors"
	"fmt"
)

// #region errors

// ErrUnknownTier is returned when a tier name is not one of the five bands.
var ErrUnknownTier = errors.New("unknown difficulty tier")

// ErrUnknownAuthority is returned when an authority level is missing or invalid.
var ErrUnknownAuthority = errors.New("unknown authority level")

// #endregion errors

// #region authority

// AuthorityLevel is how the prospect positions themselves relative to the rep.
type AuthorityLevel string

const (
	AuthorityAdvisee AuthorityLevel = "advisee"
	AuthorityPeer    AuthorityLevel = "peer"
	AuthorityAdvisor AuthorityLevel = "advisor"
)

// authorityDiscount is subtracted from PerceivedNeed before summing.
var authorityDiscount = map[AuthorityLevel]int{
	AuthorityAdvisee: 0,
	AuthorityPeer:    1,
	AuthorityAdvisor: 3,
}

// ParseAuthority validates an authority level string.
func ParseAuthority(s string) (AuthorityLevel, error) {
	a := AuthorityLevel(s)
	if _, ok := authorityDiscount[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAuthority, s)
	}
	return a, nil
}

// #endregion authority

// #region tier

// Tier is one of five ordered difficulty bands. Higher index = easier prospect.
type Tier string

const (
	TierEasy           Tier = "easy"
	TierRealistic      Tier = "realistic"
	TierHard           Tier = "hard"
	TierElite          Tier = "elite"
	TierNearImpossible Tier = "near_impossible"
)

// TierBand is an inclusive index range mapped to a tier.
type TierBand struct {
	Tier Tier
	Min  int
	Max  int
}

// Contains reports whether index falls inside the band.
func (b TierBand) Contains(index int) bool {
	return index >= b.Min && index <= b.Max
}

// Index bounds and band thresholds. Every threshold is defined here and only here.
const (
	MinIndex = 0
	MaxIndex = 50

	thresholdEasy      = 42
	thresholdRealistic = 36
	thresholdHard      = 30
	thresholdElite     = 25
)

// tierBands is ordered easiest first; TierForIndex walks it top-down.
var tierBands = []TierBand{
	{Tier: TierEasy, Min: thresholdEasy, Max: MaxIndex},
	{Tier: TierRealistic, Min: thresholdRealistic, Max: thresholdEasy - 1},
	{Tier: TierHard, Min: thresholdHard, Max: thresholdRealistic - 1},
	{Tier: TierElite, Min: thresholdElite, Max: thresholdHard - 1},
	{Tier: TierNearImpossible, Min: MinIndex, Max: thresholdElite - 1},
}

// Tiers returns all tiers, easiest first.
func Tiers() []Tier {
	out := make([]Tier, len(tierBands))
	for i, b := range tierBands {
		out[i] = b.Tier
	}
	return out
}

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	if _, ok := Band(Tier(s)); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return Tier(s), nil
}

// #endregion tier

// #region dimensions

// Dimensions are the five weighted inputs, each an integer in [0,10].
type Dimensions struct {
	PositionAlignment   int `json:"position_alignment"`
	PainIntensity       int `json:"pain_intensity"`
	PerceivedNeed       int `json:"perceived_need"`
	FunnelContext       int `json:"funnel_context"`
	ExecutionResistance int `json:"execution_resistance"`
}

const (
	minDimension = 0
	maxDimension = 10
)

// Clamped returns a copy with every dimension forced into [0,10].
func (d Dimensions) Clamped() Dimensions {
	return Dimensions{
		PositionAlignment:   clampDim(d.PositionAlignment),
		PainIntensity:       clampDim(d.PainIntensity),
		PerceivedNeed:       clampDim(d.PerceivedNeed),
		FunnelContext:       clampDim(d.FunnelContext),
		ExecutionResistance: clampDim(d.ExecutionResistance),
	}
}

// #endregion dimensions

// #region profile

// Profile is the immutable difficulty snapshot for a session.
type Profile struct {
	Dimensions Dimensions     `json:"dimensions"`
	Authority  AuthorityLevel `json:"authority"`
	Index      int            `json:"index"`
	Tier       Tier           `json:"tier"`
}

// NewProfile clamps dims and derives index and tier.
func NewProfile(dims Dimensions, authority AuthorityLevel) Profile {
	clamped := dims.Clamped()
	index, tier := ComputeIndex(clamped, authority)
	return Profile{
		Dimensions: clamped,
		Authority:  authority,
		Index:      index,
		Tier:       tier,
	}
}

// #endregion profile

// #region execution-inputs

// PriceBand describes how expensive the offer is relative to the prospect.
type PriceBand string

const (
	PriceLow     PriceBand = "low"
	PriceMid     PriceBand = "mid"
	PriceHigh    PriceBand = "high"
	PricePremium PriceBand = "premium"
)

// EffortLevel describes how much work the prospect must put in to adopt the offer.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// #endregion execution-inputs

// #region rng

// Source is the random source used by sampling. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// #endregion rng
