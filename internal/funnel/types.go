package funnel

import (
	"errors"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
)

// ErrUnknownCategory is returned for a missing or unrecognised funnel category.
var ErrUnknownCategory = errors.New("unknown funnel category")

// #region category

// Category is how the prospect entered the funnel.
type Category string

const (
	CategoryColdOutbound    Category = "cold_outbound"
	CategoryWarmInbound     Category = "warm_inbound"
	CategoryContentEducated Category = "content_educated"
	CategoryReferral        Category = "referral"
)

// #endregion category

// #region pace

// Pace is how quickly a prospect discloses their real situation.
type Pace string

const (
	PaceGuarded    Pace = "guarded"
	PaceGradual    Pace = "gradual"
	PaceOpen       Pace = "open"
	PaceForthright Pace = "forthright"
)

// #endregion pace

// #region context

// Impact is the bundle of behavioral defaults a funnel context implies.
// StartingTrust and EarlyResistance are additive shifts applied at session start.
type Impact struct {
	StartingTrust        float64            `json:"starting_trust"`
	EarlyResistance      float64            `json:"early_resistance"`
	DisclosurePace       Pace               `json:"disclosure_pace"`
	LikelyFirstObjection objection.Category `json:"likely_first_objection"`
}

// Context is the immutable funnel snapshot for a session.
type Context struct {
	Category Category `json:"category"`
	Warmth   int      `json:"warmth"`
	Impact   Impact   `json:"impact"`
}

// #endregion context

// #region tables

// warmthRange is the inclusive warmth sub-range per category, plus the value
// Classify reports when no explicit warmth is supplied.
type warmthRange struct {
	min, max, nominal int
}

var warmthRanges = map[Category]warmthRange{
	CategoryColdOutbound:    {min: 0, max: 3, nominal: 2},
	CategoryWarmInbound:     {min: 4, max: 6, nominal: 5},
	CategoryContentEducated: {min: 7, max: 8, nominal: 7},
	CategoryReferral:        {min: 9, max: 10, nominal: 9},
}

// impactBucket maps a warmth ceiling to its behavioral defaults. Ordered coldest first.
type impactBucket struct {
	maxWarmth int
	impact    Impact
}

var impactBuckets = []impactBucket{
	{maxWarmth: 3, impact: Impact{StartingTrust: -2, EarlyResistance: 2, DisclosurePace: PaceGuarded, LikelyFirstObjection: objection.CategoryTrust}},
	{maxWarmth: 6, impact: Impact{StartingTrust: 0, EarlyResistance: 0, DisclosurePace: PaceGradual, LikelyFirstObjection: objection.CategoryValue}},
	{maxWarmth: 8, impact: Impact{StartingTrust: 1, EarlyResistance: -1, DisclosurePace: PaceOpen, LikelyFirstObjection: objection.CategoryFit}},
	{maxWarmth: 10, impact: Impact{StartingTrust: 2, EarlyResistance: -2, DisclosurePace: PaceForthright, LikelyFirstObjection: objection.CategoryLogistics}},
}

// #endregion tables
