package difficulty

import (
	"fmt"
	"math"
)

// #region compute-index

// ComputeIndex sums the five dimensions into a difficulty index and bands it.
// Dimensions are clamped to [0,10]; PerceivedNeed is discounted by the authority
// level (floored at 0). The result is clamped to [MinIndex, MaxIndex].
func ComputeIndex(dims Dimensions, authority AuthorityLevel) (int, Tier) {
	d := dims.Clamped()

	need := d.PerceivedNeed - authorityDiscount[authority]
	if need < 0 {
		need = 0
	}

	index := d.PositionAlignment + d.PainIntensity + need + d.FunnelContext + d.ExecutionResistance
	if index < MinIndex {
		index = MinIndex
	}
	if index > MaxIndex {
		index = MaxIndex
	}
	return index, TierForIndex(index)
}

// TierForIndex maps an index to its band. Out-of-range input is clamped first.
func TierForIndex(index int) Tier {
	if index > MaxIndex {
		index = MaxIndex
	}
	if index < MinIndex {
		index = MinIndex
	}
	for _, b := range tierBands {
		if index >= b.Min {
			return b.Tier
		}
	}
	return TierNearImpossible
}

// Band returns the index range for a tier.
func Band(tier Tier) (TierBand, bool) {
	for _, b := range tierBands {
		if b.Tier == tier {
			return b, true
		}
	}
	return TierBand{}, false
}

// #endregion compute-index

// #region sample

// MaxSampleAttempts bounds uniform rejection sampling before the analytic fallback.
const MaxSampleAttempts = 200

// maxNudges bounds the fallback correction loop. Any index in [0,50] is reachable
// from any starting point in fewer steps than this.
const maxNudges = 64

// SampleWithinTier returns dimensions whose recomputed index falls inside the
// tier's band. It always terminates; the only error is an unknown tier.
func SampleWithinTier(tier Tier, authority AuthorityLevel, rng Source) (Dimensions, error) {
	band, ok := Band(tier)
	if !ok {
		return Dimensions{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	for attempt := 0; attempt < MaxSampleAttempts; attempt++ {
		d := Dimensions{
			PositionAlignment:   rng.IntN(maxDimension + 1),
			PainIntensity:       rng.IntN(maxDimension + 1),
			PerceivedNeed:       rng.IntN(maxDimension + 1),
			FunnelContext:       rng.IntN(maxDimension + 1),
			ExecutionResistance: rng.IntN(maxDimension + 1),
		}
		if idx, _ := ComputeIndex(d, authority); band.Contains(idx) {
			return d, nil
		}
	}

	return solveWithinBand(band, authority, rng), nil
}

// solveWithinBand fixes four random dimensions, solves ExecutionResistance for the
// band midpoint, then walks single dimensions one point at a time until the
// index lands in the band.
func solveWithinBand(band TierBand, authority AuthorityLevel, rng Source) Dimensions {
	d := Dimensions{
		PositionAlignment: rng.IntN(maxDimension + 1),
		PainIntensity:     rng.IntN(maxDimension + 1),
		PerceivedNeed:     rng.IntN(maxDimension + 1),
		FunnelContext:     rng.IntN(maxDimension + 1),
	}
	partial, _ := ComputeIndex(d, authority)
	target := (band.Min + band.Max) / 2
	d.ExecutionResistance = clampDim(target - partial)

	for i := 0; i < maxNudges; i++ {
		idx, _ := ComputeIndex(d, authority)
		if band.Contains(idx) {
			return d
		}
		fields := []*int{
			&d.ExecutionResistance, &d.PositionAlignment, &d.PainIntensity,
			&d.FunnelContext, &d.PerceivedNeed,
		}
		if idx < band.Min {
			for _, f := range fields {
				if *f < maxDimension {
					*f++
					break
				}
			}
		} else {
			for _, f := range fields {
				if *f > minDimension {
					*f--
					break
				}
			}
		}
	}
	return d
}

// #endregion sample

// #region execution-resistance

const executionBaseline = 7.0

var priceAdjustment = map[PriceBand]float64{
	PriceLow:     0,
	PriceMid:     -0.5,
	PriceHigh:    -1,
	PricePremium: -2,
}

var effortAdjustment = map[EffortLevel]float64{
	EffortLow:    0,
	EffortMedium: -0.75,
	EffortHigh:   -1.5,
}

var authorityAdjustment = map[AuthorityLevel]float64{
	AuthorityAdvisee: -0.5,
	AuthorityPeer:    0.5,
	AuthorityAdvisor: 1,
}

const (
	highPainThreshold = 7
	lowPainThreshold  = 3
	motivationBoost   = 1.0
)

// ComputeExecutionResistance estimates the prospect's practical ability to buy
// when no explicit value is supplied. Unknown enum values contribute nothing.
func ComputeExecutionResistance(price PriceBand, effort EffortLevel, authority AuthorityLevel, pain int) int {
	score := executionBaseline
	score += priceAdjustment[price]
	score += effortAdjustment[effort]
	score += authorityAdjustment[authority]

	switch pain = clampDim(pain); {
	case pain >= highPainThreshold:
		score += motivationBoost
	case pain <= lowPainThreshold:
		score -= motivationBoost
	}

	rounded := int(math.Round(score))
	if rounded < 1 {
		return 1
	}
	if rounded > maxDimension {
		return maxDimension
	}
	return rounded
}

// #endregion execution-resistance

// #region helpers

func clampDim(v int) int {
	if v < minDimension {
		return minDimension
	}
	if v > maxDimension {
		return maxDimension
	}
	return v
}

// #endregion helpers
