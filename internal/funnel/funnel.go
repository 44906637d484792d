package funnel

import (
	"fmt"
	"strings"
)

// #region classify

// Classify returns the context for a known category using its nominal warmth.
func Classify(category Category) (Context, error) {
	r, ok := warmthRanges[category]
	if !ok {
		return Context{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return build(category, r.nominal), nil
}

// ClassifyWithWarmth is Classify with a caller-supplied warmth, clamped into the
// category's sub-range.
func ClassifyWithWarmth(category Category, warmth int) (Context, error) {
	r, ok := warmthRanges[category]
	if !ok {
		return Context{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if warmth < r.min {
		warmth = r.min
	}
	if warmth > r.max {
		warmth = r.max
	}
	return build(category, warmth), nil
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := warmthRanges[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func build(category Category, warmth int) Context {
	ctx := Context{Category: category, Warmth: warmth}
	ctx.Impact = BehavioralImpact(ctx)
	return ctx
}

// #endregion classify

// #region infer

var referralCues = []string{
	"referred", "referral", "recommended you", "recommended me", "told me about you",
	"introduced us", "introduction from", "a friend of", "my colleague suggested",
	"sent me your way", "vouched",
}

var contentCues = []string{
	"podcast", "webinar", "newsletter", "your book", "read your", "watched your",
	"your video", "your course", "youtube", "case study", "your article", "blog",
	"been following",
}

var warmCues = []string{
	"filled out", "signed up", "booked a call", "reached out", "inbound", "inquiry",
	"enquiry", "contact form", "downloaded", "requested a demo", "asked for",
	"replied to",
}

var coldCues = []string{
	"cold call", "cold email", "cold outreach", "outbound", "never heard of",
	"don't know you", "do not know you", "who is this", "how did you get my number",
	"unsolicited", "prospecting list",
}

// inferOrder is the tie-break: stronger warmth evidence is checked first.
var inferOrder = []struct {
	category Category
	cues     []string
}{
	{CategoryReferral, referralCues},
	{CategoryContentEducated, contentCues},
	{CategoryWarmInbound, warmCues},
	{CategoryColdOutbound, coldCues},
}

// InferFromSignals picks a category from free-text lead notes. First match in
// priority order wins; no match defaults to warm inbound.
func InferFromSignals(text string) Context {
	lower := strings.ToLower(text)
	for _, entry := range inferOrder {
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				return build(entry.category, warmthRanges[entry.category].nominal)
			}
		}
	}
	return build(CategoryWarmInbound, warmthRanges[CategoryWarmInbound].nominal)
}

// #endregion infer

// #region impact

// BehavioralImpact maps the warmth bucket to starting defaults.
func BehavioralImpact(ctx Context) Impact {
	w := ctx.Warmth
	if w < 0 {
		w = 0
	}
	for _, b := range impactBuckets {
		if w <= b.maxWarmth {
			return b.impact
		}
	}
	return impactBuckets[len(impactBuckets)-1].impact
}

// #endregion impact
