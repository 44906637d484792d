package objection

// #region imports
import (
	"strings"
)

// #endregion

// #region category

// Category is the kind of pushback a counterpart raises.
type Category string

const (
	CategoryNone      Category = "none"
	CategoryValue     Category = "value"
	CategoryTrust     Category = "trust"
	CategoryFit       Category = "fit"
	CategoryLogistics Category = "logistics"
)

// Categories lists the four real categories in tie-break order.
var Categories = []Category{CategoryValue, CategoryTrust, CategoryFit, CategoryLogistics}

// Valid reports whether c is one of the four real categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryValue, CategoryTrust, CategoryFit, CategoryLogistics:
		return true
	}
	return false
}

// #endregion

// #region keyword-families

var valueKeywords = []string{
	"too expensive", "expensive", "can't afford", "cannot afford", "out of budget",
	"over budget", "no budget", "the price", "that price", "pricey", "cost too",
	"costs too", "not worth", "worth it", "cheaper", "return on", "money",
	"investment is", "a lot to spend",
}

var trustKeywords = []string{
	"not sure i believe", "skeptical", "sceptical", "sounds too good", "too good to be true",
	"heard that before", "proof", "guarantee", "how do i know", "track record",
	"scam", "burned before", "been burned", "references", "case studies", "prove it",
	"don't trust", "do not trust",
}

var fitKeywords = []string{
	"not for us", "not for me", "doesn't fit", "does not fit", "not a fit",
	"different situation", "our situation", "we're different", "we are different",
	"doesn't apply", "does not apply", "not relevant", "our industry", "too small",
	"too big for", "already have", "already using", "not what we need",
}

var logisticsKeywords = []string{
	"bad time", "not the right time", "next quarter", "next year", "busy",
	"talk to my", "check with my", "run it by", "my partner", "my boss",
	"my manager", "the board", "sign off", "sign-off", "approval", "schedule",
	"calendar", "timing", "contract", "paperwork", "procurement", "get back to you",
}

// families is iterated in tie-break order.
var families = []struct {
	category Category
	keywords []string
}{
	{CategoryValue, valueKeywords},
	{CategoryTrust, trustKeywords},
	{CategoryFit, fitKeywords},
	{CategoryLogistics, logisticsKeywords},
}

// #endregion

// #region classify

// Result is the output of classifying a counterpart utterance.
type Result struct {
	Category  Category
	Ambiguous bool // two or more families tied for the top hit count
	Hits      map[Category]int
}

// Classify counts keyword hits per family. The family with the most hits wins;
// a tie at the top is reported as ambiguous with CategoryNone. Heuristic only.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	hits := make(map[Category]int, len(families))

	best := CategoryNone
	bestCount := 0
	tied := false
	for _, f := range families {
		n := countHits(lower, f.keywords)
		if n == 0 {
			continue
		}
		hits[f.category] = n
		switch {
		case n > bestCount:
			best, bestCount, tied = f.category, n, false
		case n == bestCount:
			tied = true
		}
	}

	if tied {
		return Result{Category: CategoryNone, Ambiguous: true, Hits: hits}
	}
	return Result{Category: best, Hits: hits}
}

// Present reports whether any objection language appears at all.
func Present(text string) bool {
	r := Classify(text)
	return r.Category != CategoryNone || r.Ambiguous
}

// #endregion

// #region helpers

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// #endregion
