package stages

import (
	"strings"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// #region names
// Stage names one macro phase of a sales conversation.
type Stage string

const (
	StageOpening     Stage = "opening"
	StageExploration Stage = "exploration"
	StageProposal    Stage = "proposal"
	StageResistance  Stage = "resistance"
	StageCommitment  Stage = "commitment"
)

// All lists the stages in conversational order.
func All() []Stage {
	return []Stage{StageOpening, StageExploration, StageProposal, StageResistance, StageCommitment}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, v := range All() {
		if v == s {
			return true
		}
	}
	return false
}

// required stages must all be reached for a session to count as complete.
var required = []Stage{StageOpening, StageExploration, StageProposal}

// #endregion names

// #region phrases
var explorationPhrases = []string{
	"tell me about", "walk me through", "what's your", "what is your", "how do you currently",
	"what challenges", "what's the biggest", "what is the biggest", "why now",
	"help me understand", "what have you tried", "how are you handling", "what made you",
	"what would success look like",
}

var proposalPhrases = []string{
	"we offer", "our program", "our solution", "our product", "our service",
	"the investment is", "the price is", "it costs", "here's how it works",
	"here is how it works", "what we do is", "i'd recommend", "i would recommend",
	"my recommendation", "we can help", "the package", "what i'd suggest",
}

var resistancePhrases = []string{
	"not sure", "i don't think", "let me think about it", "need to think",
	"not convinced", "i'll pass", "not interested",
}

var commitmentPhrases = []string{
	"let's do it", "sign me up", "send the contract", "send me the contract",
	"send over the contract", "i'm in", "let's get started", "how do we get started",
	"book the", "schedule the next", "send the invoice", "it's a deal", "count me in",
	"where do i sign",
}

// #endregion phrases

// #region detect
// Report is the read-time stage summary of a transcript.
type Report struct {
	Opening     bool `json:"opening"`
	Exploration bool `json:"exploration"`
	Proposal    bool `json:"proposal"`
	Resistance  bool `json:"resistance"`
	Commitment  bool `json:"commitment"`
}

// Detect scans the transcript for each stage. Exploration and proposal are
// checked against the operator's lines, resistance against the counterpart's
// and commitment against the whole transcript. Opening needs two turns.
// Advisory only; keyword heuristics will misfire on some phrasings.
func Detect(turns []transcript.Turn) Report {
	if len(turns) == 0 {
		return Report{}
	}
	operator := transcript.Text(turns, transcript.RoleOperator)
	counterpart := transcript.Text(turns, transcript.RoleCounterpart)
	full := transcript.FullText(turns)

	return Report{
		Opening:     len(turns) >= 2,
		Exploration: containsAny(operator, explorationPhrases),
		Proposal:    containsAny(operator, proposalPhrases),
		Resistance:  containsAny(counterpart, resistancePhrases) || objection.Present(counterpart),
		Commitment:  containsAny(full, commitmentPhrases),
	}
}

// Reached reports whether a single stage was observed.
func (r Report) Reached(s Stage) bool {
	switch s {
	case StageOpening:
		return r.Opening
	case StageExploration:
		return r.Exploration
	case StageProposal:
		return r.Proposal
	case StageResistance:
		return r.Resistance
	case StageCommitment:
		return r.Commitment
	}
	return false
}

// Missing lists the required stages that were never reached.
func (r Report) Missing() []string {
	var out []string
	for _, s := range required {
		if !r.Reached(s) {
			out = append(out, string(s))
		}
	}
	return out
}

// Incomplete is true when opening, exploration or proposal is missing.
func (r Report) Incomplete() bool {
	return len(r.Missing()) > 0
}

// #endregion detect

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
