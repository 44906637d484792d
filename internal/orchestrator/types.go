package orchestrator

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/eval"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/update"
)

// ErrTurnAbandoned is returned when the caller cancels a turn before it
// completes. Nothing from an abandoned turn may be committed.
var ErrTurnAbandoned = errors.New("turn abandoned")

// DefaultFallbackLine is spoken when generation fails.
const DefaultFallbackLine = "Sorry, you cut out for a second there. Could you say that again?"

// #region config

// Config holds orchestrator tuning.
type Config struct {
	GenerationTimeout  time.Duration `yaml:"generation_timeout"`
	RecentTurns        int           `yaml:"recent_turns"`        // transcript window sent to the generator
	MaxWords           int           `yaml:"max_words"`           // counterpart reply length cap in the instructions
	MaxRetries         int           `yaml:"max_retries"`         // retries after a rejected reply, within the timeout
	ElevatedResistance float64       `yaml:"elevated_resistance"` // ambiguous replies count as objections when the prior resistance is at or above this
	FallbackLine       string        `yaml:"fallback_line"`
}

// DefaultConfig returns the stock orchestrator settings.
func DefaultConfig() Config {
	return Config{
		GenerationTimeout:  20 * time.Second,
		RecentTurns:        12,
		MaxWords:           60,
		MaxRetries:         1,
		ElevatedResistance: 6,
		FallbackLine:       DefaultFallbackLine,
	}
}

// #endregion config

// #region scenario

// Scenario is the caller-owned narrative for a session.
type Scenario struct {
	ProspectName string `json:"prospect_name"`
	ProspectRole string `json:"prospect_role"`
	Company      string `json:"company"`
	Industry     string `json:"industry"`
	Situation    string `json:"situation"`
	OfferName    string `json:"offer_name"`
	OfferPrice   string `json:"offer_price"`
	OfferSummary string `json:"offer_summary"`
}

// #endregion scenario

// #region failure-types

// FailureType names why a generation attempt was rejected.
type FailureType string

const (
	FailureNone           FailureType = "none"
	FailureEmpty          FailureType = "empty"
	FailureCharacterBreak FailureType = "character_break"
	FailureRepetition     FailureType = "repetition"
	FailureTimeout        FailureType = "timeout"
	FailureTransport      FailureType = "transport"
	FailureCanceled       FailureType = "canceled"
)

// #endregion failure-types

// #region attempt

// ReplyEvaluation is the string-level check of one generated reply.
type ReplyEvaluation struct {
	FailureType FailureType
	Retryable   bool
	WordCount   int
}

// Attempt records one call to the generator.
type Attempt struct {
	Reply      string
	Evaluation ReplyEvaluation
	Err        error
	Duration   time.Duration
}

// #endregion attempt

// #region turn-io

// TurnInput is everything ProcessTurn needs for one operator turn. History
// is the committed transcript, oldest first.
type TurnInput struct {
	SessionID string
	Profile   difficulty.Profile
	Funnel    funnel.Context
	Scenario  Scenario
	State     state.BehaviorState
	History   []transcript.Turn
	Utterance string
	Directive *Directive
	Rng       gate.Source // nil draws from a fresh time-seeded source
}

// TurnOutcome is the full result of a turn, ready for an atomic commit.
// On a degraded turn NewState equals PreviousState.
type TurnOutcome struct {
	Operator    transcript.Turn
	Counterpart transcript.Turn

	PreviousState state.BehaviorState
	NewState      state.BehaviorState
	StateChanged  bool

	Signals    update.ActionSignals
	Transition update.Result
	Eval       eval.EvalResult
	Gate       gate.GateDecision
	Scripted   bool

	Candidate      objection.Category // weakest pillar, used when an ambiguous reply needs a category
	Classification objection.Result

	Degraded      bool
	FailureReason FailureType
	Attempts      int

	NextDirective *Directive
	Instructions  string
	Record        logging.TurnRecord
}

// #endregion turn-io
