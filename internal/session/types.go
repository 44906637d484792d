package session

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/stages"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// #region errors
var (
	// ErrInvalidConfig is returned for malformed session configuration; the
	// only fatal error class at creation time.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrEnded is returned for writes against an ended session.
	ErrEnded = errors.New("session ended")
	// ErrAlreadyStarted is returned when regenerating a session that has turns.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrEmptyUtterance is returned when the operator sends blank text.
	ErrEmptyUtterance = errors.New("empty operator utterance")
)

// #endregion errors

// #region create-request

// CreateRequest configures a new session. Authority and a funnel category (or
// funnel signal text) are required; everything else has a default.
type CreateRequest struct {
	Mode      string `json:"mode"`
	Authority string `json:"authority"`

	FunnelCategory string `json:"funnel_category"`
	FunnelSignals  string `json:"funnel_signals"` // free text used when no category is given
	Warmth         *int   `json:"warmth,omitempty"`

	// Explicit dimensions win over Tier. Without either the realistic tier is sampled.
	Dimensions *difficulty.Dimensions `json:"dimensions,omitempty"`
	Tier       string                 `json:"tier,omitempty"`
	Execution  *ExecutionInputs       `json:"execution,omitempty"`

	Scenario orchestrator.Scenario `json:"scenario"`
	Seed     *uint64               `json:"seed,omitempty"`
}

// ExecutionInputs derive the execution resistance dimension from the offer.
// They need explicit dimensions with execution resistance left unset (zero).
type ExecutionInputs struct {
	Price  difficulty.PriceBand   `json:"price"`
	Effort difficulty.EffortLevel `json:"effort"`
}

const defaultMode = "practice"

// #endregion create-request

// #region session-view

// Session is the read model returned to callers.
type Session struct {
	ID         string                  `json:"id"`
	Status     state.SessionStatus     `json:"status"`
	Mode       string                  `json:"mode"`
	Profile    difficulty.Profile      `json:"profile"`
	Funnel     funnel.Context          `json:"funnel"`
	Scenario   orchestrator.Scenario   `json:"scenario"`
	State      state.BehaviorState     `json:"state"`
	Derived    state.Derived           `json:"derived"`
	VersionID  string                  `json:"version_id"`
	Directive  *orchestrator.Directive `json:"directive,omitempty"`
	Turns      []transcript.Turn       `json:"turns"`
	Stages     stages.Report           `json:"stages"`
	Incomplete bool                    `json:"incomplete"`
	CreatedAt  time.Time               `json:"created_at"`
	EndedAt    *time.Time              `json:"ended_at,omitempty"`
}

func (v Session) clone() Session {
	v.Turns = append([]transcript.Turn(nil), v.Turns...)
	if v.Directive != nil {
		d := *v.Directive
		v.Directive = &d
	}
	if v.EndedAt != nil {
		t := *v.EndedAt
		v.EndedAt = &t
	}
	return v
}

// storedConfig is the caller-owned part of a session persisted in config_json.
type storedConfig struct {
	Scenario orchestrator.Scenario `json:"scenario"`
	Seed     uint64                `json:"seed"`
}

// #endregion session-view
