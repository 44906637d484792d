package api

import (
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/stages"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// #region requests

type turnRequest struct {
	Text string `json:"text"`
}

type directiveRequest struct {
	Directive *orchestrator.Directive `json:"directive"` // null clears the active directive
}

type regenerateRequest struct {
	Tier string `json:"tier"`
}

// #endregion requests

// #region responses

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// turnResponse is the caller-facing slice of a turn outcome.
type turnResponse struct {
	Operator      transcript.Turn     `json:"operator"`
	Counterpart   transcript.Turn     `json:"counterpart"`
	State         state.BehaviorState `json:"state"`
	Derived       state.Derived       `json:"derived"`
	StateChanged  bool                `json:"state_changed"`
	Action        string              `json:"action"`
	Resistance    objection.Category  `json:"resistance"`
	Surfaced      bool                `json:"surfaced"`
	Scripted      bool                `json:"scripted"`
	Degraded      bool                `json:"degraded"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Attempts      int                 `json:"attempts"`
}

func newTurnResponse(out orchestrator.TurnOutcome) turnResponse {
	resp := turnResponse{
		Operator:     out.Operator,
		Counterpart:  out.Counterpart,
		State:        out.NewState,
		Derived:      out.NewState.Derived(),
		StateChanged: out.StateChanged,
		Action:       out.Transition.Decision.Action,
		Resistance:   out.Counterpart.Resistance,
		Surfaced:     out.Gate.Surface,
		Scripted:     out.Scripted,
		Degraded:     out.Degraded,
		Attempts:     out.Attempts,
	}
	if out.Degraded {
		resp.Action = "degraded"
		resp.FailureReason = string(out.FailureReason)
	}
	return resp
}

type stagesResponse struct {
	stages.Report
	Missing    []string `json:"missing"`
	Incomplete bool     `json:"incomplete"`
}

type versionResponse struct {
	VersionID string              `json:"version_id"`
	ParentID  string              `json:"parent_id,omitempty"`
	TurnIndex int                 `json:"turn_index"`
	State     state.BehaviorState `json:"state"`
	CreatedAt string              `json:"created_at"`
}

// #endregion responses
