package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	SessionID   string
	VersionID   string
	TurnIndex   int
	TriggerType string // "turn" | "create" | "regenerate" | "end"
	SignalsJSON string
	Category    string
	Decision    string // transition action, or "degraded"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region turn-record
// TurnRecord captures every input and output of one turn decision.
// Serialized as JSON into provenance_log.signals_json for deterministic replay.
type TurnRecord struct {
	SessionID string `json:"session_id"`
	TurnIndex int    `json:"turn_index"`
	Operator  string `json:"operator"`

	// Names of the action signals that fired.
	Signals []string `json:"signals"`

	Transition TurnTransition `json:"transition"`
	Gate       TurnGate       `json:"gate"`

	Directive string `json:"directive,omitempty"`

	// Planned is what the gate asked for; Classified is what the reply contained.
	Planned    string `json:"planned"`
	Classified string `json:"classified"`
	Ambiguous  bool   `json:"ambiguous,omitempty"`

	Degraded      bool   `json:"degraded,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	Provider      string `json:"provider,omitempty"`
	LatencyMS     int64  `json:"latency_ms"`
}

// TurnTransition summarizes the state change a turn applied.
type TurnTransition struct {
	Action     string             `json:"action"`
	Reason     string             `json:"reason"`
	Deltas     map[string]float64 `json:"deltas,omitempty"`
	Ratchets   map[string]int     `json:"ratchets,omitempty"`
	Backlash   bool               `json:"backlash,omitempty"`
	EvalPassed bool               `json:"eval_passed"`
}

// TurnGate captures the resistance gate evaluation.
type TurnGate struct {
	Probability float64 `json:"probability"`
	Draw        float64 `json:"draw"`
	Surface     bool    `json:"surface"`
	Scripted    bool    `json:"scripted,omitempty"`
	Reason      string  `json:"reason"`
}

// #endregion turn-record
