package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
)

// ErrNotFound is returned when a session or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrInactive is returned when writing turns to a session that has ended.
var ErrInactive = errors.New("session not active")

// #region bounds
const (
	MinValue = 0.0
	MaxValue = 10.0
)

// #endregion bounds

// #region steps
// step is an ordered categorical field that moves one notch at a time.
type step interface{ ~int }

func advance[T step](v, top T) T {
	if v < top {
		return v + 1
	}
	return v
}

func retreat[T step](v T) T {
	if v > 0 {
		return v - 1
	}
	return v
}

// Openness: closed → cautious → open.
type Openness int

const (
	OpennessClosed Openness = iota
	OpennessCautious
	OpennessOpen
)

var opennessNames = []string{"closed", "cautious", "open"}

func (o Openness) Advance() Openness { return advance(o, OpennessOpen) }
func (o Openness) Retreat() Openness { return retreat(o) }
func (o Openness) Valid() bool { return o >= OpennessClosed && o <= OpennessOpen }
func (o Openness) String() string { return stepName(opennessNames, int(o)) }

func (o Openness) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o *Openness) UnmarshalText(b []byte) error {
	v, err := parseStep(opennessNames, string(b))
	*o = Openness(v)
	return err
}

// AnswerDepth: shallow → medium → deep.
type AnswerDepth int

const (
	DepthShallow AnswerDepth = iota
	DepthMedium
	DepthDeep
)

var depthNames = []string{"shallow", "medium", "deep"}

func (d AnswerDepth) Advance() AnswerDepth { return advance(d, DepthDeep) }
func (d AnswerDepth) Retreat() AnswerDepth { return retreat(d) }
func (d AnswerDepth) Valid() bool { return d >= DepthShallow && d <= DepthDeep }
func (d AnswerDepth) String() string { return stepName(depthNames, int(d)) }

func (d AnswerDepth) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (d *AnswerDepth) UnmarshalText(b []byte) error {
	v, err := parseStep(depthNames, string(b))
	*d = AnswerDepth(v)
	return err
}

// Pace is how quickly the counterpart responds: slow → measured → quick.
type Pace int

const (
	PaceSlow Pace = iota
	PaceMeasured
	PaceQuick
)

var paceNames = []string{"slow", "measured", "quick"}

func (p Pace) Advance() Pace { return advance(p, PaceQuick) }
func (p Pace) Retreat() Pace { return retreat(p) }
func (p Pace) Valid() bool { return p >= PaceSlow && p <= PaceQuick }
func (p Pace) String() string { return stepName(paceNames, int(p)) }

func (p Pace) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p *Pace) UnmarshalText(b []byte) error {
	v, err := parseStep(paceNames, string(b))
	*p = Pace(v)
	return err
}

func stepName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("invalid(%d)", v)
	}
	return names[v]
}

func parseStep(names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", s)
}

// #endregion steps

// #region behavior-state
// BehaviorState is the per-session disposition of the simulated counterpart.
// Numeric fields live in [0,10]. Only update.Transition produces new values.
type BehaviorState struct {
	Resistance      float64     `json:"resistance"`
	Trust           float64     `json:"trust"`
	Engagement      float64     `json:"engagement"`
	ValuePerception float64     `json:"value_perception"`
	Openness        Openness    `json:"openness"`
	AnswerDepth     AnswerDepth `json:"answer_depth"`
	ResponsePace    Pace        `json:"response_pace"`
}

// Clamped forces every numeric field into [MinValue, MaxValue].
func (s BehaviorState) Clamped() BehaviorState {
	s.Resistance = Clamp(s.Resistance)
	s.Trust = Clamp(s.Trust)
	s.Engagement = Clamp(s.Engagement)
	s.ValuePerception = Clamp(s.ValuePerception)
	return s
}

// Clamp restricts v to [MinValue, MaxValue].
func Clamp(v float64) float64 {
	if v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}

// #endregion behavior-state

// #region derived
// Frequency is how often the counterpart objects.
type Frequency string

const (
	FrequencyLow    Frequency = "low"
	FrequencyMedium Frequency = "medium"
	FrequencyHigh   Frequency = "high"
)

// Intensity is how hard an objection lands.
type Intensity string

const (
	IntensitySoft Intensity = "soft"
	IntensityFirm Intensity = "firm"
	IntensityHard Intensity = "hard"
)

// Level is a generic low/medium/high label.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Derived holds categorical labels recomputed from numeric fields on every read.
type Derived struct {
	ObjectionFrequency Frequency `json:"objection_frequency"`
	ObjectionIntensity Intensity `json:"objection_intensity"`
	Challengeability   Level     `json:"challengeability"`
}

// #endregion derived

// #region records
// StateRecord is one committed version of a session's behavior state.
type StateRecord struct {
	VersionID   string
	ParentID    string
	SessionID   string
	TurnIndex   int // -1 for the initial version
	State       BehaviorState
	CreatedAt   time.Time
	MetricsJSON string
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// SessionRecord is the persisted session row.
type SessionRecord struct {
	ID            string
	Status        SessionStatus
	Mode          string
	Profile       difficulty.Profile
	Funnel        funnel.Context
	ConfigJSON    string // caller-owned prospect and offer narrative
	DirectiveJSON string
	ActiveVersion string
	CreatedAt     time.Time
	EndedAt       time.Time
}

// #endregion records
