package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// ErrNoTurns is returned when a session has nothing to replay.
var ErrNoTurns = errors.New("session has no recorded turns")

// #region recorded-session

// Recorded is a session extracted from the store, ready for replay.
type Recorded struct {
	SessionID    string
	Start        state.BehaviorState
	Interactions []Interaction
	Records      []logging.TurnRecord // one per interaction, decoded from provenance
	Decisions    []string             // recorded decision per interaction
}

// FromStore rebuilds the interactions of a session from its transcript and
// provenance log. The start state is the session's latest initial version.
func FromStore(ctx context.Context, store *state.Store, sessionID string) (*Recorded, error) {
	versions, err := store.ListVersions(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	rec := &Recorded{SessionID: sessionID}
	found := false
	for _, v := range versions {
		if v.TurnIndex == -1 {
			rec.Start = v.State
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("session %s: initial version: %w", sessionID, state.ErrNotFound)
	}

	turns, err := store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]transcript.Turn, len(turns))
	for _, t := range turns {
		byIndex[t.Index] = t
	}

	rows, err := store.ListProvenance(ctx, sessionID, "turn")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNoTurns)
	}

	for _, row := range rows {
		op, ok := byIndex[row.TurnIndex]
		if !ok {
			return nil, fmt.Errorf("session %s: provenance references missing turn %d", sessionID, row.TurnIndex)
		}
		cp := byIndex[row.TurnIndex+1]

		var tr logging.TurnRecord
		if row.SignalsJSON != "" {
			if err := json.Unmarshal([]byte(row.SignalsJSON), &tr); err != nil {
				return nil, fmt.Errorf("decode turn record %d: %w", row.TurnIndex, err)
			}
		}

		rec.Interactions = append(rec.Interactions, Interaction{
			TurnID:      fmt.Sprintf("turn-%d", row.TurnIndex),
			Operator:    op.Text,
			Counterpart: cp.Text,
			Degraded:    cp.Degraded,
		})
		rec.Records = append(rec.Records, tr)
		rec.Decisions = append(rec.Decisions, row.Decision)
	}
	return rec, nil
}

// Draws returns a gate source that replays the recorded gate draws in order.
// Once the record is exhausted it returns 1, which never surfaces.
func (r *Recorded) Draws() gate.Source {
	draws := make([]float64, len(r.Records))
	for i, tr := range r.Records {
		draws[i] = tr.Gate.Draw
	}
	return &fixedDraws{draws: draws}
}

type fixedDraws struct {
	draws []float64
	next  int
}

func (f *fixedDraws) Float64() float64 {
	if f.next >= len(f.draws) {
		return 1
	}
	d := f.draws[f.next]
	f.next++
	return d
}

// #endregion recorded-session

// #region compare

// Divergence is one turn where the replayed action differs from the record.
type Divergence struct {
	TurnID   string
	Recorded string
	Replayed string
}

// Compare lists the turns whose replayed action differs from expected.
// Only the first min(len) turns are compared.
func Compare(results []ReplayResult, expected []string) []Divergence {
	n := min(len(results), len(expected))
	var out []Divergence
	for i := 0; i < n; i++ {
		if results[i].Action != expected[i] {
			out = append(out, Divergence{TurnID: results[i].TurnID, Recorded: expected[i], Replayed: results[i].Action})
		}
	}
	return out
}

// #endregion compare
