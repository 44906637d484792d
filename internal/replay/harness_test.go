package replay

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/session"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

const discoveryLine = "In my experience, companies like yours lose months here. Walk me through how you handle it today."

// guardedState is a mid-resistance, low-trust starting point.
func guardedState() state.BehaviorState {
	return state.BehaviorState{
		Resistance: 8, Trust: 2, Engagement: 5, ValuePerception: 4,
		Openness: state.OpennessCautious, AnswerDepth: state.DepthShallow, ResponsePace: state.PaceMeasured,
	}
}

type constDraw float64

func (c constDraw) Float64() float64 { return float64(c) }

func TestReplay_CommitPath(t *testing.T) {
	results := Replay(guardedState(), []Interaction{{TurnID: "t1", Operator: discoveryLine, Counterpart: "Go on."}}, DefaultReplayConfig(), constDraw(0.99))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Action != "commit" || !r.Eval.Passed {
		t.Fatalf("expected commit, got %s (%s)", r.Action, r.Reason)
	}
	if r.State.Trust <= guardedState().Trust {
		t.Errorf("trust did not rise: %.2f", r.State.Trust)
	}
	if r.Gate.Surface {
		t.Error("draw 0.99 should not surface")
	}
	if len(r.Signals) < 2 {
		t.Errorf("expected authority and deep question signals, got %v", r.Signals)
	}
}

func TestReplay_EvalRejectKeepsState(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.Eval.MaxFieldDelta = 0.1

	results := Replay(guardedState(), []Interaction{{TurnID: "t1", Operator: discoveryLine}}, cfg, constDraw(0.99))
	r := results[0]
	if r.Action != "reject" {
		t.Fatalf("expected reject, got %s", r.Action)
	}
	if r.State != guardedState() {
		t.Fatalf("rejected turn changed state: %+v", r.State)
	}
	if r.Transition.NewState == guardedState() {
		t.Fatal("transition proposal should still be recorded")
	}
}

func TestReplay_DegradedConsumesDraw(t *testing.T) {
	interactions := []Interaction{
		{TurnID: "t1", Operator: discoveryLine, Degraded: true},
		{TurnID: "t2", Operator: "Okay."},
	}
	a := Replay(guardedState(), interactions, DefaultReplayConfig(), rand.New(rand.NewPCG(3, 0)))
	b := Replay(guardedState(), interactions, DefaultReplayConfig(), rand.New(rand.NewPCG(3, 0)))

	if a[0].Action != "degraded" || a[0].State != guardedState() {
		t.Fatalf("degraded turn: %+v", a[0])
	}
	if a[1].Action != "no_op" {
		t.Fatalf("expected no_op, got %s", a[1].Action)
	}
	for i := range a {
		if a[i].Gate.Draw != b[i].Gate.Draw {
			t.Fatalf("turn %d: same seed produced different draws", i)
		}
	}
	if a[0].Gate.Draw == a[1].Gate.Draw {
		t.Fatal("degraded turn should still consume a draw")
	}
}

func TestReplay_GateRespectsMinTurns(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.Gate.MinTurns = 2
	interactions := []Interaction{{TurnID: "t1", Operator: "Okay."}, {TurnID: "t2", Operator: "Okay."}}

	results := Replay(guardedState(), interactions, cfg, constDraw(0))
	if results[0].Gate.Surface || results[0].Gate.Probability != 0 {
		t.Fatalf("turn 1 surfaced before MinTurns: %+v", results[0].Gate)
	}
	if !results[1].Gate.Surface {
		t.Fatalf("turn 2 with draw 0 should surface: %+v", results[1].Gate)
	}
}

func TestSummarize(t *testing.T) {
	start := guardedState()
	if s := Summarize(start, nil); s.TotalTurns != 0 || s.FinalState != start {
		t.Fatalf("empty summary: %+v", s)
	}

	results := []ReplayResult{
		{Action: "commit", Gate: gateSurfaced(true)},
		{Action: "no_op"},
		{Action: "reject"},
		{Action: "degraded", Gate: gateSurfaced(true)},
		{Action: "commit", State: state.BehaviorState{Trust: 9}},
	}
	s := Summarize(start, results)
	if s.TotalTurns != 5 || s.Commits != 2 || s.NoOps != 1 || s.Rejects != 1 || s.Degraded != 1 || s.Surfaced != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.FinalState.Trust != 9 || s.StartState != start {
		t.Fatalf("unexpected states: %+v", s)
	}
}

func TestCompare(t *testing.T) {
	results := []ReplayResult{{TurnID: "a", Action: "commit"}, {TurnID: "b", Action: "no_op"}, {TurnID: "c", Action: "commit"}}
	div := Compare(results, []string{"commit", "commit"})
	if len(div) != 1 || div[0].TurnID != "b" || div[0].Recorded != "commit" || div[0].Replayed != "no_op" {
		t.Fatalf("unexpected divergences: %+v", div)
	}
}

// TestFromStore_ReplaysRecordedSession drives a real session through the
// service, then replays it from SQLite with the recorded gate draws.
func TestFromStore_ReplaysRecordedSession(t *testing.T) {
	ctx := context.Background()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "roleplay.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	calls := 0
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("connection reset")
		}
		return "Alright, keep going.", nil
	})
	logger := logging.NewLogger("error", "text", io.Discard)
	orch := orchestrator.NewOrchestrator(orchestrator.Config{}, orchestrator.Deps{Generator: gen, Logger: logger})
	svc, err := session.NewService(store, orch, session.Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	sess, err := svc.Create(ctx, session.CreateRequest{Authority: "advisee", FunnelCategory: "cold_outbound", Tier: "hard"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, text := range []string{discoveryLine, discoveryLine, "Okay."} {
		if _, err := svc.ProcessTurn(ctx, sess.ID, text); err != nil {
			t.Fatalf("ProcessTurn: %v", err)
		}
	}

	rec, err := FromStore(ctx, store, sess.ID)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if rec.Start != sess.State || len(rec.Interactions) != 3 {
		t.Fatalf("unexpected recording: start %+v, %d interactions", rec.Start, len(rec.Interactions))
	}
	if !rec.Interactions[1].Degraded {
		t.Fatal("second turn should be recorded as degraded")
	}
	want := []string{"commit", "degraded", "no_op"}
	for i, d := range rec.Decisions {
		if d != want[i] {
			t.Fatalf("decision %d = %s, want %s", i, d, want[i])
		}
	}

	results := Replay(rec.Start, rec.Interactions, DefaultReplayConfig(), rec.Draws())
	if div := Compare(results, rec.Decisions); len(div) != 0 {
		t.Fatalf("replay diverged: %+v", div)
	}
	for i, r := range results {
		if r.Gate.Surface != rec.Records[i].Gate.Surface {
			t.Errorf("turn %d: replayed surface %v, recorded %v", i, r.Gate.Surface, rec.Records[i].Gate.Surface)
		}
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final := Summarize(rec.Start, results).FinalState; final != got.State {
		t.Fatalf("replayed final state %+v, live %+v", final, got.State)
	}
}

func TestFromStore_NoTurns(t *testing.T) {
	ctx := context.Background()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "roleplay.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	logger := logging.NewLogger("error", "text", io.Discard)
	svc, err := session.NewService(store, orchestrator.NewOrchestrator(orchestrator.Config{}, orchestrator.Deps{Logger: logger}), session.Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	sess, err := svc.Create(ctx, session.CreateRequest{Authority: "peer", FunnelCategory: "referral"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := FromStore(ctx, store, sess.ID); !errors.Is(err, ErrNoTurns) {
		t.Fatalf("expected ErrNoTurns, got %v", err)
	}
}

func gateSurfaced(on bool) gate.GateDecision { return gate.GateDecision{Surface: on} }
