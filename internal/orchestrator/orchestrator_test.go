package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

type fixedDraw float64

func (f fixedDraw) Float64() float64 { return float64(f) }

func guarded() state.BehaviorState {
	return state.BehaviorState{
		Resistance: 8, Trust: 2, Engagement: 5, ValuePerception: 4,
		Openness: state.OpennessCautious, AnswerDepth: state.DepthShallow, ResponsePace: state.PaceMeasured,
	}
}

func replies(lines ...string) (codec.Generator, *int32) {
	var calls int32
	return codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		return lines[min(int(n)-1, len(lines)-1)], nil
	}), &calls
}

func newTest(gen codec.Generator, cfg Config) *Orchestrator {
	return NewOrchestrator(cfg, Deps{Generator: gen})
}

func TestProcessTurnCommitsTransition(t *testing.T) {
	gen, _ := replies("[sighs] Honestly, that's too expensive for us right now.")
	o := newTest(gen, Config{})

	in := TurnInput{
		SessionID: "s1",
		State:     guarded(),
		Utterance: "In my experience, companies like yours lose months here. Walk me through how you handle it today.",
		Rng:       fixedDraw(0.99),
	}
	out, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if out.Degraded {
		t.Fatalf("unexpected degraded turn: %s", out.FailureReason)
	}
	if !out.Signals.DemonstratedAuthority || !out.Signals.AskedDeepQuestions {
		t.Fatalf("expected authority and deep questions, got %v", out.Signals.Names())
	}
	if !out.StateChanged || out.NewState.Trust <= in.State.Trust {
		t.Fatalf("trust should rise: %.2f -> %.2f", in.State.Trust, out.NewState.Trust)
	}
	if out.NewState.Openness != state.OpennessOpen {
		t.Errorf("openness = %s, want open", out.NewState.Openness)
	}
	if out.Operator.Index != 0 || out.Counterpart.Index != 1 {
		t.Errorf("indexes = %d,%d", out.Operator.Index, out.Counterpart.Index)
	}
	if out.Counterpart.Text != "Honestly, that's too expensive for us right now." {
		t.Errorf("reply not sanitized: %q", out.Counterpart.Text)
	}
	if out.Counterpart.Resistance != objection.CategoryValue {
		t.Errorf("resistance = %s, want value", out.Counterpart.Resistance)
	}
	if out.Gate.Surface {
		t.Error("draw 0.99 should not surface resistance")
	}
	if out.Record.SessionID != "s1" || out.Record.Provider != "func" || out.Record.Degraded {
		t.Errorf("unexpected record: %+v", out.Record)
	}
	if len(out.Record.Signals) != 2 {
		t.Errorf("record signals = %v", out.Record.Signals)
	}
}

func TestProcessTurnTimeoutIsDegraded(t *testing.T) {
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := newTest(gen, Config{GenerationTimeout: 20 * time.Millisecond, MaxRetries: 1})

	in := TurnInput{
		SessionID: "s1",
		State:     guarded(),
		Utterance: "In my experience this is fixable.",
		Rng:       fixedDraw(0.99),
	}
	out, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("timeout must not surface as an error: %v", err)
	}
	if !out.Degraded || out.FailureReason != FailureTimeout {
		t.Fatalf("degraded=%v reason=%s", out.Degraded, out.FailureReason)
	}
	if out.NewState != in.State || out.StateChanged {
		t.Fatal("state must be unchanged on a degraded turn")
	}
	if out.Counterpart.Text != DefaultFallbackLine || !out.Counterpart.Degraded {
		t.Fatalf("counterpart = %+v", out.Counterpart)
	}
	if out.Attempts != 1 {
		t.Errorf("timeouts are not retried, got %d attempts", out.Attempts)
	}
	if out.Record.FailureReason != string(FailureTimeout) {
		t.Errorf("record failure reason = %q", out.Record.FailureReason)
	}
}

func TestProcessTurnCanceledBeforeStart(t *testing.T) {
	gen, calls := replies("hello")
	o := newTest(gen, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.ProcessTurn(ctx, TurnInput{State: guarded(), Utterance: "Hi"})
	if !errors.Is(err, ErrTurnAbandoned) {
		t.Fatalf("err = %v, want ErrTurnAbandoned", err)
	}
	if *calls != 0 {
		t.Fatal("generator should not be called")
	}
}

func TestProcessTurnCanceledDuringGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := codec.GeneratorFunc(func(gctx context.Context, req codec.Request) (string, error) {
		cancel()
		<-gctx.Done()
		return "", gctx.Err()
	})
	o := newTest(gen, Config{})

	_, err := o.ProcessTurn(ctx, TurnInput{State: guarded(), Utterance: "Hi", Rng: fixedDraw(0.99)})
	if !errors.Is(err, ErrTurnAbandoned) {
		t.Fatalf("err = %v, want ErrTurnAbandoned", err)
	}
}

func TestProcessTurnRetriesCharacterBreak(t *testing.T) {
	var systems []string
	var n int
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		systems = append(systems, req.System)
		n++
		if n == 1 {
			return "As an AI language model, I can't pretend to be a prospect.", nil
		}
		return "Fine. Go on.", nil
	})
	o := newTest(gen, Config{MaxRetries: 1})

	out, err := o.ProcessTurn(context.Background(), TurnInput{State: guarded(), Utterance: "Hi", Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Degraded || out.Attempts != 2 || out.Counterpart.Text != "Fine. Go on." {
		t.Fatalf("degraded=%v attempts=%d text=%q", out.Degraded, out.Attempts, out.Counterpart.Text)
	}
	if strings.Contains(systems[0], "## Correction") || !strings.Contains(systems[1], "## Correction") {
		t.Error("retry should append a correction to the instructions")
	}
}

func TestProcessTurnFailureReasons(t *testing.T) {
	tests := []struct {
		name     string
		gen      codec.Generator
		want     FailureType
		attempts int
	}{
		{
			name: "empty",
			gen: codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
				return "  *nods*  ", nil
			}),
			want:     FailureEmpty,
			attempts: 2,
		},
		{
			name: "empty response error",
			gen: codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
				return "", codec.ErrEmptyResponse
			}),
			want:     FailureEmpty,
			attempts: 2,
		},
		{
			name: "transport",
			gen: codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
				return "", errors.New("connection refused")
			}),
			want:     FailureTransport,
			attempts: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTest(tt.gen, Config{MaxRetries: 1})
			in := TurnInput{State: guarded(), Utterance: "Hi", Rng: fixedDraw(0.99)}
			out, err := o.ProcessTurn(context.Background(), in)
			if err != nil {
				t.Fatal(err)
			}
			if !out.Degraded || out.FailureReason != tt.want || out.Attempts != tt.attempts {
				t.Fatalf("degraded=%v reason=%s attempts=%d", out.Degraded, out.FailureReason, out.Attempts)
			}
			if out.NewState != in.State {
				t.Fatal("state changed on failure")
			}
		})
	}
}

func TestProcessTurnAmbiguousReplyFallback(t *testing.T) {
	const reply = "I'm skeptical, and honestly it's pricey."
	if r := objection.Classify(reply); !r.Ambiguous {
		t.Fatalf("fixture reply should be ambiguous: %+v", r)
	}

	gen, _ := replies(reply)
	o := newTest(gen, Config{})

	high := guarded()
	out, err := o.ProcessTurn(context.Background(), TurnInput{State: high, Utterance: "Okay.", Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	want := gate.ClassifyCategory(out.NewState, gate.DefaultGateConfig())
	if !want.Valid() || out.Counterpart.Resistance != want {
		t.Fatalf("elevated resistance: got %s, want %s", out.Counterpart.Resistance, want)
	}

	low := guarded()
	low.Resistance = 3
	out, err = o.ProcessTurn(context.Background(), TurnInput{State: low, Utterance: "Okay.", Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Counterpart.Resistance != objection.CategoryNone {
		t.Fatalf("low resistance: got %s, want none", out.Counterpart.Resistance)
	}

	// Pressure lifts resistance past the threshold this turn; the prior value decides.
	rising := guarded()
	rising.Resistance = 5
	out, err = o.ProcessTurn(context.Background(), TurnInput{State: rising, Utterance: "You need to sign today.", Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	if out.NewState.Resistance < 6 {
		t.Fatalf("pressure should lift resistance to elevated, got %.2f", out.NewState.Resistance)
	}
	if out.Counterpart.Resistance != objection.CategoryNone {
		t.Fatalf("rising resistance: got %s, want none", out.Counterpart.Resistance)
	}
}

func TestProcessTurnAmbiguousReplyPrefersScriptedCategory(t *testing.T) {
	gen, _ := replies("I'm skeptical, and honestly it's pricey.")
	o := newTest(gen, Config{})
	d := &Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryFit, AtTurn: 1}

	out, err := o.ProcessTurn(context.Background(), TurnInput{State: guarded(), Utterance: "Okay.", Directive: d, Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Scripted {
		t.Fatalf("scripted objection should fire on turn 1: %+v", out.Gate)
	}
	if out.Candidate == objection.CategoryFit {
		t.Fatalf("weakest pillar should differ from the scripted category")
	}
	if out.Counterpart.Resistance != objection.CategoryFit {
		t.Fatalf("got %s, want scripted %s", out.Counterpart.Resistance, objection.CategoryFit)
	}
}

func TestProcessTurnScriptedObjection(t *testing.T) {
	gen, _ := replies("We'd need sign-off from the board first.")
	o := newTest(gen, Config{})
	d := &Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryLogistics, AtTurn: 2}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}

	// Turn 1: held closed even though the draw would surface.
	out, err := o.ProcessTurn(context.Background(), TurnInput{State: guarded(), Utterance: "Hi", Directive: d, Rng: fixedDraw(0)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Gate.Surface || out.Scripted {
		t.Fatalf("gate should be held before the scripted turn: %+v", out.Gate)
	}
	if out.NextDirective == nil {
		t.Fatal("directive should carry over until it fires")
	}

	// Turn 2: forced open with the scripted category.
	history := []transcript.Turn{out.Operator, out.Counterpart}
	out, err = o.ProcessTurn(context.Background(), TurnInput{
		State: out.NewState, History: history, Utterance: "So what do you think?", Directive: out.NextDirective, Rng: fixedDraw(0.99),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Gate.Surface || out.Gate.Category != objection.CategoryLogistics || !out.Scripted {
		t.Fatalf("scripted objection did not fire: %+v", out.Gate)
	}
	if out.NextDirective != nil {
		t.Error("scripted objection should be consumed once delivered")
	}
	if !strings.Contains(out.Instructions, "Scripted objection") {
		t.Error("instructions should carry the scripted directive")
	}
	if out.Operator.Index != 2 || out.Counterpart.Index != 3 {
		t.Errorf("indexes = %d,%d", out.Operator.Index, out.Counterpart.Index)
	}
}

func TestProcessTurnDegradedKeepsDirective(t *testing.T) {
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		return "", errors.New("down")
	})
	o := newTest(gen, Config{})
	d := &Directive{Kind: DirectiveSkillGap, Skill: "discovery", TurnsRemaining: 2}

	out, err := o.ProcessTurn(context.Background(), TurnInput{State: guarded(), Utterance: "Hi", Directive: d, Rng: fixedDraw(0.99)})
	if err != nil {
		t.Fatal(err)
	}
	if out.NextDirective != d {
		t.Fatal("a degraded turn should not consume directive lifetime")
	}
}

func TestWindowSkipsFallbackLines(t *testing.T) {
	var got []codec.Message
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (string, error) {
		got = req.Turns
		return "Sure.", nil
	})
	o := newTest(gen, Config{})
	history := []transcript.Turn{
		{Index: 0, Role: transcript.RoleOperator, Text: "Hi"},
		{Index: 1, Role: transcript.RoleCounterpart, Text: DefaultFallbackLine, Degraded: true},
	}
	if _, err := o.ProcessTurn(context.Background(), TurnInput{State: guarded(), History: history, Utterance: "Can you hear me?", Rng: fixedDraw(0.99)}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "Hi" || got[1].Text != "Can you hear me?" {
		t.Fatalf("window = %+v", got)
	}
}

func TestNewOrchestratorDefaults(t *testing.T) {
	o := NewOrchestrator(Config{}, Deps{})
	cfg := o.Config()
	if cfg.GenerationTimeout != 20*time.Second || cfg.RecentTurns != 12 || cfg.MaxWords != 60 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if o.Provider() != "echo" {
		t.Fatalf("provider = %s", o.Provider())
	}
}
