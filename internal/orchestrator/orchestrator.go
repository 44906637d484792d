package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/eval"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/metrics"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/signals"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/update"
)

// #endregion

// #region orchestrator-struct

// Deps are the collaborators an Orchestrator is wired with. Zero-valued
// configs fall back to their package defaults.
type Deps struct {
	Generator codec.Generator
	Gate      gate.GateConfig
	Update    update.Config
	Producer  signals.ProducerConfig
	Eval      eval.EvalConfig
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Orchestrator runs one operator turn end to end: interpret, evolve the
// behavior state, decide on resistance, compose instructions, generate and
// post-process the reply. It holds no per-session state and is safe for
// concurrent use across sessions.
type Orchestrator struct {
	cfg      Config
	gen      codec.Generator
	producer *signals.Producer
	lookback int
	gate     *gate.Gate
	eval     *eval.EvalHarness
	update   update.Config
	retry    *RetryEngine
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// #endregion

// #region constructor

// NewOrchestrator creates a fully wired orchestrator.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	def := DefaultConfig()
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = def.GenerationTimeout
	}
	if cfg.RecentTurns <= 0 {
		cfg.RecentTurns = def.RecentTurns
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.ElevatedResistance <= 0 {
		cfg.ElevatedResistance = def.ElevatedResistance
	}
	if cfg.FallbackLine == "" {
		cfg.FallbackLine = def.FallbackLine
	}

	if deps.Generator == nil {
		deps.Generator = codec.Echo{}
	}
	if deps.Gate == (gate.GateConfig{}) {
		deps.Gate = gate.DefaultGateConfig()
	}
	if deps.Producer == (signals.ProducerConfig{}) {
		deps.Producer = signals.DefaultProducerConfig()
	}
	if deps.Eval == (eval.EvalConfig{}) {
		deps.Eval = eval.DefaultEvalConfig()
	}
	if deps.Update.Deltas == nil {
		deps.Update = update.DefaultConfig()
	}

	return &Orchestrator{
		cfg:      cfg,
		gen:      deps.Generator,
		producer: signals.NewProducer(deps.Producer),
		lookback: deps.Producer.ObjectionLookback,
		gate:     gate.NewGate(deps.Gate),
		eval:     eval.NewEvalHarness(deps.Eval),
		update:   deps.Update,
		retry:    NewRetryEngine(cfg.MaxRetries),
		log:      logging.Component(deps.Logger, "orchestrator"),
		metrics:  deps.Metrics,
	}
}

// Config returns the effective configuration after defaults.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Provider names the generator in use.
func (o *Orchestrator) Provider() string {
	return o.gen.Name()
}

// #endregion

// #region process-turn

// ProcessTurn runs the full turn pipeline and returns everything the caller
// must commit atomically. Generation failures never surface as errors: the
// counterpart speaks the fallback line and the state is left unchanged. The
// only error is ErrTurnAbandoned, returned when ctx is canceled.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (TurnOutcome, error) {
	if err := ctx.Err(); err != nil {
		o.metrics.ObserveTurn("abandoned")
		return TurnOutcome{}, fmt.Errorf("%w: %v", ErrTurnAbandoned, err)
	}

	started := time.Now()
	utterance := strings.TrimSpace(in.Utterance)
	opIndex := transcript.NextIndex(in.History)
	turnCount := transcript.CountRole(in.History, transcript.RoleOperator) + 1
	lg := o.log.With("session_id", in.SessionID, "turn", opIndex)

	rng := in.Rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(started.UnixNano()), uint64(opIndex)))
	}

	// 1. Interpret the operator's action
	sig := o.producer.Produce(signals.ProduceInput{
		Utterance:         utterance,
		RecentCounterpart: transcript.LastByRole(in.History, transcript.RoleCounterpart, o.lookback),
	})

	// 2. Evolve the behavior state, rejecting anything out of bounds
	tr := update.Transition(in.State, sig, o.update)
	ev := o.eval.Run(in.State, tr.NewState)
	proposed := tr.NewState
	if !ev.Passed {
		lg.Warn("transition rejected", "reason", ev.Reason)
		proposed = in.State
		tr.NewState = in.State
		tr.Decision = update.Decision{Action: "reject", Reason: ev.Reason}
	}

	// 3. Decide whether resistance surfaces
	gd := o.gate.ShouldSurface(proposed, turnCount, rng)
	scripted := applyDirective(in.Directive, turnCount, &gd)
	candidate := gate.ClassifyCategory(proposed, o.gate.Config())

	// 4. Compose instructions
	operatorText := transcript.Text(in.History, transcript.RoleOperator) + strings.ToLower(utterance)
	instructions := BuildInstructions(InstructionInput{
		Profile:        in.Profile,
		Funnel:         in.Funnel,
		Scenario:       in.Scenario,
		State:          proposed,
		Gate:           gd,
		Directive:      in.Directive,
		TurnCount:      turnCount,
		PriceMentioned: PriceMentioned(operatorText),
		MaxWords:       o.cfg.MaxWords,
	})

	// 5. Generate and post-process
	reply, failure, attempts := o.generate(ctx, lg, codec.Request{
		System: instructions,
		Turns:  o.window(in.History, utterance),
	})
	if err := ctx.Err(); err != nil {
		o.metrics.ObserveTurn("abandoned")
		lg.Info("turn abandoned during generation")
		return TurnOutcome{}, fmt.Errorf("%w: %v", ErrTurnAbandoned, err)
	}

	now := time.Now().UTC()
	out := TurnOutcome{
		Operator: transcript.Turn{
			Index:      opIndex,
			Role:       transcript.RoleOperator,
			Text:       utterance,
			Resistance: objection.CategoryNone,
			CreatedAt:  now,
		},
		PreviousState: in.State,
		Signals:       sig,
		Transition:    tr,
		Eval:          ev,
		Gate:          gd,
		Scripted:      scripted,
		Candidate:     candidate,
		Attempts:      len(attempts),
		Instructions:  instructions,
	}
	counterpart := transcript.Turn{
		Index:      opIndex + 1,
		Role:       transcript.RoleCounterpart,
		Resistance: objection.CategoryNone,
		CreatedAt:  now,
	}

	if failure != FailureNone {
		counterpart.Text = o.cfg.FallbackLine
		counterpart.Degraded = true
		out.Degraded = true
		out.FailureReason = failure
		out.NewState = in.State
		out.NextDirective = in.Directive
		out.Classification = objection.Result{Category: objection.CategoryNone}
		o.metrics.ObserveTurn("degraded")
		lg.Warn("generation failed, using fallback line", "reason", failure, "attempts", len(attempts))
	} else {
		cls := objection.Classify(reply)
		category := cls.Category
		if category == objection.CategoryNone && cls.Ambiguous && in.State.Resistance >= o.cfg.ElevatedResistance {
			category = candidate
			if scripted {
				category = gd.Category
			}
		}
		counterpart.Text = reply
		counterpart.Resistance = category
		out.Classification = cls
		out.NewState = proposed
		out.StateChanged = proposed != in.State
		out.NextDirective = advanceDirective(in.Directive, scripted)
		if category.Valid() {
			o.metrics.IncResistance(string(category))
		}
		o.metrics.ObserveTurn("ok")
		lg.Debug("turn processed",
			"signals", sig.Names(),
			"action", tr.Decision.Action,
			"surface", gd.Surface,
			"resistance", category,
		)
	}
	out.Counterpart = counterpart
	out.Record = o.record(in, out, time.Since(started))
	return out, nil
}

// #endregion

// #region generate

// generate calls the provider under the generation timeout, retrying
// rejected replies while the retry engine allows it.
func (o *Orchestrator) generate(ctx context.Context, lg *slog.Logger, req codec.Request) (string, FailureType, []Attempt) {
	gctx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()

	var attempts []Attempt
	for {
		start := time.Now()
		raw, err := o.gen.Generate(gctx, req)
		a := Attempt{Err: err, Duration: time.Since(start)}
		if err != nil {
			a.Evaluation = failureForError(err, ctx.Err() != nil, errors.Is(gctx.Err(), context.DeadlineExceeded))
		} else {
			a.Reply = Sanitize(raw)
			a.Evaluation = EvaluateReply(a.Reply)
		}
		attempts = append(attempts, a)

		status := "ok"
		if a.Evaluation.FailureType != FailureNone {
			status = string(a.Evaluation.FailureType)
		}
		o.metrics.ObserveGeneration(o.gen.Name(), status, a.Duration)

		if a.Evaluation.FailureType == FailureNone {
			return a.Reply, FailureNone, attempts
		}
		o.metrics.IncGenerationFailure(string(a.Evaluation.FailureType))
		lg.Warn("generation attempt rejected",
			"attempt", len(attempts),
			"failure", a.Evaluation.FailureType,
			"error", err,
		)
		if gctx.Err() != nil || !o.retry.ShouldRetry(attempts) {
			return "", a.Evaluation.FailureType, attempts
		}
		req.System = withReminder(req.System, a.Evaluation.FailureType)
	}
}

// window converts the recent transcript plus the new utterance into
// generator messages. Fallback lines are left out.
func (o *Orchestrator) window(history []transcript.Turn, utterance string) []codec.Message {
	recent := transcript.Window(history, o.cfg.RecentTurns)
	msgs := make([]codec.Message, 0, len(recent)+1)
	for _, t := range recent {
		if t.Degraded {
			continue
		}
		speaker := codec.SpeakerOperator
		if t.Role == transcript.RoleCounterpart {
			speaker = codec.SpeakerCounterpart
		}
		msgs = append(msgs, codec.Message{Speaker: speaker, Text: t.Text})
	}
	return append(msgs, codec.Message{Speaker: codec.SpeakerOperator, Text: utterance})
}

// #endregion

// #region record

func (o *Orchestrator) record(in TurnInput, out TurnOutcome, elapsed time.Duration) logging.TurnRecord {
	rec := logging.TurnRecord{
		SessionID: in.SessionID,
		TurnIndex: out.Operator.Index,
		Operator:  out.Operator.Text,
		Signals:   out.Signals.Names(),
		Transition: logging.TurnTransition{
			Action:     out.Transition.Decision.Action,
			Reason:     out.Transition.Decision.Reason,
			Deltas:     out.Transition.Metrics.Deltas,
			Ratchets:   out.Transition.Metrics.Ratchets,
			Backlash:   out.Transition.Metrics.Backlash,
			EvalPassed: out.Eval.Passed,
		},
		Gate: logging.TurnGate{
			Probability: out.Gate.Probability,
			Draw:        out.Gate.Draw,
			Surface:     out.Gate.Surface,
			Scripted:    out.Scripted,
			Reason:      out.Gate.Reason,
		},
		Planned:    string(out.Gate.Category),
		Classified: string(out.Counterpart.Resistance),
		Ambiguous:  out.Classification.Ambiguous,
		Degraded:   out.Degraded,
		Provider:   o.gen.Name(),
		LatencyMS:  elapsed.Milliseconds(),
	}
	if in.Directive != nil {
		rec.Directive = string(in.Directive.Kind)
	}
	if out.Degraded {
		rec.FailureReason = string(out.FailureReason)
	}
	return rec
}

// #endregion
