package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/metrics"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/stages"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// #region service

// Options tune a Service. Zero values are replaced with defaults.
type Options struct {
	CacheSize int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
	Seed      func() uint64 // seeds sessions created without an explicit seed
}

// Service owns session lifecycle: creation, turns, directives and ending.
// Each session has a single writer; different sessions never contend.
type Service struct {
	store   *state.Store
	orch    *orchestrator.Orchestrator
	cache   *lru.Cache[string, *entry]
	views   *lru.Cache[string, Session] // last published read model, readable without the lock
	locks   *keyedLocks
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	seed    func() uint64

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc
}

// entry is the cached snapshot of one session. Only touched while the
// session's lock is held.
type entry struct {
	rec       state.SessionRecord
	config    storedConfig
	current   state.StateRecord
	turns     []transcript.Turn
	directive *orchestrator.Directive
}

// NewService wires a session service over a store and an orchestrator.
func NewService(store *state.Store, orch *orchestrator.Orchestrator, opts Options) (*Service, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Seed == nil {
		opts.Seed = rand.Uint64
	}
	cache, err := lru.New[string, *entry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	views, err := lru.New[string, Session](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("session views: %w", err)
	}
	return &Service{
		store:    store,
		orch:     orch,
		cache:    cache,
		views:    views,
		locks:    newKeyedLocks(),
		log:      logging.Component(opts.Logger, "session"),
		metrics:  opts.Metrics,
		now:      opts.Now,
		seed:     opts.Seed,
		inflight: make(map[string]context.CancelFunc),
	}, nil
}

// #endregion service

// #region create

// Create validates the request, builds the difficulty profile and funnel
// context, initializes the behavior state and persists the session.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Session, error) {
	authority, err := difficulty.ParseAuthority(strings.TrimSpace(req.Authority))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fc, err := resolveFunnel(req)
	if err != nil {
		return Session{}, err
	}

	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := newRand(seed, 0)

	profile, err := resolveProfile(req, authority, rng)
	if err != nil {
		return Session{}, err
	}
	initial := state.Initialize(profile, fc)

	cfg := storedConfig{Scenario: req.Scenario, Seed: seed}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session config: %w", err)
	}
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = defaultMode
	}

	rec := state.SessionRecord{
		ID:         uuid.NewString(),
		Status:     state.StatusActive,
		Mode:       mode,
		Profile:    profile,
		Funnel:     fc,
		ConfigJSON: string(cfgJSON),
		CreatedAt:  s.now(),
	}
	version, err := s.store.CreateSession(ctx, rec, initial)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	rec.ActiveVersion = version.VersionID

	s.provenance(ctx, logging.ProvenanceEntry{
		SessionID:   rec.ID,
		VersionID:   version.VersionID,
		TurnIndex:   -1,
		TriggerType: "create",
		Decision:    "commit",
		Reason:      fmt.Sprintf("tier=%s index=%d funnel=%s", profile.Tier, profile.Index, fc.Category),
	})

	e := &entry{rec: rec, config: cfg, current: version}
	s.cache.Add(rec.ID, e)
	s.metrics.SessionStarted()
	s.log.Info("session created",
		"session_id", rec.ID,
		"tier", profile.Tier,
		"index", profile.Index,
		"funnel", fc.Category,
		"authority", authority,
	)
	return s.publish(e), nil
}

func resolveFunnel(req CreateRequest) (funnel.Context, error) {
	category := strings.TrimSpace(req.FunnelCategory)
	if category == "" {
		if strings.TrimSpace(req.FunnelSignals) == "" {
			return funnel.Context{}, fmt.Errorf("%w: funnel category or funnel signals required", ErrInvalidConfig)
		}
		return funnel.InferFromSignals(req.FunnelSignals), nil
	}
	c, err := funnel.ParseCategory(category)
	if err != nil {
		return funnel.Context{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if req.Warmth != nil {
		return funnel.ClassifyWithWarmth(c, *req.Warmth)
	}
	return funnel.Classify(c)
}

func resolveProfile(req CreateRequest, authority difficulty.AuthorityLevel, rng *rand.Rand) (difficulty.Profile, error) {
	var dims difficulty.Dimensions
	switch {
	case req.Dimensions != nil:
		dims = req.Dimensions.Clamped()
	default:
		tier := difficulty.TierRealistic
		if t := strings.TrimSpace(req.Tier); t != "" {
			parsed, err := difficulty.ParseTier(t)
			if err != nil {
				return difficulty.Profile{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
			tier = parsed
		}
		sampled, err := difficulty.SampleWithinTier(tier, authority, rng)
		if err != nil {
			return difficulty.Profile{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		dims = sampled
	}

	if req.Execution != nil {
		// A sampled profile must stay inside its tier, and an explicit value wins.
		switch {
		case req.Dimensions == nil:
			return difficulty.Profile{}, fmt.Errorf("%w: execution inputs require explicit dimensions", ErrInvalidConfig)
		case req.Dimensions.ExecutionResistance != 0:
			return difficulty.Profile{}, fmt.Errorf("%w: execution inputs conflict with an explicit execution resistance", ErrInvalidConfig)
		}
		dims.ExecutionResistance = difficulty.ComputeExecutionResistance(
			req.Execution.Price, req.Execution.Effort, authority, dims.PainIntensity)
	}
	return difficulty.NewProfile(dims, authority), nil
}

// #endregion create

// #region process-turn

// ProcessTurn runs one operator turn through the orchestrator and commits
// both transcript entries, the new state version and the provenance row in
// one transaction. A degraded turn still commits its transcript entries but
// no state version.
func (s *Service) ProcessTurn(ctx context.Context, id, text string) (orchestrator.TurnOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return orchestrator.TurnOutcome{}, ErrEmptyUtterance
	}

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return orchestrator.TurnOutcome{}, fmt.Errorf("%w: %v", orchestrator.ErrTurnAbandoned, err)
	}
	defer release()

	e, err := s.load(ctx, id)
	if err != nil {
		return orchestrator.TurnOutcome{}, err
	}
	if e.rec.Status != state.StatusActive {
		return orchestrator.TurnOutcome{}, fmt.Errorf("session %s: %w", id, ErrEnded)
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setInflight(id, cancel)
	defer s.clearInflight(id)

	out, err := s.orch.ProcessTurn(turnCtx, orchestrator.TurnInput{
		SessionID: id,
		Profile:   e.rec.Profile,
		Funnel:    e.rec.Funnel,
		Scenario:  e.config.Scenario,
		State:     e.current.State,
		History:   e.turns,
		Utterance: text,
		Directive: e.directive,
		Rng:       turnRand(e.config.Seed, transcript.NextIndex(e.turns)),
	})
	if err != nil {
		return orchestrator.TurnOutcome{}, err
	}

	commit, version, err := s.buildCommit(id, e, out)
	if err != nil {
		return orchestrator.TurnOutcome{}, err
	}
	if err := s.store.CommitTurn(turnCtx, commit); err != nil {
		switch {
		case turnCtx.Err() != nil:
			return orchestrator.TurnOutcome{}, fmt.Errorf("%w: %v", orchestrator.ErrTurnAbandoned, turnCtx.Err())
		case errors.Is(err, state.ErrInactive):
			s.cache.Remove(id)
			s.views.Remove(id)
			return orchestrator.TurnOutcome{}, fmt.Errorf("session %s: %w", id, ErrEnded)
		}
		return orchestrator.TurnOutcome{}, fmt.Errorf("commit turn: %w", err)
	}

	e.turns = append(e.turns, out.Operator, out.Counterpart)
	if version != nil {
		e.current = *version
		e.rec.ActiveVersion = version.VersionID
	}
	e.directive = out.NextDirective
	s.publish(e)
	return out, nil
}

func (s *Service) buildCommit(id string, e *entry, out orchestrator.TurnOutcome) (state.TurnCommit, *state.StateRecord, error) {
	now := s.now()
	commit := state.TurnCommit{
		SessionID: id,
		Turns:     []transcript.Turn{out.Operator, out.Counterpart},
	}

	versionID := e.current.VersionID
	decision := out.Transition.Decision.Action
	reason := out.Transition.Decision.Reason
	if out.Degraded {
		decision = "degraded"
		reason = string(out.FailureReason)
	} else {
		metricsJSON, err := json.Marshal(out.Transition.Metrics)
		if err != nil {
			return state.TurnCommit{}, nil, fmt.Errorf("marshal transition metrics: %w", err)
		}
		commit.State = &state.StateRecord{
			VersionID:   uuid.NewString(),
			ParentID:    e.current.VersionID,
			SessionID:   id,
			TurnIndex:   out.Operator.Index,
			State:       out.NewState,
			CreatedAt:   now,
			MetricsJSON: string(metricsJSON),
		}
		versionID = commit.State.VersionID
	}

	if directiveChanged(e.directive, out.NextDirective) {
		raw, err := marshalDirective(out.NextDirective)
		if err != nil {
			return state.TurnCommit{}, nil, err
		}
		commit.Directive = &raw
	}

	recordJSON, err := json.Marshal(out.Record)
	if err != nil {
		return state.TurnCommit{}, nil, fmt.Errorf("marshal turn record: %w", err)
	}
	commit.Provenance = &logging.ProvenanceEntry{
		SessionID:   id,
		VersionID:   versionID,
		TurnIndex:   out.Operator.Index,
		TriggerType: "turn",
		SignalsJSON: string(recordJSON),
		Category:    string(out.Counterpart.Resistance),
		Decision:    decision,
		Reason:      reason,
		CreatedAt:   now,
	}
	return commit, commit.State, nil
}

// #endregion process-turn

// #region reads

// Get returns the current read model of a session. It reads the last
// committed snapshot and does not wait for an in-flight turn.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if v, ok := s.views.Get(id); ok {
		return v.clone(), nil
	}

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return Session{}, err
	}
	defer release()

	e, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return s.publish(e), nil
}

// DetectStages reports which conversation stages the transcript has reached.
func (s *Service) DetectStages(ctx context.Context, id string) (stages.Report, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return stages.Report{}, err
	}
	return sess.Stages, nil
}

// Versions lists committed state versions, newest first.
func (s *Service) Versions(ctx context.Context, id string, limit int) ([]state.StateRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id, limit)
}

// #endregion reads

// #region lifecycle

// End marks the session ended. An in-flight turn is abandoned and commits
// nothing. Ending an ended session returns it unchanged.
func (s *Service) End(ctx context.Context, id string) (Session, error) {
	s.cancelInflight(id)

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return Session{}, err
	}
	defer release()

	e, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if e.rec.Status == state.StatusEnded {
		return s.publish(e), nil
	}

	at := s.now()
	if err := s.store.EndSession(ctx, id, at); err != nil {
		return Session{}, s.mapStoreErr(id, err)
	}
	e.rec.Status = state.StatusEnded
	e.rec.EndedAt = at

	view := s.publish(e)
	s.provenance(ctx, logging.ProvenanceEntry{
		SessionID:   id,
		VersionID:   e.current.VersionID,
		TurnIndex:   transcript.NextIndex(e.turns),
		TriggerType: "end",
		Decision:    "commit",
		Reason:      fmt.Sprintf("incomplete=%t missing=%s", view.Incomplete, strings.Join(view.Stages.Missing(), ",")),
	})
	s.metrics.SessionEnded()
	s.log.Info("session ended", "session_id", id, "turns", len(e.turns), "incomplete", view.Incomplete)
	return view, nil
}

// Regenerate resamples the difficulty profile for tier before the first
// turn. The funnel context and scenario are kept.
func (s *Service) Regenerate(ctx context.Context, id, tier string) (Session, error) {
	t, err := difficulty.ParseTier(strings.TrimSpace(tier))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return Session{}, err
	}
	defer release()

	e, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if e.rec.Status != state.StatusActive {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrEnded)
	}
	if len(e.turns) > 0 {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrAlreadyStarted)
	}

	dims, err := difficulty.SampleWithinTier(t, e.rec.Profile.Authority, newRand(s.seed(), regenerateStream))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	rec := e.rec
	rec.Profile = difficulty.NewProfile(dims, e.rec.Profile.Authority)
	initial := state.Initialize(rec.Profile, rec.Funnel)

	version, err := s.store.ReplaceProfile(ctx, rec, initial)
	if err != nil {
		return Session{}, s.mapStoreErr(id, err)
	}
	rec.ActiveVersion = version.VersionID
	e.rec = rec
	e.current = version

	s.provenance(ctx, logging.ProvenanceEntry{
		SessionID:   id,
		VersionID:   version.VersionID,
		TurnIndex:   -1,
		TriggerType: "regenerate",
		Decision:    "commit",
		Reason:      fmt.Sprintf("tier=%s index=%d", rec.Profile.Tier, rec.Profile.Index),
	})
	return s.publish(e), nil
}

// SetDirective activates a scenario directive; nil clears it.
func (s *Service) SetDirective(ctx context.Context, id string, d *orchestrator.Directive) (Session, error) {
	if d != nil {
		cp := *d
		if err := cp.Validate(); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		d = &cp
	}
	raw, err := marshalDirective(d)
	if err != nil {
		return Session{}, err
	}

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return Session{}, err
	}
	defer release()

	e, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if e.rec.Status != state.StatusActive {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrEnded)
	}
	if err := s.store.UpdateDirective(ctx, id, raw); err != nil {
		return Session{}, s.mapStoreErr(id, err)
	}
	e.directive = d
	e.rec.DirectiveJSON = raw
	return s.publish(e), nil
}

// #endregion lifecycle

// #region cache

// load returns the cached entry or rebuilds it from the store. Callers hold
// the session lock.
func (s *Service) load(ctx context.Context, id string) (*entry, error) {
	if e, ok := s.cache.Get(id); ok {
		return e, nil
	}

	rec, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(id, err)
	}
	current, err := s.store.GetCurrent(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(id, err)
	}
	turns, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	var cfg storedConfig
	if rec.ConfigJSON != "" {
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &cfg); err != nil {
			return nil, fmt.Errorf("decode session config: %w", err)
		}
	}
	var directive *orchestrator.Directive
	if rec.DirectiveJSON != "" {
		directive = &orchestrator.Directive{}
		if err := json.Unmarshal([]byte(rec.DirectiveJSON), directive); err != nil {
			return nil, fmt.Errorf("decode directive: %w", err)
		}
	}

	e := &entry{
		rec:       rec,
		config:    cfg,
		current:   current,
		turns:     turns,
		directive: directive,
	}
	s.cache.Add(id, e)
	return e, nil
}

// publish stores the entry's read model for lock-free reads and returns a
// copy. Callers hold the session lock.
func (s *Service) publish(e *entry) Session {
	v := s.view(e)
	s.views.Add(e.rec.ID, v)
	return v.clone()
}

func (s *Service) view(e *entry) Session {
	report := stages.Detect(e.turns)
	v := Session{
		ID:         e.rec.ID,
		Status:     e.rec.Status,
		Mode:       e.rec.Mode,
		Profile:    e.rec.Profile,
		Funnel:     e.rec.Funnel,
		Scenario:   e.config.Scenario,
		State:      e.current.State,
		Derived:    e.current.State.Derived(),
		VersionID:  e.current.VersionID,
		Turns:      append([]transcript.Turn(nil), e.turns...),
		Stages:     report,
		Incomplete: report.Incomplete(),
		CreatedAt:  e.rec.CreatedAt,
	}
	if e.directive != nil {
		d := *e.directive
		v.Directive = &d
	}
	if !e.rec.EndedAt.IsZero() {
		ended := e.rec.EndedAt
		v.EndedAt = &ended
	}
	return v
}

// #endregion cache

// #region helpers

func (s *Service) setInflight(id string, cancel context.CancelFunc) {
	s.inflightMu.Lock()
	s.inflight[id] = cancel
	s.inflightMu.Unlock()
}

func (s *Service) clearInflight(id string) {
	s.inflightMu.Lock()
	delete(s.inflight, id)
	s.inflightMu.Unlock()
}

func (s *Service) cancelInflight(id string) {
	s.inflightMu.Lock()
	cancel, ok := s.inflight[id]
	s.inflightMu.Unlock()
	if ok {
		cancel()
	}
}

// provenance writes a lifecycle row outside a turn transaction. Failures are
// logged, not returned.
func (s *Service) provenance(ctx context.Context, pe logging.ProvenanceEntry) {
	if pe.CreatedAt.IsZero() {
		pe.CreatedAt = s.now()
	}
	if err := logging.LogDecision(ctx, s.store.DB(), pe); err != nil {
		s.log.Warn("provenance write failed", "session_id", pe.SessionID, "trigger", pe.TriggerType, "error", err)
	}
}

func (s *Service) mapStoreErr(id string, err error) error {
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return err
}

// Stream 0 samples the profile at creation. Turn draws depend only on the
// seed and the turn's transcript index.
const regenerateStream = 1 << 63

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// turnRand is the gate's source for the operator turn at transcript index idx.
func turnRand(seed uint64, idx int) *rand.Rand {
	return newRand(seed, uint64(idx)+1)
}

func directiveChanged(a, b *orchestrator.Directive) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil || b == nil:
		return true
	}
	return *a != *b
}

func marshalDirective(d *orchestrator.Directive) (string, error) {
	if d == nil {
		return "", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal directive: %w", err)
	}
	return string(raw), nil
}

// #endregion helpers
