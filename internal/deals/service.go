// internal/deals/service.go

// Package deals owns the session deal set and the single mutable weighting
// profile, and keeps every stored assessment consistent with that profile.
package deals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/validation"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

// Trigger names why deals were rescored.
type Trigger string

const (
	TriggerLoad    Trigger = "load"
	TriggerEdit    Trigger = "edit"
	TriggerProfile Trigger = "profile"
)

// Change is one rescored deal. Previous is the zero Deal for inserts.
type Change struct {
	Previous models.Deal
	Current  models.Deal
	Trigger  Trigger
	Created  bool
}

// LevelChanged reports whether the risk level moved.
func (c Change) LevelChanged() bool {
	return c.Created || c.Previous.RiskLevel != c.Current.RiskLevel
}

// Listener is notified after a rescoring pass, outside the service lock.
type Listener interface {
	OnRescore(ctx context.Context, changes []Change)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, changes []Change)

func (f ListenerFunc) OnRescore(ctx context.Context, changes []Change) { f(ctx, changes) }

// Recorder receives scoring metrics.
type Recorder interface {
	ObserveAssessment(level risk.Level, score int)
	ObserveRescore(trigger string, deals int, elapsed time.Duration)
	SetTrackedDeals(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAssessment(risk.Level, int)        {}
func (nopRecorder) ObserveRescore(string, int, time.Duration) {}
func (nopRecorder) SetTrackedDeals(int)                      {}

// Service is safe for concurrent use. Readers always observe a deal set
// scored against the profile they would read at the same moment.
type Service struct {
	mu      sync.RWMutex
	profile models.UserProfile
	prefs   models.AgentPreferences
	deals   []models.Deal
	index   map[string]int

	logger    logger.Logger
	cache     SessionCache
	listeners []Listener
	tracer    trace.Tracer
	recorder  Recorder
	newID     func() string

	// publishTail is closed once the most recently reserved pass has
	// written the cache and notified listeners.
	publishTail chan struct{}
}

// publishTurn orders cache writes and listener fan-out by the order in which
// passes took the write lock.
type publishTurn struct {
	prev <-chan struct{}
	done chan struct{}
}

// reserveTurn must be called with s.mu held for writing.
func (s *Service) reserveTurn() publishTurn {
	t := publishTurn{prev: s.publishTail, done: make(chan struct{})}
	s.publishTail = t.done
	return t
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option { return func(s *Service) { s.logger = l } }

func WithSessionCache(c SessionCache) Option { return func(s *Service) { s.cache = c } }

func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

func WithTracer(t trace.Tracer) Option { return func(s *Service) { s.tracer = t } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithPreferences(p models.AgentPreferences) Option { return func(s *Service) { s.prefs = p } }

// WithIDGenerator replaces uuid generation for new deals.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService creates an empty service holding profile.
func NewService(profile models.UserProfile, opts ...Option) *Service {
	s := &Service{
		profile:  profile,
		prefs:    models.DefaultAgentPreferences(),
		index:    make(map[string]int),
		logger:   logger.NewNoOpLogger(),
		tracer:   noop.NewTracerProvider().Tracer("deals"),
		recorder: nopRecorder{},
		newID:    uuid.NewString,
	}
	s.publishTail = make(chan struct{})
	close(s.publishTail)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddListener registers l for future rescoring passes.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// ==========================
// Loading
// ==========================

// Load replaces the deal set. Every deal is normalized, assigned an ID if it
// has none, and scored against the current profile.
func (s *Service) Load(ctx context.Context, deals []models.Deal) error {
	ctx, span := s.tracer.Start(ctx, "deals.load", trace.WithAttributes(attribute.Int("deals", len(deals))))
	defer span.End()

	prepared := make([]models.Deal, len(deals))
	index := make(map[string]int, len(deals))
	for i, d := range deals {
		d = d.Clone()
		d.Normalize()
		if d.ID == "" {
			d.ID = s.newID()
		}
		if err := s.validateDeal(d); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid deal")
			return err.WithMetadata("index", i)
		}
		if _, dup := index[d.ID]; dup {
			return apperrors.NewDealValidationError(fmt.Sprintf("duplicate deal id %q", d.ID)).WithMetadata("index", i)
		}
		index[d.ID] = i
		prepared[i] = d
	}

	start := time.Now()
	s.mu.Lock()
	weighting := s.profile.Weighting()
	changes := make([]Change, len(prepared))
	for i := range prepared {
		prepared[i].ApplyAssessment(risk.Compute(prepared[i].RiskInput(), weighting))
		changes[i] = Change{Current: prepared[i].Clone(), Trigger: TriggerLoad, Created: true}
	}
	s.deals = prepared
	s.index = index
	profile := s.profile
	listeners := append([]Listener(nil), s.listeners...)
	turn := s.reserveTurn()
	s.mu.Unlock()

	s.afterRescore(ctx, turn, TriggerLoad, profile, changes, listeners, time.Since(start))
	return nil
}

// LoadFrom loads the deal set from src.
func (s *Service) LoadFrom(ctx context.Context, src Source) error {
	deals, err := src.LoadDeals(ctx)
	if err != nil {
		if _, ok := apperrors.AsStandard(err); ok {
			return err
		}
		return apperrors.NewDealSourceError(src.Name(), err)
	}
	s.logger.Info("Loaded deals from source", map[string]interface{}{
		"source": src.Name(),
		"count":  len(deals),
	})
	return s.Load(ctx, deals)
}

// ==========================
// Reads
// ==========================

// Deals returns a copy of the deal set in load order.
func (s *Service) Deals() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Deal, len(s.deals))
	for i, d := range s.deals {
		out[i] = d.Clone()
	}
	return out
}

// Deal returns a copy of one deal.
func (s *Service) Deal(id string) (models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Deal{}, apperrors.NewDealNotFoundError(id)
	}
	return s.deals[i].Clone(), nil
}

// Snapshot returns the profile and the deal set read under one lock.
func (s *Service) Snapshot() (models.UserProfile, []models.Deal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Deal, len(s.deals))
	for i, d := range s.deals {
		out[i] = d.Clone()
	}
	return s.profile, out
}

func (s *Service) Profile() models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Service) Preferences() models.AgentPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// ==========================
// Writes
// ==========================

// CreateDeal inserts a deal under a fresh ID and scores it.
func (s *Service) CreateDeal(ctx context.Context, deal models.Deal) (models.Deal, error) {
	deal = deal.Clone()
	deal.Normalize()
	deal.ID = s.newID()
	if err := s.validateDeal(deal); err != nil {
		return models.Deal{}, err
	}

	s.mu.Lock()
	deal.ApplyAssessment(risk.Compute(deal.RiskInput(), s.profile.Weighting()))
	s.index[deal.ID] = len(s.deals)
	s.deals = append(s.deals, deal)
	profile := s.profile
	listeners := append([]Listener(nil), s.listeners...)
	turn := s.reserveTurn()
	s.mu.Unlock()

	s.afterRescore(ctx, turn, TriggerEdit, profile, []Change{{Current: deal.Clone(), Trigger: TriggerEdit, Created: true}}, listeners, 0)
	return deal.Clone(), nil
}

// UpdateDeal replaces a stored deal and rescores it. A draft already stored
// on the deal survives an update that carries none.
func (s *Service) UpdateDeal(ctx context.Context, deal models.Deal) (models.Deal, error) {
	deal = deal.Clone()
	deal.Normalize()
	if err := s.validateDeal(deal); err != nil {
		return models.Deal{}, err
	}

	s.mu.Lock()
	i, ok := s.index[deal.ID]
	if !ok {
		s.mu.Unlock()
		return models.Deal{}, apperrors.NewDealNotFoundError(deal.ID)
	}
	prev := s.deals[i]
	if deal.AIFollowUp == "" {
		deal.AIFollowUp = prev.AIFollowUp
	}
	deal.ApplyAssessment(risk.Compute(deal.RiskInput(), s.profile.Weighting()))
	s.deals[i] = deal
	profile := s.profile
	listeners := append([]Listener(nil), s.listeners...)
	turn := s.reserveTurn()
	s.mu.Unlock()

	s.afterRescore(ctx, turn, TriggerEdit, profile, []Change{{Previous: prev, Current: deal.Clone(), Trigger: TriggerEdit}}, listeners, 0)
	return deal.Clone(), nil
}

// SetFollowUp stores a generated draft. Risk is unaffected.
func (s *Service) SetFollowUp(ctx context.Context, id, draft string) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.Deal{}, apperrors.NewDealNotFoundError(id)
	}
	s.deals[i].AIFollowUp = draft
	return s.deals[i].Clone(), nil
}

// UpdateProfile validates and installs profile, rescoring every deal. The new
// profile and the new assessments become visible together.
func (s *Service) UpdateProfile(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	p, _, err := s.applyProfile(ctx, "deals.update_profile", func(models.UserProfile) models.UserProfile {
		return profile
	})
	return p, err
}

// ApplyWeighting replaces only the weighting fields of the current profile.
// It returns the installed profile and the deal set exactly as this pass
// scored them.
func (s *Service) ApplyWeighting(ctx context.Context, w risk.WeightingProfile) (models.UserProfile, []models.Deal, error) {
	return s.applyProfile(ctx, "deals.apply_weighting", func(p models.UserProfile) models.UserProfile {
		p.SetWeighting(w)
		return p
	})
}

// applyProfile derives the next profile from the current one under the write
// lock, so concurrent passes never lose each other's fields.
func (s *Service) applyProfile(ctx context.Context, spanName string, next func(models.UserProfile) models.UserProfile) (models.UserProfile, []models.Deal, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	start := time.Now()
	s.mu.Lock()
	profile := next(s.profile)
	if res := validation.ValidateStruct(profile); !res.Valid {
		s.mu.Unlock()
		err := apperrors.NewProfileValidationError(res.Summary())
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid profile")
		return models.UserProfile{}, nil, err
	}

	weighting := profile.Weighting()
	rescored := make([]models.Deal, len(s.deals))
	snapshot := make([]models.Deal, len(s.deals))
	changes := make([]Change, len(s.deals))
	for i, prev := range s.deals {
		d := prev.Clone()
		d.ApplyAssessment(risk.Compute(d.RiskInput(), weighting))
		rescored[i] = d
		snapshot[i] = d.Clone()
		changes[i] = Change{Previous: prev, Current: d.Clone(), Trigger: TriggerProfile}
	}
	s.deals = rescored
	s.profile = profile
	listeners := append([]Listener(nil), s.listeners...)
	turn := s.reserveTurn()
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("deals", len(rescored)))
	s.afterRescore(ctx, turn, TriggerProfile, profile, changes, listeners, time.Since(start))
	return profile, snapshot, nil
}

// UpdatePreferences validates and stores the follow-up preferences.
func (s *Service) UpdatePreferences(prefs models.AgentPreferences) (models.AgentPreferences, error) {
	if res := validation.ValidateStruct(prefs); !res.Valid {
		return models.AgentPreferences{}, apperrors.NewBusinessRuleError("Agent preferences validation failed", res.Summary())
	}
	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
	return prefs, nil
}

// ==========================
// Helpers
// ==========================

func (s *Service) validateDeal(d models.Deal) *apperrors.StandardError {
	if res := validation.ValidateStruct(d); !res.Valid {
		return apperrors.NewDealValidationError(res.Summary()).WithMetadata("dealId", d.ID)
	}
	return nil
}

// afterRescore publishes one pass. Passes publish in the order they took the
// write lock; listeners must not mutate the service from OnRescore.
func (s *Service) afterRescore(ctx context.Context, turn publishTurn, trigger Trigger, profile models.UserProfile, changes []Change, listeners []Listener, elapsed time.Duration) {
	<-turn.prev
	defer close(turn.done)

	s.mu.RLock()
	tracked := len(s.deals)
	s.mu.RUnlock()

	for _, c := range changes {
		s.recorder.ObserveAssessment(c.Current.RiskLevel, c.Current.RiskScore)
	}
	s.recorder.ObserveRescore(string(trigger), len(changes), elapsed)
	s.recorder.SetTrackedDeals(tracked)

	s.logger.Debug("Deals rescored", map[string]interface{}{
		"trigger": string(trigger),
		"count":   len(changes),
		"elapsed": elapsed.String(),
	})

	if s.cache != nil {
		assessments := make(map[string]risk.Assessment, len(changes))
		for _, c := range changes {
			assessments[c.Current.ID] = c.Current.Assessment()
		}
		if err := s.cache.SaveAssessments(ctx, assessments); err != nil {
			s.logger.Warn("Failed to cache assessments", map[string]interface{}{"error": err.Error()})
		}
		if err := s.cache.SaveProfile(ctx, profile); err != nil {
			s.logger.Warn("Failed to cache profile", map[string]interface{}{"error": err.Error()})
		}
	}

	for _, l := range listeners {
		l.OnRescore(ctx, changes)
	}
}
