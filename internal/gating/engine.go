package gating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/clearpath-backend/internal/domain/tools"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

// Observer receives one call per top-level evaluation.
type Observer interface {
	ObserveGating(entrypoint, module string, locked, safetyGate bool, dur time.Duration)
}

// Engine evaluates module gates. It holds no per-user state: every call
// recomputes from the Store.
type Engine struct {
	store    Store
	cfg      *Config
	checks   map[string]CustomCheck
	now      func() time.Time
	log      *logger.Logger
	observer Observer
	tracer   trace.Tracer
	fanout   int
}

type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log.With("component", "GatingEngine")
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithCustomCheck registers (or replaces) a named custom check.
func WithCustomCheck(name string, check CustomCheck) Option {
	return func(e *Engine) {
		if name != "" && check != nil {
			e.checks[name] = check
		}
	}
}

// WithFanout bounds concurrent module evaluations in the catalog-wide calls.
func WithFanout(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fanout = n
		}
	}
}

func NewEngine(store Store, cfg *Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("gating: store required")
	}
	if cfg == nil {
		return nil, errors.New("gating: config required")
	}
	if cfg.bySlug == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		store:  store,
		cfg:    cfg,
		checks: map[string]CustomCheck{},
		now:    time.Now,
		log:    logger.Nop(),
		tracer: otel.Tracer("github.com/yungbote/clearpath-backend/internal/gating"),
		fanout: 4,
	}
	e.checks[tools.ToolTypeBinderTolerance] = e.binderToleranceCheck
	for _, opt := range opts {
		opt(e)
	}
	for _, name := range cfg.customChecks() {
		if _, ok := e.checks[name]; !ok {
			return nil, fmt.Errorf("gating: custom check %q is not registered", name)
		}
	}
	return e, nil
}

func (e *Engine) Config() *Config { return e.cfg }

// Catalog returns the modules in catalog order.
func (e *Engine) Catalog() []Module { return append([]Module(nil), e.cfg.Modules...) }

func (e *Engine) today() time.Time {
	t := e.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// evaluate walks rules in declared order. In ModeShortCircuit it stops after
// the first locked outcome, so later rules never touch the store.
func (e *Engine) evaluate(ctx context.Context, slug string, userID uuid.UUID, rules []Rule, mode Mode) ([]outcome, error) {
	out := make([]outcome, 0, len(rules))
	for i, r := range rules {
		o, err := e.evalRule(ctx, slug, userID, r)
		if err != nil {
			return nil, fmt.Errorf("module %s rule %d (%s): %w", slug, i, r.Type, err)
		}
		out = append(out, o)
		if mode == ModeShortCircuit && o.result.IsLocked {
			break
		}
	}
	return out, nil
}

func (e *Engine) span(ctx context.Context, name, slug string, userID uuid.UUID) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("gating.module", slug),
		attribute.String("gating.user", userID.String()),
	))
}

func (e *Engine) observe(entrypoint, slug string, locked, safety bool, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveGating(entrypoint, slug, locked, safety, time.Since(start))
	}
}

// CheckModuleGating returns the first blocking rule for the module, or an
// unlocked result. Modules without rules are unlocked.
func (e *Engine) CheckModuleGating(ctx context.Context, moduleSlug string, userID uuid.UUID) (GatingResult, error) {
	start := time.Now()
	ctx, span := e.span(ctx, "gating.CheckModuleGating", moduleSlug, userID)
	defer span.End()

	rules := e.cfg.Rules[moduleSlug]
	if len(rules) == 0 {
		e.observe("gating", moduleSlug, false, false, start)
		return GatingResult{IsLocked: false}, nil
	}
	outcomes, err := e.evaluate(ctx, moduleSlug, userID, rules, ModeShortCircuit)
	if err != nil {
		span.RecordError(err)
		return GatingResult{}, err
	}
	last := outcomes[len(outcomes)-1]
	if !last.result.IsLocked {
		e.observe("gating", moduleSlug, false, false, start)
		return GatingResult{IsLocked: false}, nil
	}
	res := last.result
	res.IsSafetyGate = last.rule.Priority == PriorityCritical || e.cfg.IsSafetyGate(moduleSlug)
	span.SetAttributes(attribute.Bool("gating.locked", true), attribute.Bool("gating.safety_gate", res.IsSafetyGate))
	e.log.Debug("module locked", "module_slug", moduleSlug, "rule_type", last.rule.Type, "no_data", last.noData, "user_id", userID)
	e.observe("gating", moduleSlug, true, res.IsSafetyGate, start)
	return res, nil
}

// CheckModulePrerequisites evaluates every configured prerequisite and
// reports all unmet ones. Modules without prerequisites are unlocked.
func (e *Engine) CheckModulePrerequisites(ctx context.Context, moduleSlug string, userID uuid.UUID) (PrerequisiteResult, error) {
	start := time.Now()
	ctx, span := e.span(ctx, "gating.CheckModulePrerequisites", moduleSlug, userID)
	defer span.End()

	p, ok := e.cfg.Prerequisites[moduleSlug]
	rules := p.rules()
	if !ok || len(rules) == 0 {
		e.observe("prerequisites", moduleSlug, false, false, start)
		return PrerequisiteResult{IsUnlocked: true}, nil
	}
	outcomes, err := e.evaluate(ctx, moduleSlug, userID, rules, ModeExhaustive)
	if err != nil {
		span.RecordError(err)
		return PrerequisiteResult{}, err
	}

	var missing []string
	for _, o := range outcomes {
		if o.result.IsLocked {
			missing = append(missing, o.requirement)
		}
	}
	pct := int(math.Round(float64(len(outcomes)-len(missing)) / float64(len(outcomes)) * 100))
	res := PrerequisiteResult{IsUnlocked: len(missing) == 0, ProgressPercentage: &pct}
	if len(missing) > 0 {
		res.Reason = missing[0]
		res.MissingRequirements = missing
	}
	e.observe("prerequisites", moduleSlug, !res.IsUnlocked, e.cfg.IsSafetyGate(moduleSlug), start)
	return res, nil
}

// GetUnlockInstructions evaluates every rule of the module and returns the
// unlock hint of each blocking rule, in rule order.
func (e *Engine) GetUnlockInstructions(ctx context.Context, moduleSlug string, userID uuid.UUID) ([]string, error) {
	ctx, span := e.span(ctx, "gating.GetUnlockInstructions", moduleSlug, userID)
	defer span.End()

	outcomes, err := e.evaluate(ctx, moduleSlug, userID, e.cfg.Rules[moduleSlug], ModeExhaustive)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	hints := []string{}
	for _, o := range outcomes {
		if o.result.IsLocked && o.result.UnlockHint != "" {
			hints = append(hints, o.result.UnlockHint)
		}
	}
	return hints, nil
}

// GetModuleGatingStatus runs CheckModulePrerequisites for every catalog module.
func (e *Engine) GetModuleGatingStatus(ctx context.Context, userID uuid.UUID) (map[string]PrerequisiteResult, error) {
	slugs := e.cfg.Slugs()
	results := make([]PrerequisiteResult, len(slugs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanout)
	for i, slug := range slugs {
		g.Go(func() error {
			res, err := e.CheckModulePrerequisites(gctx, slug, userID)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]PrerequisiteResult, len(slugs))
	for i, slug := range slugs {
		out[slug] = results[i]
	}
	return out, nil
}

// GetUnlockedModules returns unlocked module slugs in catalog order.
func (e *Engine) GetUnlockedModules(ctx context.Context, userID uuid.UUID) ([]string, error) {
	status, err := e.GetModuleGatingStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := []string{}
	for _, slug := range e.cfg.Slugs() {
		if status[slug].IsUnlocked {
			unlocked = append(unlocked, slug)
		}
	}
	return unlocked, nil
}

// CanSafelyProceed returns clinical advisories for a module. It is
// independent of the module's rules and never locks anything.
func (e *Engine) CanSafelyProceed(ctx context.Context, moduleSlug string, userID uuid.UUID) (SafetyAdvice, error) {
	ctx, span := e.span(ctx, "gating.CanSafelyProceed", moduleSlug, userID)
	defer span.End()

	advice := SafetyAdvice{Safe: true, Warnings: []string{}}
	a, ok := e.cfg.Advisories[moduleSlug]
	if !ok {
		return advice, nil
	}
	if a.Drainage != nil {
		w, err := e.readinessWindow(ctx, userID, a.Drainage.MinScore, a.Drainage.ConsecutiveDays)
		if err != nil {
			span.RecordError(err)
			return SafetyAdvice{}, err
		}
		if !w.met() {
			advice.Safe = false
			advice.Warnings = append(advice.Warnings, a.UnmetWarnings...)
		}
	}
	advice.Warnings = append(advice.Warnings, a.Warnings...)
	return advice, nil
}
