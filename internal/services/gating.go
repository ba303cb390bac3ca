package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

// ModuleView is one catalog entry with the caller's progress and checklist.
type ModuleView struct {
	gating.Module
	Status           string                    `json:"status"`
	CompletedLessons []string                  `json:"completedLessons"`
	IsSafetyGate     bool                      `json:"isSafetyGate"`
	Prerequisites    gating.PrerequisiteResult `json:"prerequisites"`
}

type GatingService interface {
	ListModules(ctx context.Context) ([]ModuleView, error)
	CheckModuleGating(ctx context.Context, slug string) (gating.GatingResult, error)
	CheckModulePrerequisites(ctx context.Context, slug string) (gating.PrerequisiteResult, error)
	GetUnlockInstructions(ctx context.Context, slug string) ([]string, error)
	GetUnlockedModules(ctx context.Context) ([]string, error)
	CanSafelyProceed(ctx context.Context, slug string) (gating.SafetyAdvice, error)
}

type gatingService struct {
	log      *logger.Logger
	engine   *gating.Engine
	progress repos.ModuleProgressRepo
}

func NewGatingService(log *logger.Logger, engine *gating.Engine, progress repos.ModuleProgressRepo) GatingService {
	return &gatingService{
		log:      log.With("service", "GatingService"),
		engine:   engine,
		progress: progress,
	}
}

func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, apierr.ErrUnauthorized
	}
	return userID, nil
}

// lookupModule resolves a catalog slug. The engine treats unknown slugs as
// ungated; the API reports them as missing instead.
func lookupModule(cfg *gating.Config, slug string) (gating.Module, error) {
	m, ok := cfg.Module(slug)
	if !ok {
		return gating.Module{}, fmt.Errorf("module %q: %w", slug, apierr.ErrNotFound)
	}
	return m, nil
}

func (s *gatingService) ListModules(ctx context.Context) ([]ModuleView, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.engine.GetModuleGatingStatus(ctx, userID)
	if err != nil {
		s.log.Error("module gating status failed", "user_id", userID, "error", err)
		return nil, err
	}
	rows, err := s.progress.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("list module progress: %w", err)
	}
	bySlug := make(map[string]int, len(rows))
	for i, r := range rows {
		bySlug[r.ModuleSlug] = i
	}

	cfg := s.engine.Config()
	out := make([]ModuleView, 0, len(cfg.Modules))
	for _, m := range s.engine.Catalog() {
		v := ModuleView{
			Module:           m,
			Status:           types.ModuleStatusNotStarted,
			CompletedLessons: []string{},
			IsSafetyGate:     cfg.IsSafetyGate(m.Slug),
			Prerequisites:    status[m.Slug],
		}
		if i, ok := bySlug[m.Slug]; ok {
			v.Status = rows[i].Status
			if ids := rows[i].LessonIDs(); ids != nil {
				v.CompletedLessons = ids
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *gatingService) CheckModuleGating(ctx context.Context, slug string) (gating.GatingResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return gating.GatingResult{}, err
	}
	if _, err := lookupModule(s.engine.Config(), slug); err != nil {
		return gating.GatingResult{}, err
	}
	return s.engine.CheckModuleGating(ctx, slug, userID)
}

func (s *gatingService) CheckModulePrerequisites(ctx context.Context, slug string) (gating.PrerequisiteResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return gating.PrerequisiteResult{}, err
	}
	if _, err := lookupModule(s.engine.Config(), slug); err != nil {
		return gating.PrerequisiteResult{}, err
	}
	return s.engine.CheckModulePrerequisites(ctx, slug, userID)
}

func (s *gatingService) GetUnlockInstructions(ctx context.Context, slug string) ([]string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := lookupModule(s.engine.Config(), slug); err != nil {
		return nil, err
	}
	return s.engine.GetUnlockInstructions(ctx, slug, userID)
}

func (s *gatingService) GetUnlockedModules(ctx context.Context) ([]string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.GetUnlockedModules(ctx, userID)
}

func (s *gatingService) CanSafelyProceed(ctx context.Context, slug string) (gating.SafetyAdvice, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return gating.SafetyAdvice{}, err
	}
	if _, err := lookupModule(s.engine.Config(), slug); err != nil {
		return gating.SafetyAdvice{}, err
	}
	return s.engine.CanSafelyProceed(ctx, slug, userID)
}

// unlockWatcher detects modules that flip from locked to unlocked across a
// write. Nothing is persisted: the comparison is request-local.
type unlockWatcher struct {
	log      *logger.Logger
	engine   *gating.Engine
	notifier ModuleNotifier
}

// snapshot returns the locked state of each slug. Evaluation failures are
// logged and the slug is left out, so no event fires for it.
func (w *unlockWatcher) snapshot(ctx context.Context, userID uuid.UUID, slugs []string) map[string]bool {
	locked := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		res, err := w.engine.CheckModuleGating(ctx, slug, userID)
		if err != nil {
			w.log.Warn("gating snapshot failed", "module_slug", slug, "user_id", userID, "error", err)
			continue
		}
		locked[slug] = res.IsLocked
	}
	return locked
}

// publish re-evaluates the slugs in before and emits ModuleUnlocked for each
// one that is now open. It returns the unlocked slugs in catalog order.
func (w *unlockWatcher) publish(ctx context.Context, userID uuid.UUID, before map[string]bool) []string {
	if w == nil || len(before) == 0 {
		return nil
	}
	cfg := w.engine.Config()
	var candidates []string
	for _, slug := range cfg.Slugs() {
		if before[slug] {
			candidates = append(candidates, slug)
		}
	}
	after := w.snapshot(ctx, userID, candidates)
	var unlocked []string
	for _, slug := range candidates {
		if isLocked, ok := after[slug]; ok && !isLocked {
			unlocked = append(unlocked, slug)
			m, _ := cfg.Module(slug)
			w.log.Info("module unlocked", "module_slug", slug, "user_id", userID)
			if w.notifier != nil {
				w.notifier.ModuleUnlocked(ctx, userID, m)
			}
		}
	}
	return unlocked
}
