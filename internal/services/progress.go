package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

// ErrModuleLocked is returned when progress is recorded on a gated module.
var ErrModuleLocked = errors.New("module locked")

// ProgressUpdate is the result of a progress write.
type ProgressUpdate struct {
	Progress *types.ModuleProgress `json:"progress"`
	Unlocked []string              `json:"unlocked"`
}

type ProgressService interface {
	StartModule(ctx context.Context, slug string) (*ProgressUpdate, error)
	CompleteLesson(ctx context.Context, slug, lessonID string) (*ProgressUpdate, error)
	CompleteModule(ctx context.Context, slug string) (*ProgressUpdate, error)
	ListProgress(ctx context.Context) ([]*types.ModuleProgress, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	progress repos.ModuleProgressRepo
	engine   *gating.Engine
	watcher  *unlockWatcher
	notifier ModuleNotifier
	now      func() time.Time
}

func NewProgressService(db *gorm.DB, log *logger.Logger, progress repos.ModuleProgressRepo, engine *gating.Engine, notifier ModuleNotifier) ProgressService {
	serviceLog := log.With("service", "ProgressService")
	return &progressService{
		db:       db,
		log:      serviceLog,
		progress: progress,
		engine:   engine,
		watcher:  &unlockWatcher{log: serviceLog, engine: engine, notifier: notifier},
		notifier: notifier,
		now:      time.Now,
	}
}

// ensureUnlocked rejects writes on a module the user cannot open yet.
func (s *progressService) ensureUnlocked(ctx context.Context, userID uuid.UUID, slug string) error {
	res, err := s.engine.CheckModuleGating(ctx, slug, userID)
	if err != nil {
		return err
	}
	if res.IsLocked {
		return apierr.New(http.StatusForbidden, "module_locked", fmt.Errorf("%w: %s", ErrModuleLocked, res.LockReason))
	}
	return nil
}

// mutate loads (or initializes) the user's row for slug, applies fn and
// saves it in one transaction. Catalog modules are re-evaluated afterwards so
// newly opened modules are announced.
func (s *progressService) mutate(ctx context.Context, slug string, fn func(row *types.ModuleProgress, m gating.Module)) (*ProgressUpdate, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := lookupModule(s.engine.Config(), slug)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnlocked(ctx, userID, slug); err != nil {
		return nil, err
	}

	before := s.watcher.snapshot(ctx, userID, s.engine.Config().Slugs())
	var (
		out          *types.ModuleProgress
		wasCompleted bool
	)
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := s.progress.GetByUserAndSlug(dbc, userID, slug)
		if err != nil {
			return err
		}
		if row == nil {
			row = &types.ModuleProgress{UserID: userID, ModuleSlug: slug, Status: types.ModuleStatusNotStarted}
		}
		wasCompleted = row.Status == types.ModuleStatusCompleted
		fn(row, m)
		if err := s.progress.Upsert(dbc, row); err != nil {
			return fmt.Errorf("upsert module progress: %w", err)
		}
		saved, err := s.progress.GetByUserAndSlug(dbc, userID, slug)
		if err != nil {
			return err
		}
		out = saved
		return nil
	}); err != nil {
		s.log.Error("module progress write failed", "user_id", userID, "module_slug", slug, "error", err)
		return nil, err
	}

	if !wasCompleted && out.Status == types.ModuleStatusCompleted && s.notifier != nil {
		s.notifier.ModuleCompleted(ctx, userID, m)
	}
	unlocked := s.watcher.publish(ctx, userID, before)
	if unlocked == nil {
		unlocked = []string{}
	}
	return &ProgressUpdate{Progress: out, Unlocked: unlocked}, nil
}

func (s *progressService) start(row *types.ModuleProgress) {
	if row.Status == types.ModuleStatusNotStarted || row.Status == "" {
		now := s.now().UTC()
		row.Status = types.ModuleStatusInProgress
		row.StartedAt = &now
	}
}

func (s *progressService) complete(row *types.ModuleProgress) {
	s.start(row)
	if row.Status != types.ModuleStatusCompleted {
		now := s.now().UTC()
		row.Status = types.ModuleStatusCompleted
		row.CompletedAt = &now
	}
}

func (s *progressService) StartModule(ctx context.Context, slug string) (*ProgressUpdate, error) {
	return s.mutate(ctx, slug, func(row *types.ModuleProgress, _ gating.Module) {
		s.start(row)
	})
}

// CompleteLesson records the lesson and completes the module once every
// catalog lesson of it is done.
func (s *progressService) CompleteLesson(ctx context.Context, slug, lessonID string) (*ProgressUpdate, error) {
	if m, ok := s.engine.Config().Module(slug); ok && !hasLesson(m, lessonID) {
		return nil, fmt.Errorf("lesson %q in module %s: %w", lessonID, slug, apierr.ErrNotFound)
	}
	return s.mutate(ctx, slug, func(row *types.ModuleProgress, m gating.Module) {
		s.start(row)
		done := map[string]bool{}
		ids := row.LessonIDs()
		for _, id := range ids {
			done[id] = true
		}
		if !done[lessonID] {
			ids = append(ids, lessonID)
			done[lessonID] = true
		}
		row.SetLessonIDs(ids)
		for _, l := range m.Lessons {
			if !done[l] {
				return
			}
		}
		s.complete(row)
	})
}

func (s *progressService) CompleteModule(ctx context.Context, slug string) (*ProgressUpdate, error) {
	return s.mutate(ctx, slug, func(row *types.ModuleProgress, _ gating.Module) {
		s.complete(row)
	})
}

func (s *progressService) ListProgress(ctx context.Context) ([]*types.ModuleProgress, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.progress.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("list module progress: %w", err)
	}
	return rows, nil
}

func hasLesson(m gating.Module, lessonID string) bool {
	for _, l := range m.Lessons {
		if l == lessonID {
			return true
		}
	}
	return false
}
