package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
)

// gatingStore adapts the repos to the engine's read-only query surface.
type gatingStore struct {
	users     repos.UserRepo
	progress  repos.ModuleProgressRepo
	readiness repos.ReadinessRecordRepo
	tools     repos.ToolStateRepo
}

func NewGatingStore(users repos.UserRepo, progress repos.ModuleProgressRepo, readiness repos.ReadinessRecordRepo, tools repos.ToolStateRepo) gating.Store {
	return &gatingStore{users: users, progress: progress, readiness: readiness, tools: tools}
}

func (s *gatingStore) FindModuleProgress(ctx context.Context, userID uuid.UUID, moduleSlug string) (*gating.ModuleStatus, error) {
	row, err := s.progress.GetByUserAndSlug(dbctx.Context{Ctx: ctx}, userID, moduleSlug)
	if err != nil || row == nil {
		return nil, err
	}
	return &gating.ModuleStatus{Status: row.Status}, nil
}

func (s *gatingStore) FindReadinessRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]gating.ReadinessPoint, error) {
	rows, err := s.readiness.ListSince(dbctx.Context{Ctx: ctx}, userID, since)
	if err != nil {
		return nil, err
	}
	out := make([]gating.ReadinessPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, gating.ReadinessPoint{Date: r.Date, Score: r.Score})
	}
	return out, nil
}

func (s *gatingStore) CountModuleProgress(ctx context.Context, userID uuid.UUID, status string) (int, error) {
	n, err := s.progress.CountByUser(dbctx.Context{Ctx: ctx}, userID, status)
	return int(n), err
}

func (s *gatingStore) FindUser(ctx context.Context, userID uuid.UUID) (*gating.Enrollment, error) {
	u, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil || u == nil {
		return nil, err
	}
	return &gating.Enrollment{CreatedAt: u.CreatedAt}, nil
}

func (s *gatingStore) FindToolState(ctx context.Context, userID uuid.UUID, toolType string) (*gating.ToolStateBlob, error) {
	row, err := s.tools.Get(dbctx.Context{Ctx: ctx}, userID, toolType)
	if err != nil || row == nil {
		return nil, err
	}
	return &gating.ToolStateBlob{State: []byte(row.State)}, nil
}
