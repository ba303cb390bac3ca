package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/datatypes"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/domain/tools"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type ToolStateService interface {
	SaveBinderTolerance(ctx context.Context, state tools.BinderToleranceState) (*tools.BinderToleranceState, []string, error)
	GetBinderTolerance(ctx context.Context) (*tools.BinderToleranceState, error)
}

type toolStateService struct {
	log     *logger.Logger
	tools   repos.ToolStateRepo
	watcher *unlockWatcher
}

func NewToolStateService(log *logger.Logger, toolRepo repos.ToolStateRepo, engine *gating.Engine, notifier ModuleNotifier) ToolStateService {
	serviceLog := log.With("service", "ToolStateService")
	return &toolStateService{
		log:     serviceLog,
		tools:   toolRepo,
		watcher: &unlockWatcher{log: serviceLog, engine: engine, notifier: notifier},
	}
}

func (s *toolStateService) SaveBinderTolerance(ctx context.Context, state tools.BinderToleranceState) (*tools.BinderToleranceState, []string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	raw, err := tools.EncodeBinderTolerance(state)
	if err != nil {
		return nil, nil, apierr.Invalid("%v", err)
	}

	watched := s.watcher.engine.Config().ModulesWithRule(gating.RuleCustom)
	before := s.watcher.snapshot(ctx, userID, watched)

	row := &types.ToolState{UserID: userID, ToolType: tools.ToolTypeBinderTolerance, State: datatypes.JSON(raw)}
	if err := s.tools.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		s.log.Error("save binder tolerance failed", "user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("save binder tolerance: %w", err)
	}
	unlocked := s.watcher.publish(ctx, userID, before)
	if unlocked == nil {
		unlocked = []string{}
	}
	return &state, unlocked, nil
}

func (s *toolStateService) GetBinderTolerance(ctx context.Context) (*tools.BinderToleranceState, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.tools.Get(dbctx.Context{Ctx: ctx}, userID, tools.ToolTypeBinderTolerance)
	if err != nil {
		return nil, fmt.Errorf("get binder tolerance: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("binder tolerance: %w", apierr.ErrNotFound)
	}
	state, err := tools.DecodeBinderTolerance(row.State)
	if err != nil {
		if errors.Is(err, tools.ErrMalformedState) {
			s.log.Warn("stored binder tolerance unreadable", "user_id", userID, "error", err)
			return nil, apierr.New(http.StatusUnprocessableEntity, "malformed_state", err)
		}
		return nil, err
	}
	return &state, nil
}
