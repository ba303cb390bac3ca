package services

import (
	"context"
	"fmt"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type UserService interface {
	// EnsureUser enrolls the caller on first sight. The enrollment instant
	// drives time-since-enrollment gates and is never changed afterwards.
	EnsureUser(ctx context.Context, email, displayName string) (*types.User, error)
	GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) EnsureUser(ctx context.Context, email, displayName string) (*types.User, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := us.userRepo.Ensure(dbctx.Context{Ctx: ctx}, userID, email, displayName)
	if err != nil {
		us.log.Error("ensure user failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := us.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user: %w", apierr.ErrNotFound)
	}
	return u, nil
}
