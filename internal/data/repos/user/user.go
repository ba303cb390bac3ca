package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	Ensure(dbc dbctx.Context, userID uuid.UUID, email, displayName string) (*types.User, error)
	UpdateDisplayName(dbc dbctx.Context, userID uuid.UUID, displayName string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	t := dbc.Tx
	if t == nil {
		t = ur.db
	}
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns nil without error when the user does not exist.
func (ur *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	t := dbc.Tx
	if t == nil {
		t = ur.db
	}
	var u types.User
	err := t.WithContext(dbc.Ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	t := dbc.Tx
	if t == nil {
		t = ur.db
	}
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Ensure creates the user on first sight and returns the stored row. An
// existing row is never modified, so CreatedAt stays the enrollment instant.
func (ur *userRepo) Ensure(dbc dbctx.Context, userID uuid.UUID, email, displayName string) (*types.User, error) {
	t := dbc.Tx
	if t == nil {
		t = ur.db
	}
	u := &types.User{ID: userID, DisplayName: strings.TrimSpace(displayName)}
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		u.Email = &e
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, err
	}
	return ur.GetByID(dbc, userID)
}

func (ur *userRepo) UpdateDisplayName(dbc dbctx.Context, userID uuid.UUID, displayName string) error {
	t := dbc.Tx
	if t == nil {
		t = ur.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("display_name", strings.TrimSpace(displayName)).Error
}
