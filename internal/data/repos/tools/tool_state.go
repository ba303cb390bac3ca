package tools

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type ToolStateRepo interface {
	Upsert(dbc dbctx.Context, row *types.ToolState) error
	Get(dbc dbctx.Context, userID uuid.UUID, toolType string) (*types.ToolState, error)
}

type toolStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewToolStateRepo(db *gorm.DB, baseLog *logger.Logger) ToolStateRepo {
	return &toolStateRepo{
		db:  db,
		log: baseLog.With("repo", "ToolStateRepo"),
	}
}

func (r *toolStateRepo) Upsert(dbc dbctx.Context, row *types.ToolState) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.ToolType == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "tool_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
		}).
		Create(row).Error
}

// Get returns nil without error when the tool has no saved state.
func (r *toolStateRepo) Get(dbc dbctx.Context, userID uuid.UUID, toolType string) (*types.ToolState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ToolState
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND tool_type = ?", userID, toolType).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
