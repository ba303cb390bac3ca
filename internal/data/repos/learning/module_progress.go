package learning

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

type ModuleProgressRepo interface {
	Upsert(dbc dbctx.Context, row *types.ModuleProgress) error
	GetByUserAndSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.ModuleProgress, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ModuleProgress, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID, status string) (int64, error)
}

type moduleProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return &moduleProgressRepo{
		db:  db,
		log: baseLog.With("repo", "ModuleProgressRepo"),
	}
}

// Upsert writes the row keyed by (user_id, module_slug).
func (r *moduleProgressRepo) Upsert(dbc dbctx.Context, row *types.ModuleProgress) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.ModuleSlug == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if len(row.CompletedLessons) == 0 {
		row.SetLessonIDs(nil)
	}
	row.UpdatedAt = time.Now().UTC()

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "module_slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"completed_lessons",
				"started_at",
				"completed_at",
				"updated_at",
			}),
		}).
		Create(row).Error
}

// GetByUserAndSlug returns nil without error when no row exists.
func (r *moduleProgressRepo) GetByUserAndSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.ModuleProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ModuleProgress
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND module_slug = ?", userID, slug).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *moduleProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ModuleProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ModuleProgress
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("module_slug ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByUser counts the user's rows; an empty status counts every row.
func (r *moduleProgressRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID, status string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.ModuleProgress{}).
		Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
