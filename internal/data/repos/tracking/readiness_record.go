package tracking

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clearpath-backend/internal/domain"
	domaintracking "github.com/yungbote/clearpath-backend/internal/domain/tracking"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type ReadinessRecordRepo interface {
	UpsertByDate(dbc dbctx.Context, row *types.ReadinessRecord) error
	GetByDate(dbc dbctx.Context, userID uuid.UUID, date time.Time) (*types.ReadinessRecord, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ReadinessRecord, error)
}

type readinessRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReadinessRecordRepo(db *gorm.DB, baseLog *logger.Logger) ReadinessRecordRepo {
	return &readinessRecordRepo{
		db:  db,
		log: baseLog.With("repo", "ReadinessRecordRepo"),
	}
}

// UpsertByDate keeps one record per user per calendar day; a second write for
// the same day replaces score, sub-metrics and notes.
func (r *readinessRecordRepo) UpsertByDate(dbc dbctx.Context, row *types.ReadinessRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Date = domaintracking.Day(row.Date)
	row.UpdatedAt = time.Now().UTC()

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "record_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score",
				"sub_metrics",
				"notes",
				"updated_at",
			}),
		}).
		Create(row).Error
}

// GetByDate returns nil without error when the day has no record.
func (r *readinessRecordRepo) GetByDate(dbc dbctx.Context, userID uuid.UUID, date time.Time) (*types.ReadinessRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ReadinessRecord
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND record_date = ?", userID, domaintracking.Day(date)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListSince returns records dated on or after since, most recent first.
func (r *readinessRecordRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ReadinessRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ReadinessRecord
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND record_date >= ?", userID, domaintracking.Day(since)).
		Order("record_date DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
