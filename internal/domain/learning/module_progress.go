package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ModuleStatusNotStarted = "not_started"
	ModuleStatusInProgress = "in_progress"
	ModuleStatusCompleted  = "completed"
)

// ModuleProgress is one row per (user, module). Rows are created on first
// interaction and never deleted.
type ModuleProgress struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_identity,priority:1;index" json:"user_id"`
	ModuleSlug string    `gorm:"column:module_slug;type:text;not null;uniqueIndex:idx_module_progress_identity,priority:2" json:"module_slug"`

	Status           string         `gorm:"column:status;type:text;not null;index" json:"status"`
	CompletedLessons datatypes.JSON `gorm:"column:completed_lessons;type:jsonb" json:"completed_lessons,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

// LessonIDs decodes CompletedLessons; malformed or empty JSON yields nil.
func (m *ModuleProgress) LessonIDs() []string {
	if m == nil || len(m.CompletedLessons) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(m.CompletedLessons, &out); err != nil {
		return nil
	}
	return out
}

// SetLessonIDs replaces CompletedLessons.
func (m *ModuleProgress) SetLessonIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	m.CompletedLessons = datatypes.JSON(raw)
}
