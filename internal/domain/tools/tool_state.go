package tools

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const ToolTypeBinderTolerance = "binder-tolerance"

// ToolState stores the latest saved state of an interactive tool for a user.
type ToolState struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tool_state_identity,priority:1" json:"user_id"`
	ToolType string    `gorm:"column:tool_type;type:text;not null;uniqueIndex:idx_tool_state_identity,priority:2" json:"tool_type"`

	State datatypes.JSON `gorm:"column:state;type:jsonb;not null" json:"state"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ToolState) TableName() string { return "tool_state" }
