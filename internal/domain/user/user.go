package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an enrolled patient. CreatedAt is the enrollment instant used by
// time-since-enrollment gates.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       *string   `gorm:"uniqueIndex;column:email" json:"email,omitempty"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
