package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Pathways scored 1..10 on each daily readiness entry.
var Pathways = []string{"bowel", "hydration", "liver", "lymph", "sweating", "kidney", "sleep"}

const (
	MinScore     = 0
	MaxScore     = 100
	MinSubMetric = 1
	MaxSubMetric = 10
)

// ReadinessRecord is the composite drainage-readiness score for one user on
// one calendar day. Date is normalized to UTC midnight.
type ReadinessRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_readiness_user_date,priority:1" json:"user_id"`
	Date   time.Time `gorm:"column:record_date;type:date;not null;uniqueIndex:idx_readiness_user_date,priority:2;index" json:"date"`

	Score      float64        `gorm:"column:score;not null" json:"score"`
	SubMetrics datatypes.JSON `gorm:"column:sub_metrics;type:jsonb" json:"sub_metrics,omitempty"`
	Notes      string         `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ReadinessRecord) TableName() string { return "readiness_record" }

// Day truncates t to the UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
