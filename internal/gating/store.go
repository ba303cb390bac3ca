package gating

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ModuleStatus is the projection of a module progress row.
type ModuleStatus struct {
	Status string
}

// ReadinessPoint is one daily readiness score.
type ReadinessPoint struct {
	Date  time.Time
	Score float64
}

// Enrollment is the projection of a user row.
type Enrollment struct {
	CreatedAt time.Time
}

// ToolStateBlob is the raw stored state of a tool.
type ToolStateBlob struct {
	State []byte
}

// Store is the read-only query surface the engine needs. Lookups return
// (nil, nil) when the row does not exist; an error means the data layer
// failed and the verdict cannot be computed.
type Store interface {
	FindModuleProgress(ctx context.Context, userID uuid.UUID, moduleSlug string) (*ModuleStatus, error)
	// FindReadinessRecords returns records dated on or after since, most recent first.
	FindReadinessRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]ReadinessPoint, error)
	// CountModuleProgress counts rows; an empty status counts every row.
	CountModuleProgress(ctx context.Context, userID uuid.UUID, status string) (int, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*Enrollment, error)
	FindToolState(ctx context.Context, userID uuid.UUID, toolType string) (*ToolStateBlob, error)
}

const StatusCompleted = "completed"
