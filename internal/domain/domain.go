package domain

import (
	"github.com/yungbote/clearpath-backend/internal/domain/learning"
	"github.com/yungbote/clearpath-backend/internal/domain/tools"
	"github.com/yungbote/clearpath-backend/internal/domain/tracking"
	"github.com/yungbote/clearpath-backend/internal/domain/user"
)

const (
	ModuleStatusNotStarted = learning.ModuleStatusNotStarted
	ModuleStatusInProgress = learning.ModuleStatusInProgress
	ModuleStatusCompleted  = learning.ModuleStatusCompleted

	ToolTypeBinderTolerance = tools.ToolTypeBinderTolerance
)

type User = user.User

type ModuleProgress = learning.ModuleProgress

type ReadinessRecord = tracking.ReadinessRecord

type ToolState = tools.ToolState
type BinderToleranceState = tools.BinderToleranceState

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&ModuleProgress{},
		&ReadinessRecord{},
		&ToolState{},
	}
}
