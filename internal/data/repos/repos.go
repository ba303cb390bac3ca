package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/repos/learning"
	"github.com/yungbote/clearpath-backend/internal/data/repos/tools"
	"github.com/yungbote/clearpath-backend/internal/data/repos/tracking"
	"github.com/yungbote/clearpath-backend/internal/data/repos/user"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type ModuleProgressRepo = learning.ModuleProgressRepo

type ReadinessRecordRepo = tracking.ReadinessRecordRepo

type ToolStateRepo = tools.ToolStateRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return learning.NewModuleProgressRepo(db, baseLog)
}

func NewReadinessRecordRepo(db *gorm.DB, baseLog *logger.Logger) ReadinessRecordRepo {
	return tracking.NewReadinessRecordRepo(db, baseLog)
}

func NewToolStateRepo(db *gorm.DB, baseLog *logger.Logger) ToolStateRepo {
	return tools.NewToolStateRepo(db, baseLog)
}
