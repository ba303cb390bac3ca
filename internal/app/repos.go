package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type Repos struct {
	User           repos.UserRepo
	ModuleProgress repos.ModuleProgressRepo
	Readiness      repos.ReadinessRecordRepo
	ToolState      repos.ToolStateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		ModuleProgress: repos.NewModuleProgressRepo(db, log),
		Readiness:      repos.NewReadinessRecordRepo(db, log),
		ToolState:      repos.NewToolStateRepo(db, log),
	}
}
