package service

import (
	"go.uber.org/zap"

	"lecture-sync/config"
	"lecture-sync/internal/repository"
	"lecture-sync/pkg/cache"
	"lecture-sync/pkg/jwt"
	"lecture-sync/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Course     CourseService
	Instructor InstructorService
	Lecture    LectureService
	Export     ExportService
}

// Deps 构建 Service 所需的基础设施；Blacklist 与 Images 可为 nil
type Deps struct {
	Repo      *repository.Repository
	JWT       *jwt.Manager
	Locker    BookingLocker
	Cache     *cache.Cache
	Blacklist TokenBlacklist
	Images    storage.ImageStore
}

// NewService 创建 Service 聚合
func NewService(cfg *config.Config, deps Deps, logger *zap.Logger) *Service {
	return &Service{
		Auth:       NewAuthService(deps.Repo, deps.JWT, deps.Blacklist, logger),
		Course:     NewCourseService(deps.Repo, deps.Cache, deps.Images, logger),
		Instructor: NewInstructorService(deps.Repo, logger),
		Lecture:    NewLectureService(&cfg.Scheduler, deps.Repo, deps.Locker, logger),
		Export:     NewExportService(&cfg.Scheduler, deps.Repo, logger),
	}
}
