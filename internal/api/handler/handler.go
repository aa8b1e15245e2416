package handler

import "lecture-sync/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Course     *CourseHandler
	Instructor *InstructorHandler
	Lecture    *LectureHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Course:     NewCourseHandler(svc.Course),
		Instructor: NewInstructorHandler(svc.Instructor),
		Lecture:    NewLectureHandler(svc.Lecture),
		Export:     NewExportHandler(svc.Export),
	}
}
