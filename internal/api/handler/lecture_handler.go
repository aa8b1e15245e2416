package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/service"
	"lecture-sync/pkg/response"
)

// LectureHandler 课次排课 HTTP 处理器
type LectureHandler struct {
	lectureSvc service.LectureService
}

// NewLectureHandler 创建 LectureHandler
func NewLectureHandler(lectureSvc service.LectureService) *LectureHandler {
	return &LectureHandler{lectureSvc: lectureSvc}
}

// ScheduleLecture 排课
// POST /api/v1/lectures
func (h *LectureHandler) ScheduleLecture(c *gin.Context) {
	var req dto.ScheduleLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	lecture, err := h.lectureSvc.Schedule(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.Created(c, lecture)
}

// ListLectures 课次列表（管理员）
// GET /api/v1/lectures?course_id=&instructor_id=&from=&to=
func (h *LectureHandler) ListLectures(c *gin.Context) {
	var req dto.LectureListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.lectureSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListMyLectures 当前讲师的全部课次
// GET /api/v1/lectures/instructor
func (h *LectureHandler) ListMyLectures(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	h.listInstructorLectures(c, userID)
}

// ListInstructorLectures 指定讲师的全部课次（管理员）
// GET /api/v1/instructors/:id/lectures
func (h *LectureHandler) ListInstructorLectures(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "讲师ID不能为空")
		return
	}

	h.listInstructorLectures(c, id)
}

func (h *LectureHandler) listInstructorLectures(c *gin.Context, instructorID string) {
	lectures, err := h.lectureSvc.ListByInstructor(c.Request.Context(), instructorID)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, gin.H{"list": lectures})
}

// GetLecture 课次详情（管理员或该课次讲师）
// GET /api/v1/lectures/:id
func (h *LectureHandler) GetLecture(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	lecture, err := h.lectureSvc.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, lecture)
}

// UpdateLecture 修改课次说明与地点
// PUT /api/v1/lectures/:id
func (h *LectureHandler) UpdateLecture(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.UpdateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	lecture, err := h.lectureSvc.UpdateDetails(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, lecture)
}

// DeleteLecture 删除课次
// DELETE /api/v1/lectures/:id
func (h *LectureHandler) DeleteLecture(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	if err := h.lectureSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleLectureError 统一处理课次模块业务错误
func (h *LectureHandler) handleLectureError(c *gin.Context, err error) {
	var conflict *service.SchedulingConflictError

	switch {
	case errors.As(err, &conflict):
		response.Conflict(c, 14004, "讲师在该时间段已有课次",
			fmt.Sprintf("%s %s-%s (lecture %s)", conflict.Date, conflict.StartTime, conflict.EndTime, conflict.LectureID))
	case errors.Is(err, service.ErrSchedulingConflict):
		response.Conflict(c, 14004, "讲师在该时间段已有课次", "")
	case errors.Is(err, service.ErrLectureNotFound):
		response.NotFound(c, 14001, "课次不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 13001, "课程不存在")
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 13002, "批次不存在")
	case errors.Is(err, service.ErrInstructorNotFound):
		response.NotFound(c, 12001, "讲师不存在")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 14002, "日期格式无效")
	case errors.Is(err, service.ErrInvalidRange):
		response.BadRequest(c, 14003, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrLectureImmutable):
		response.Unprocessable(c, 14005, "课次创建后讲师、日期、时间段与地点不可修改")
	case errors.Is(err, service.ErrLectureForbidden):
		response.Forbidden(c, 14006, "无权查看该课次")
	case errors.Is(err, service.ErrBookingBusy):
		response.ServiceUnavailable(c, 14007, "该讲师正在排课，请稍后重试")
	case errors.Is(err, service.ErrStorageFailure):
		response.Error(c, http.StatusInternalServerError, 14008, "数据存储失败")
	default:
		response.InternalError(c)
	}
}
