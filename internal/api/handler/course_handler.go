package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/service"
	"lecture-sync/pkg/response"
)

// maxCourseImageSize 课程封面上传上限
const maxCourseImageSize = 5 << 20

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 获取课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	courses, total, err := h.courseSvc.List(c.Request.Context(), &page)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OKPage(c, courses, total, page.GetPage(), page.GetPageSize())
}

// GetCourse 获取课程详情（含批次）
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	course, err := h.courseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// CreateCourse 创建课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// UpdateCourse 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// UploadImage 上传课程封面
// POST /api/v1/courses/:id/image  (multipart, 字段名 image)
func (h *CourseHandler) UploadImage(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, 10001, "缺少图片文件")
		return
	}
	if fh.Size > maxCourseImageSize {
		response.BadRequest(c, 13006, "图片不能超过 5MB")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "读取图片失败")
		return
	}
	defer f.Close()

	course, err := h.courseSvc.UploadImage(c.Request.Context(), id, f, fh.Size, fh.Header.Get("Content-Type"), callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// AddBatch 为课程新增批次
// POST /api/v1/courses/:id/batches
func (h *CourseHandler) AddBatch(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.BatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	batch, err := h.courseSvc.AddBatch(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, batch)
}

// UpdateBatch 更新批次
// PUT /api/v1/courses/:id/batches/:batchId
func (h *CourseHandler) UpdateBatch(c *gin.Context) {
	id, batchID := c.Param("id"), c.Param("batchId")
	if id == "" || batchID == "" {
		response.BadRequest(c, 10001, "课程ID与批次ID不能为空")
		return
	}

	var req dto.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	batch, err := h.courseSvc.UpdateBatch(c.Request.Context(), id, batchID, &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, batch)
}

// DeleteBatch 删除批次
// DELETE /api/v1/courses/:id/batches/:batchId
func (h *CourseHandler) DeleteBatch(c *gin.Context) {
	id, batchID := c.Param("id"), c.Param("batchId")
	if id == "" || batchID == "" {
		response.BadRequest(c, 10001, "课程ID与批次ID不能为空")
		return
	}

	if err := h.courseSvc.DeleteBatch(c.Request.Context(), id, batchID); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 13001, "课程不存在")
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 13002, "批次不存在")
	case errors.Is(err, service.ErrCourseVersionConflict):
		response.Conflict(c, 13003, "课程已被其他操作修改，请刷新后重试", "")
	case errors.Is(err, service.ErrStorageDisabled):
		response.ServiceUnavailable(c, 13004, "未启用对象存储")
	case errors.Is(err, service.ErrInvalidImage):
		response.BadRequest(c, 13005, "仅支持 jpg/png/webp 图片")
	case errors.Is(err, service.ErrStorageFailure):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
