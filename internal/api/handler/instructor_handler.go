package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/service"
	"lecture-sync/pkg/response"
)

// InstructorHandler 讲师管理 HTTP 处理器（管理员）
type InstructorHandler struct {
	instructorSvc service.InstructorService
}

// NewInstructorHandler 创建 InstructorHandler
func NewInstructorHandler(instructorSvc service.InstructorService) *InstructorHandler {
	return &InstructorHandler{instructorSvc: instructorSvc}
}

// ListInstructors 获取讲师列表
// GET /api/v1/instructors
func (h *InstructorHandler) ListInstructors(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.instructorSvc.List(c.Request.Context(), &page)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// GetInstructor 获取讲师详情
// GET /api/v1/instructors/:id
func (h *InstructorHandler) GetInstructor(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "讲师ID不能为空")
		return
	}

	instructor, err := h.instructorSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, instructor)
}

// CreateInstructor 创建讲师账号
// POST /api/v1/instructors
func (h *InstructorHandler) CreateInstructor(c *gin.Context) {
	var req dto.CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	instructor, err := h.instructorSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.Created(c, instructor)
}

// UpdateInstructor 更新讲师资料
// PUT /api/v1/instructors/:id
func (h *InstructorHandler) UpdateInstructor(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "讲师ID不能为空")
		return
	}

	var req dto.UpdateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	instructor, err := h.instructorSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, instructor)
}

// DeleteInstructor 删除讲师
// DELETE /api/v1/instructors/:id
func (h *InstructorHandler) DeleteInstructor(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "讲师ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.instructorSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleInstructorError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *InstructorHandler) handleInstructorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInstructorNotFound):
		response.NotFound(c, 12001, "讲师不存在")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 12002, "邮箱已被使用", "")
	default:
		response.InternalError(c)
	}
}
