package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/service"
	"lecture-sync/pkg/response"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	calendarContentType = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportLectures 导出课次表（管理员）
// GET /api/v1/export/lectures?course_id=&instructor_id=&from=&to=
func (h *ExportHandler) ExportLectures(c *gin.Context) {
	var req dto.LectureListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportLectures(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, xlsxContentType, buf.Bytes())
}

// MyCalendar 当前讲师课次的 iCalendar 订阅
// GET /api/v1/lectures/instructor/calendar.ics
func (h *ExportHandler) MyCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.InstructorCalendar(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, calendarContentType, data)
}

func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoLectures):
		response.NotFound(c, 15001, "没有符合条件的课次")
	case errors.Is(err, service.ErrInstructorNotFound):
		response.NotFound(c, 12001, "讲师不存在")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 14002, "日期格式无效")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 15002, "生成导出文件失败")
	case errors.Is(err, service.ErrStorageFailure):
		response.Error(c, http.StatusInternalServerError, 14008, "数据存储失败")
	default:
		response.InternalError(c)
	}
}
