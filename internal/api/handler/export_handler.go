package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	calendarContentType = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportSectionGrid 导出班级课表
// GET /api/v1/routines/section/export?classLevel=&sectionName=
func (h *ExportHandler) ExportSectionGrid(c *gin.Context) {
	var q dto.SectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 16001, "classLevel and sectionName are required")
		return
	}

	buf, filename, err := h.exportSvc.ExportSectionGrid(c.Request.Context(), q.ClassLevel, q.SectionName)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportSectionResults 导出班级成绩排名
// GET /api/v1/exams/results/export?classLevel=&sectionName=&category=
func (h *ExportHandler) ExportSectionResults(c *gin.Context) {
	var q dto.ResultsExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 16001, "classLevel and sectionName are required and category must be a valid exam category")
		return
	}

	buf, filename, err := h.exportSvc.ExportSectionResults(c.Request.Context(), q.ClassLevel, q.SectionName, q.Category)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportTeacherCalendar 导出教师周课表为 iCalendar
// GET /api/v1/routines/teacher/:teacherId/ics?from=
func (h *ExportHandler) ExportTeacherCalendar(c *gin.Context) {
	var q dto.TeacherCalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 16001, "from must be a date in YYYY-MM-DD format")
		return
	}
	var from time.Time
	if q.From != "" {
		from, _ = time.Parse(dto.DateLayout, q.From)
	}

	buf, filename, err := h.calendarSvc.ExportTeacherCalendar(c.Request.Context(), c.Param("teacherId"), from)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, calendarContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleLookupError(c, err, 16101) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoResults):
		response.NotFound(c, 16102, "No results recorded for this section and category")
	default:
		response.InternalError(c)
	}
}
