package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// AttendanceHandler 考勤 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// GetSheet 某班某天的考勤表
// GET /api/v1/attendance/sheet?classLevel=&sectionName=&date=
func (h *AttendanceHandler) GetSheet(c *gin.Context) {
	var q dto.AttendanceSheetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 15001, "classLevel, sectionName and date (YYYY-MM-DD) are required")
		return
	}

	sheet, err := h.attendanceSvc.GetSheet(c.Request.Context(), q.ClassLevel, q.SectionName, q.Date)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, sheet)
}

// Submit 提交全班考勤，同一天重复提交覆盖旧记录
// POST /api/v1/attendance/submit
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "sectionId, date and at least one record are required")
		return
	}

	saved, err := h.attendanceSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKWithMessage(c, "Attendance saved", gin.H{"saved": saved})
}

// GetStudentStats 学生出勤统计
// GET /api/v1/attendance/student/:studentId
func (h *AttendanceHandler) GetStudentStats(c *gin.Context) {
	studentID := c.Param("studentId")
	if !CanAccessUser(c, studentID) {
		return
	}

	stats, err := h.attendanceSvc.GetStudentStats(c.Request.Context(), studentID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetMonthlyReport 班级月度考勤报表
// GET /api/v1/attendance/report?classLevel=&sectionName=&year=&month=
func (h *AttendanceHandler) GetMonthlyReport(c *gin.Context) {
	var q dto.MonthlyReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 15001, "classLevel, sectionName, year and month are required")
		return
	}

	report, err := h.attendanceSvc.GetMonthlyReport(c.Request.Context(), &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, report)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	if handleLookupError(c, err, 15101) {
		return
	}
	switch {
	case errors.Is(err, service.ErrDuplicateStudent):
		response.BadRequest(c, 15002, "A student appears more than once in the submission")
	case errors.Is(err, service.ErrStudentNotInSection):
		response.BadRequest(c, 15003, "A student in the submission is not enrolled in this section")
	default:
		response.InternalError(c)
	}
}
