package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// RoutineHandler 课表 HTTP 处理器
type RoutineHandler struct {
	routineSvc service.RoutineService
}

// NewRoutineHandler 创建 RoutineHandler
func NewRoutineHandler(routineSvc service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineSvc: routineSvc}
}

// AssignSlot 排课（含教师冲突检测）
// POST /api/v1/routines/update
func (h *RoutineHandler) AssignSlot(c *gin.Context) {
	var req dto.AssignSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "sectionId, subjectClassId, a school day and a period are required")
		return
	}

	slot, err := h.routineSvc.AssignSlot(c.Request.Context(), &req)
	if err != nil {
		h.handleRoutineError(c, err)
		return
	}

	response.OKWithMessage(c, "Routine updated", slot)
}

// ClearSlot 清空课表格子
// DELETE /api/v1/routines/:id
func (h *RoutineHandler) ClearSlot(c *gin.Context) {
	if err := h.routineSvc.ClearSlot(c.Request.Context(), c.Param("id")); err != nil {
		h.handleRoutineError(c, err)
		return
	}

	response.OKWithMessage(c, "Slot cleared", nil)
}

// GetSectionGrid 班级课表
// GET /api/v1/routines/section?classLevel=&sectionName=
func (h *RoutineHandler) GetSectionGrid(c *gin.Context) {
	var q dto.SectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 13001, "classLevel and sectionName are required")
		return
	}

	grid, err := h.routineSvc.GetSectionGrid(c.Request.Context(), q.ClassLevel, q.SectionName)
	if err != nil {
		h.handleRoutineError(c, err)
		return
	}

	response.OK(c, grid)
}

// GetTeacherRoutine 教师周课表
// GET /api/v1/routines/teacher/:teacherId
func (h *RoutineHandler) GetTeacherRoutine(c *gin.Context) {
	list, err := h.routineSvc.GetTeacherRoutine(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.handleRoutineError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetStudentRoutine 学生所在班级的课表
// GET /api/v1/routines/student/:studentId
func (h *RoutineHandler) GetStudentRoutine(c *gin.Context) {
	studentID := c.Param("studentId")
	if !CanAccessUser(c, studentID) {
		return
	}

	grid, err := h.routineSvc.GetStudentRoutine(c.Request.Context(), studentID)
	if err != nil {
		h.handleRoutineError(c, err)
		return
	}

	response.OK(c, grid)
}

func (h *RoutineHandler) handleRoutineError(c *gin.Context, err error) {
	var conflict *service.TeacherConflictError
	if errors.As(err, &conflict) {
		response.Conflict(c, 13201, conflict.Error())
		return
	}
	if handleLookupError(c, err, 13103) {
		return
	}
	switch {
	case errors.Is(err, service.ErrBreakPeriod):
		response.BadRequest(c, 13002, "Cannot assign classes during the break period")
	case errors.Is(err, service.ErrInvalidSlot):
		response.BadRequest(c, 13003, "Day or period is outside the school timetable")
	case errors.Is(err, service.ErrSubjectClassSectionMismatch):
		response.BadRequest(c, 13004, "Subject class does not belong to this section")
	case errors.Is(err, service.ErrNoTeacherAssigned):
		response.BadRequest(c, 13005, "No teacher is assigned to this subject yet")
	case errors.Is(err, service.ErrRoutineSlotNotFound):
		response.NotFound(c, 13102, "Routine slot not found")
	default:
		response.InternalError(c)
	}
}
