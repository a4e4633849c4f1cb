package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// AcademicHandler 授课分配 HTTP 处理器
type AcademicHandler struct {
	academicSvc service.AcademicService
}

// NewAcademicHandler 创建 AcademicHandler
func NewAcademicHandler(academicSvc service.AcademicService) *AcademicHandler {
	return &AcademicHandler{academicSvc: academicSvc}
}

// AssignSubject 为班级分配课程与任课教师
// POST /api/v1/courses/assign
func (h *AcademicHandler) AssignSubject(c *gin.Context) {
	var req dto.AssignSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 11001, "classLevel, sectionName, courseId and teacherId are required")
		return
	}

	sc, err := h.academicSvc.AssignSubject(c.Request.Context(), &req)
	if err != nil {
		h.handleAcademicError(c, err)
		return
	}

	response.OKWithMessage(c, "Subject assigned", sc)
}

// ListAssignments 当前学年全部授课分配
// GET /api/v1/courses/assignments
func (h *AcademicHandler) ListAssignments(c *gin.Context) {
	list, err := h.academicSvc.ListAssignments(c.Request.Context())
	if err != nil {
		h.handleAcademicError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTeacherAssignments 教师的授课列表
// GET /api/v1/courses/teacher/:teacherId
func (h *AcademicHandler) ListTeacherAssignments(c *gin.Context) {
	list, err := h.academicSvc.ListTeacherAssignments(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.handleAcademicError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListStudentSubjects 学生本学年的课程列表
// GET /api/v1/exams/student-subjects/:studentId
func (h *AcademicHandler) ListStudentSubjects(c *gin.Context) {
	studentID := c.Param("studentId")
	if !CanAccessUser(c, studentID) {
		return
	}

	list, err := h.academicSvc.ListStudentSubjects(c.Request.Context(), studentID)
	if err != nil {
		h.handleAcademicError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *AcademicHandler) handleAcademicError(c *gin.Context, err error) {
	if handleLookupError(c, err, 11101) {
		return
	}
	var conflict *service.TeacherConflictError
	if errors.As(err, &conflict) {
		response.Conflict(c, 11201, conflict.Error())
		return
	}
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 11102, "Course not found")
	case errors.Is(err, service.ErrCourseLevelMismatch):
		response.BadRequest(c, 11002, "Course does not belong to this class level")
	default:
		response.InternalError(c)
	}
}
