package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// ExamHandler 考试与成绩模块 HTTP 处理器
type ExamHandler struct {
	examSvc   service.ExamService
	resultSvc service.ResultService
}

// NewExamHandler 创建 ExamHandler
func NewExamHandler(examSvc service.ExamService, resultSvc service.ResultService) *ExamHandler {
	return &ExamHandler{examSvc: examSvc, resultSvc: resultSvc}
}

// GetFinalResult 学生成绩单与班内排名
// GET /api/v1/exams/final-result?studentId=&category=
func (h *ExamHandler) GetFinalResult(c *gin.Context) {
	var q dto.FinalResultQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 12001, "studentId is required and category must be a valid exam category")
		return
	}
	if !CanAccessUser(c, q.StudentID) {
		return
	}

	result, err := h.resultSvc.GetFinalResult(c.Request.Context(), q.StudentID, q.Category)
	if err != nil {
		h.handleExamError(c, err, 12101)
		return
	}

	response.OK(c, result)
}

// CreateAssessment 创建考试
// POST /api/v1/exams
func (h *ExamHandler) CreateAssessment(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "Invalid assessment payload")
		return
	}

	assessment, err := h.examSvc.CreateAssessment(c.Request.Context(), &req)
	if err != nil {
		h.handleExamError(c, err, 14101)
		return
	}

	response.Created(c, "Exam created", assessment)
}

// ListAssessments 某门课的考试列表
// GET /api/v1/exams/subject/:subjectClassId
func (h *ExamHandler) ListAssessments(c *gin.Context) {
	list, err := h.examSvc.ListAssessments(c.Request.Context(), c.Param("subjectClassId"))
	if err != nil {
		h.handleExamError(c, err, 14101)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetMarksSheet 成绩录入表
// GET /api/v1/exams/sheet/:assessmentId
func (h *ExamHandler) GetMarksSheet(c *gin.Context) {
	sheet, err := h.examSvc.GetMarksSheet(c.Request.Context(), c.Param("assessmentId"))
	if err != nil {
		h.handleExamError(c, err, 14101)
		return
	}

	response.OK(c, sheet)
}

// SubmitMarks 批量提交成绩
// POST /api/v1/exams/marks
func (h *ExamHandler) SubmitMarks(c *gin.Context) {
	var req dto.SubmitMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "Invalid marks payload")
		return
	}

	result, err := h.examSvc.SubmitMarks(c.Request.Context(), &req)
	if err != nil {
		h.handleExamError(c, err, 14101)
		return
	}

	response.OKWithMessage(c, "Marks saved", result)
}

// GetLiveMarks 学生某门课的历次成绩
// GET /api/v1/exams/live-result?studentId=&subjectClassId=
func (h *ExamHandler) GetLiveMarks(c *gin.Context) {
	var q dto.LiveMarksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 14001, "studentId and subjectClassId are required")
		return
	}
	if !CanAccessUser(c, q.StudentID) {
		return
	}

	list, err := h.examSvc.GetLiveMarks(c.Request.Context(), q.StudentID, q.SubjectClassID)
	if err != nil {
		h.handleExamError(c, err, 14101)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *ExamHandler) handleExamError(c *gin.Context, err error, notFoundCode int) {
	if handleLookupError(c, err, notFoundCode) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.NotFound(c, 14102, "Exam not found")
	case errors.Is(err, service.ErrMarkOutOfRange):
		response.ErrorWithDetails(c, 400, 14002, "Obtained mark must be between 0 and the exam's total marks", err.Error())
	case errors.Is(err, service.ErrDuplicateStudent):
		response.BadRequest(c, 14003, "A student appears more than once in the submission")
	case errors.Is(err, service.ErrStudentNotInSection):
		response.BadRequest(c, 14004, "A student in the submission is not enrolled in this section")
	default:
		response.InternalError(c)
	}
}
