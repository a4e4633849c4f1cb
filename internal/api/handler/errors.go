package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/service"
	pkgerrors "github.com/ahmed-sakil/asian-school/pkg/errors"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// handleLookupError 处理各模块共用的查找类错误与唯一约束冲突，code 为模块的 404 业务码。
// 已写入响应时返回 true。
func handleLookupError(c *gin.Context, err error, code int) bool {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, code, "Student not found")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, code, "Teacher not found")
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, code, "Section not found for the current academic year")
	case errors.Is(err, service.ErrNotEnrolled):
		response.NotFound(c, code, "Student is not enrolled in any section this academic year")
	case errors.Is(err, service.ErrSubjectClassNotFound):
		response.NotFound(c, code, "Subject class not found")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, "Invalid date, expected YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidCategory):
		response.BadRequest(c, 10001, "Invalid exam category")
	case pkgerrors.IsUniqueViolation(err):
		response.Conflict(c, 10006, "Record already exists")
	default:
		return false
	}
	return true
}
