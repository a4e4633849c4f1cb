package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "Not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "Not authenticated")
		return "", false
	}
	return s, true
}

// CanAccessUser 学生只能访问自己的数据，教师与管理员不受限。
// 返回 false 时已写入响应。
func CanAccessUser(c *gin.Context, targetID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role != model.RoleStudent {
		return true
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return false
	}
	if userID != targetID {
		response.Forbidden(c, 10003, "Students can only view their own records")
		return false
	}
	return true
}
