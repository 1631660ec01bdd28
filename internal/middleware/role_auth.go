package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole 检查当前用户是否具有指定角色。
// 此中间件必须在 AuthMiddleware 之后使用。
func RequireRole(role, deniedMessage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			// AuthMiddleware 未能注入用户，属于服务器内部错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve current user"})
			return
		}
		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": deniedMessage})
			return
		}
		c.Next()
	}
}
