package middleware

import (
	"net/http"
	"strings"

	"GymChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// OriginAllowed 白名单为空时不校验；没有 Origin 头（非浏览器客户端）直接放行
func OriginAllowed(allow []string, origin string) bool {
	if len(allow) == 0 || origin == "" {
		return true
	}
	for _, a := range allow {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// Origin 浏览器跨域：白名单内回写 CORS 头，白名单外 403
func Origin(allow []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !OriginAllowed(allow, origin) {
			c.AbortWithStatusJSON(http.StatusForbidden, errs.Public(errs.ErrNoPermission))
			return
		}
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
