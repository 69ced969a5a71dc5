package security

import (
	"net/http"
	"strings"

	"GymChat/tools/errs"
	"GymChat/tools/security"

	"github.com/gin-gonic/gin"
)

// context key，后续 handler 统一用它读取当前用户
const CtxUserKey = "auth_user"

// TokenFromRequest 依次取 Authorization: Bearer、authorization 头、?token=
// 浏览器 websocket 不能带自定义头，只能走 query
func TokenFromRequest(r *http.Request) string {
	if t := security.BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if t := strings.TrimSpace(r.Header.Get("authorization")); t != "" && !strings.Contains(t, " ") {
		return t
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Middleware 校验 JWT，sub 写入 context
func Middleware(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := security.Verify(opts, TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.Public(errs.ErrTokenInvalid))
			return
		}
		c.Set(CtxUserKey, claims.UserID)
		c.Next()
	}
}

// UserFrom 没挂鉴权时返回空
func UserFrom(c *gin.Context) string {
	return c.GetString(CtxUserKey)
}

// CheckActor 开了鉴权时，请求里声明的用户必须是 token 里的用户
func CheckActor(authUser, claimed string) error {
	if authUser == "" || authUser == claimed {
		return nil
	}
	return errs.ErrNoPermission.WrapMsg("acting as another user", "token", authUser, "claimed", claimed)
}
