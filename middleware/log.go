package middleware

import (
	"net/http"
	"time"

	"GymChat/logger"
	"GymChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog 请求日志，websocket 升级请求也会在连接结束后打一条
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recovery handler panic 转 500，不打断进程
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("http panic", zap.Any("panic", r), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errs.Public(errs.ErrPanic(r)))
			}
		}()
		c.Next()
	}
}
