package api

import (
	"errors"
	"net/http"

	"GymChat/logger"
	"GymChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlerFunc 返回 error 的 handler，由 Wrap 统一写错误响应
type HandlerFunc func(c *gin.Context) error

func Wrap(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			status := httpStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("api error", zap.String("path", c.FullPath()), zap.Error(err))
			} else {
				logger.Info("api rejected", zap.String("path", c.FullPath()), zap.Error(err))
			}
			c.AbortWithStatusJSON(status, gin.H{"error": errs.Public(err)})
		}
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrArgs):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNoPermission):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
