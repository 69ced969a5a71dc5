package middleware

import (
	"github.com/gin-gonic/gin"
)

// RouteOpt Auth 非空时挂在 handler 前面
type RouteOpt struct {
	Auth gin.HandlerFunc
}

func (o RouteOpt) chain(h gin.HandlerFunc) []gin.HandlerFunc {
	if o.Auth == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{o.Auth, h}
}

// POST 封装
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, opt.chain(handler)...)
}

// GET 封装
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, opt.chain(handler)...)
}
