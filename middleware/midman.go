package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// MiddlewareManager 可以自由注册/注销中间件，运行时生效
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Add 注册中间件，按注册顺序执行
func (m *MiddlewareManager) Add(h ...gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h...)
}

func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
}

func (m *MiddlewareManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mids)
}

// Use 返回一个 gin.HandlerFunc，作为总控挂载到 Engine 上
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...) // 拷贝一份快照
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
