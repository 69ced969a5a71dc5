package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MessageHandler 返回普通 error 会按消费组的策略重试，Permanent 包过的直接跳过
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent 标记重试也不会成功的错误（格式错、参数错）
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// HandlerRegistry topic -> handler
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]MessageHandler)}
}

func (r *HandlerRegistry) Register(topic string, handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = handler
}

// RegisterAll 多个 topic 共用一个 handler
func (r *HandlerRegistry) RegisterAll(topics []string, handler MessageHandler) {
	for _, t := range topics {
		r.Register(t, handler)
	}
}

func (r *HandlerRegistry) GetHandler(topic string) (MessageHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[topic]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("no handler registered for topic: %s", topic)
}

// Topics 已注册 topic，排序后返回
func (r *HandlerRegistry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
