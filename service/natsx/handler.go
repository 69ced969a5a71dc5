package natsx

import "golang.org/x/net/context"

// NatsxMessage 统一消息对象
type NatsxMessage struct {
	Subject string
	Reply   string
	Data    []byte
	Header  map[string]string
}

// NatsxHandler 业务处理函数
type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxReplyHandler request/reply 处理函数，返回值作为回复内容
type NatsxReplyHandler func(ctx context.Context, msg NatsxMessage) ([]byte, error)

// NatsxMiddleware 中间件（日志、指标、重试等）
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain 组合中间件
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
