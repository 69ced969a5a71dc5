package chat

import (
	"context"
)

// Handler 一个事件一个 handler；返回值作为 ack 的 data
type Handler interface {
	Event() string
	Handle(ctx *ChatContext, f *InboundFrame) (any, error)
}

// ChatContext 单个事件的处理上下文
type ChatContext struct {
	context.Context
	S      *Server
	Client *Client
}
