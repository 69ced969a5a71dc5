package chat

import (
	"context"

	"GymChat/logger"
	"GymChat/module/chat/model"

	"go.uber.org/zap"
)

// DeliveryRouter 查 Registry，对在线的一方推送；不在线就什么也不做（消息已落库）
type DeliveryRouter struct {
	reg *Registry
}

func NewDeliveryRouter(reg *Registry) *DeliveryRouter {
	return &DeliveryRouter{reg: reg}
}

// DeliverMessage 只推给接收方；接收方和发送方是同一条连接时不推
func (r *DeliveryRouter) DeliverMessage(_ context.Context, recipientID string, push *model.MessagePush) {
	h, ok := r.reg.Lookup(recipientID)
	if !ok {
		logger.Debug("recipient offline, stored only", zap.String("recipient", recipientID))
		return
	}
	if sh, ok := r.reg.Lookup(push.SenderID); ok && sh.ID() == h.ID() {
		return
	}
	r.push(h, recipientID, EventMessage, push)
}

// DeliverReadReceipt 已读回执推给对端
func (r *DeliveryRouter) DeliverReadReceipt(_ context.Context, toUserID string, receipt *model.ReadReceipt) {
	h, ok := r.reg.Lookup(toUserID)
	if !ok {
		return
	}
	r.push(h, toUserID, EventRead, receipt)
}

func (r *DeliveryRouter) push(h Handle, userID, event string, data any) {
	b, err := PushFrame(event, data).Encode()
	if err != nil {
		logger.Error("encode push frame", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.Push(b); err != nil {
		logger.Warn("push failed", zap.String("event", event), zap.String("user", userID),
			zap.String("conn", h.ID()), zap.Error(err))
	}
}
