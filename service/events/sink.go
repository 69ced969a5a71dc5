package events

import (
	"context"
	"encoding/json"

	"GymChat/logger"
	"GymChat/module/chat/model"
	"GymChat/module/chat/service"

	"go.uber.org/zap"
)

// HeaderEventKey NATS header 里带上分区键，便于下游按会话聚合
const HeaderEventKey = "X-Event-Key"

type kafkaSender interface {
	Send(ctx context.Context, topic, key string, value []byte) error
}

type natsPublisher interface {
	Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error
}

// MultiSink 依次投递给每个 sink
type MultiSink []service.EventSink

func (m MultiSink) Publish(ctx context.Context, ev *model.ChatEvent) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

// KafkaSink 写 chat.events topic，key = 会话 pair key
type KafkaSink struct {
	p     kafkaSender
	topic string
}

func NewKafkaSink(p kafkaSender, topic string) *KafkaSink {
	return &KafkaSink{p: p, topic: topic}
}

func (k *KafkaSink) Publish(ctx context.Context, ev *model.ChatEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encode chat event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := k.p.Send(ctx, k.topic, ev.Key, b); err != nil {
		logger.Warn("kafka sink send", zap.String("type", ev.Type), zap.String("key", ev.Key), zap.Error(err))
	}
}

// NatsSink 按事件类型作为 biz 发布；路由由 RegisterEventRoutes 注册
type NatsSink struct {
	p natsPublisher
}

func NewNatsSink(p natsPublisher) *NatsSink { return &NatsSink{p: p} }

func (n *NatsSink) Publish(ctx context.Context, ev *model.ChatEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encode chat event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	var hdr map[string]string
	if ev.Key != "" {
		hdr = map[string]string{HeaderEventKey: ev.Key}
	}
	if err := n.p.Publish(ctx, ev.Type, b, hdr); err != nil {
		logger.Warn("nats sink publish", zap.String("type", ev.Type), zap.Error(err))
	}
}
