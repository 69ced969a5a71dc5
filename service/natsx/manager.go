package natsx

import (
	"context"
	"fmt"
	"time"
)

// NatsManager 统一门面：对外只暴露这一个对象来用
type NatsManager struct {
	client   *NatsxClient
	producer *NatsxProducer
	consumer *NatsxConsumer
	retry    *NatsxRetryPublisher
}

// NewNatsManager 连接并初始化
func NewNatsManager(cfg NatsxConfig, middlewares ...NatsxMiddleware) (*NatsManager, error) {
	c, err := NewNatsxClient(cfg)
	if err != nil {
		return nil, err
	}
	return newManager(c, middlewares...), nil
}

func newManager(c *NatsxClient, middlewares ...NatsxMiddleware) *NatsManager {
	p := NewNatsxProducer(c)
	return &NatsManager{
		client:   c,
		producer: p,
		consumer: NewNatsxConsumer(c, middlewares...),
		retry:    &NatsxRetryPublisher{P: p, Retries: 2, Backoff: 100 * time.Millisecond, MaxBackoff: time.Second},
	}
}

// Close 释放资源（优雅关闭订阅与连接）
func (m *NatsManager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *NatsManager) Connected() bool {
	return m != nil && m.client != nil && m.client.Connected()
}

// RegisterRoute 注册业务路由（biz -> subject / queue）
func (m *NatsManager) RegisterRoute(r NatsxRoute) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.client.RegisterRoute(r)
}

// Publish 生产消息（按 biz 路由），临时错误按 retry publisher 的策略重试
func (m *NatsManager) Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	if m == nil || m.producer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.retry.Publish(ctx, biz, data, hdr)
}

// Request 请求/回复
func (m *NatsManager) Request(ctx context.Context, biz string, data []byte, hdr map[string]string) ([]byte, error) {
	if m == nil || m.producer == nil {
		return nil, fmt.Errorf("manager not initialized")
	}
	return m.producer.Request(ctx, biz, data, hdr)
}

// Subscribe 订阅，同组内用 Queue 分摊；广播则 Queue 置空
func (m *NatsManager) Subscribe(biz string, h NatsxHandler) error {
	if m == nil || m.consumer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.consumer.Subscribe(biz, h)
}

// Respond 作为 request/reply 服务端
func (m *NatsManager) Respond(biz string, h NatsxReplyHandler, onErr func(error) []byte) error {
	if m == nil || m.consumer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.consumer.Respond(biz, h, onErr)
}
