package natsx

import (
	"context"
	"fmt"
)

// NatsxProducer 生产端
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish 按 Biz 路由发送
func (p *NatsxProducer) Publish(_ context.Context, biz string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, biz)
	}
	return p.c.sendCore(r.Subject, data, hdr)
}

// Request 按 Biz 路由发请求并等回复；超时由 ctx 控制
func (p *NatsxProducer) Request(ctx context.Context, biz string, data []byte, hdr map[string]string) ([]byte, error) {
	r, ok := p.c.route(biz)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, biz)
	}
	return p.c.request(ctx, r.Subject, data, hdr)
}
