package natsx

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrRouteNotFound biz 没有注册路由
var ErrRouteNotFound = errors.New("natsx: route not found")

type bizPublisher interface {
	Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error
}

// NatsxRetryPublisher 发布失败按指数退避重试
// 连接已关闭、路由不存在、subject / payload 非法这几类重试也没用，直接返回
type NatsxRetryPublisher struct {
	P          bizPublisher
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrRouteNotFound),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrInvalidConnection),
		errors.Is(err, nats.ErrBadSubject),
		errors.Is(err, nats.ErrMaxPayload):
		return false
	}
	return true
}

func (rp *NatsxRetryPublisher) Publish(ctx context.Context, biz string, payload []byte, hdr map[string]string) error {
	wait := rp.Backoff
	for attempt := 0; ; attempt++ {
		err := rp.P.Publish(ctx, biz, payload, hdr)
		if err == nil || !retryable(err) || attempt >= rp.Retries {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
		if rp.MaxBackoff > 0 && wait > rp.MaxBackoff {
			wait = rp.MaxBackoff
		}
	}
}
