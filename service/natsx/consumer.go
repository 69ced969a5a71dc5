package natsx

import (
	"context"
	"fmt"
	"time"

	"GymChat/logger"
	"GymChat/tools/safe"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsxConsumer 消费端
type NatsxConsumer struct {
	c   *NatsxClient
	mws []NatsxMiddleware
}

func NewNatsxConsumer(c *NatsxClient, mws ...NatsxMiddleware) *NatsxConsumer {
	return &NatsxConsumer{c: c, mws: mws}
}

const defaultHandlerTimeout = 5 * time.Second

// handlerCtx 每条消息独立的超时 ctx
func (cs *NatsxConsumer) handlerCtx() (context.Context, context.CancelFunc) {
	d := cs.c.cfg.HandlerTimeout
	if d <= 0 {
		d = defaultHandlerTimeout
	}
	return context.WithTimeout(context.Background(), d)
}

func toMessage(m *nats.Msg) NatsxMessage {
	return NatsxMessage{
		Subject: m.Subject,
		Reply:   m.Reply,
		Data:    append([]byte(nil), m.Data...),
		Header:  headerToMap(m.Header),
	}
}

func (cs *NatsxConsumer) subscribe(r NatsxRoute, cb nats.MsgHandler) (*nats.Subscription, error) {
	if r.Queue == "" {
		return cs.c.nc.Subscribe(r.Subject, cb)
	}
	return cs.c.nc.QueueSubscribe(r.Subject, r.Queue, cb)
}

// Subscribe 订阅；同组内用 Queue 分摊
func (cs *NatsxConsumer) Subscribe(biz string, h NatsxHandler) error {
	r, ok := cs.c.route(biz)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, biz)
	}
	h = NatsxChain(h, cs.mws...)

	sub, err := cs.subscribe(r, func(m *nats.Msg) {
		msg := toMessage(m)
		ctx, cancel := cs.handlerCtx()
		defer cancel()
		if err := safe.Run(func() error { return h(ctx, msg) }); err != nil {
			logger.Warn("nats handler error", zap.String("subject", m.Subject), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	cs.c.addSub(biz, sub)
	return nil
}

// Respond request/reply 订阅；handler 出错时回复由 onErr 生成
func (cs *NatsxConsumer) Respond(biz string, h NatsxReplyHandler, onErr func(error) []byte) error {
	r, ok := cs.c.route(biz)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, biz)
	}
	sub, err := cs.subscribe(r, func(m *nats.Msg) {
		msg := toMessage(m)
		ctx, cancel := cs.handlerCtx()
		defer cancel()
		var out []byte
		err := safe.Run(func() (herr error) {
			out, herr = h(ctx, msg)
			return herr
		})
		if err != nil {
			logger.Warn("nats reply handler error", zap.String("subject", m.Subject), zap.Error(err))
			if onErr == nil {
				return
			}
			out = onErr(err)
		}
		if m.Reply == "" {
			return
		}
		if rerr := m.Respond(out); rerr != nil {
			logger.Warn("nats respond failed", zap.String("subject", m.Subject), zap.Error(rerr))
		}
	})
	if err != nil {
		return err
	}
	cs.c.addSub(biz, sub)
	return nil
}
