package events

import (
	"context"
	"sync"
	"time"

	"GymChat/logger"
	"GymChat/module/chat/model"
	"GymChat/module/chat/service"
	"GymChat/tools/safe"

	"go.uber.org/zap"
)

const defaultEventQueue = 1024

// AsyncSink 调用方只入队，单个 worker 串行投递给下游 sink
// 队列满或已关闭时丢弃并告警，不阻塞发消息 / 已读
type AsyncSink struct {
	next    service.EventSink
	timeout time.Duration

	ch   chan *model.ChatEvent
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewAsyncSink timeout 是每个事件投递的上限，queue<=0 用默认值
func NewAsyncSink(next service.EventSink, queue int, timeout time.Duration) *AsyncSink {
	safe.MustNotNil(next, "event sink")
	if queue <= 0 {
		queue = defaultEventQueue
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &AsyncSink{
		next:    next,
		timeout: timeout,
		ch:      make(chan *model.ChatEvent, queue),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	safe.SafeGo("chat-event-sink", a.loop)
	return a
}

func (a *AsyncSink) Publish(_ context.Context, ev *model.ChatEvent) {
	select {
	case <-a.stop:
		logger.Warn("event sink closed, drop", zap.String("type", ev.Type), zap.String("key", ev.Key))
		return
	default:
	}
	select {
	case a.ch <- ev:
	default:
		logger.Warn("event sink queue full, drop", zap.String("type", ev.Type), zap.String("key", ev.Key))
	}
}

func (a *AsyncSink) loop() {
	defer close(a.done)
	for {
		select {
		case ev := <-a.ch:
			a.deliver(ev)
		case <-a.stop:
			// 关闭前把已入队的发完
			for {
				select {
				case ev := <-a.ch:
					a.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *AsyncSink) deliver(ev *model.ChatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := safe.Run(func() error {
		a.next.Publish(ctx, ev)
		return nil
	}); err != nil {
		logger.Error("event sink panic", zap.String("type", ev.Type), zap.Error(err))
	}
}

// Close 停止接收，等队列排空或 ctx 结束；可重复调用
func (a *AsyncSink) Close(ctx context.Context) error {
	a.once.Do(func() { close(a.stop) })
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
