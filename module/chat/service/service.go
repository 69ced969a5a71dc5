package service

import (
	"context"
	"time"

	"GymChat/module/chat/model"
	"GymChat/module/chat/store"
	gymstore "GymChat/module/gym/store"
	"GymChat/tools/ids"
	"GymChat/tools/safe"
)

// Deliverer 把事件推给在线用户；实现方只做 side effect，不返回错误
type Deliverer interface {
	DeliverMessage(ctx context.Context, recipientID string, push *model.MessagePush)
	DeliverReadReceipt(ctx context.Context, toUserID string, receipt *model.ReadReceipt)
}

// EventSink 聊天事件出口（Kafka / NATS），尽力而为
type EventSink interface {
	Publish(ctx context.Context, ev *model.ChatEvent)
}

// GymCache gym 名字缓存，改名后清掉新旧两个名字
type GymCache interface {
	Invalidate(ctx context.Context, names ...string) error
}

type nopDeliverer struct{}

func (nopDeliverer) DeliverMessage(context.Context, string, *model.MessagePush)     {}
func (nopDeliverer) DeliverReadReceipt(context.Context, string, *model.ReadReceipt) {}

type nopSink struct{}

func (nopSink) Publish(context.Context, *model.ChatEvent) {}

// ChatService 消息写入、历史、已读、未读数、gym 改名
type ChatService struct {
	store  store.ConversationStore
	gyms   gymstore.Directory
	router Deliverer
	sink   EventSink
	cache  GymCache
	now    func() time.Time
	nextID func() string
}

type Option func(*ChatService)

func WithDeliverer(d Deliverer) Option { return func(s *ChatService) { s.router = d } }
func WithEventSink(e EventSink) Option { return func(s *ChatService) { s.sink = e } }
func WithGymCache(c GymCache) Option   { return func(s *ChatService) { s.cache = c } }
func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}
func WithIDGenerator(next func() string) Option {
	return func(s *ChatService) { s.nextID = next }
}

// New gyms 可以为 nil（不解析 gym），store 不能为 nil
func New(st store.ConversationStore, gyms gymstore.Directory, opts ...Option) *ChatService {
	safe.MustNotNil(st, "conversation store")
	s := &ChatService{
		store:  st,
		gyms:   gyms,
		router: nopDeliverer{},
		sink:   nopSink{},
		now:    time.Now,
		nextID: ids.GenerateString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetDeliverer router 依赖 registry，构造顺序上晚于 service
func (s *ChatService) SetDeliverer(d Deliverer) {
	if d != nil {
		s.router = d
	}
}

func (s *ChatService) publish(ctx context.Context, typ, key string, data any) {
	s.sink.Publish(ctx, &model.ChatEvent{Type: typ, Key: key, At: s.now().UTC(), Data: data})
}
