package kafka

import (
	"context"
	"errors"
	"time"

	"GymChat/logger"
	"GymChat/tools/errs"
	"GymChat/tools/safe"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// ConsumerGroupHandler 按 topic 分发到 HandlerRegistry
// 临时错误按 Backoff 指数退避重试 Retries 次，每次最多 Timeout
type ConsumerGroupHandler struct {
	reg     *HandlerRegistry
	Retries int
	Backoff time.Duration
	Timeout time.Duration
}

func NewConsumerGroupHandler(reg *HandlerRegistry) *ConsumerGroupHandler {
	return &ConsumerGroupHandler{reg: reg, Retries: 3, Backoff: 500 * time.Millisecond, Timeout: 10 * time.Second}
}

func (h *ConsumerGroupHandler) Setup(s sarama.ConsumerGroupSession) error {
	logger.Info("kafka consumer group setup", zap.String("member", s.MemberID()))
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(s sarama.ConsumerGroupSession) error {
	logger.Info("kafka consumer group cleanup", zap.String("member", s.MemberID()))
	return nil
}

// ConsumeClaim 重试用完仍失败的消息记日志后提交位点，不卡住分区
// 重试过程中 session 结束（rebalance / 关闭）则不提交，交给下一个消费者重新处理
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for msg := range claim.Messages() {
		handler, err := h.reg.GetHandler(msg.Topic)
		if err != nil {
			logger.Warn("kafka no handler", zap.String("topic", msg.Topic))
		} else if err = h.handle(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				logger.Warn("kafka session ended, leave offset", zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset))
				return nil
			}
			logger.Error("kafka handler error, skip",
				zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *ConsumerGroupHandler) handle(ctx context.Context, handler MessageHandler, msg *sarama.ConsumerMessage) error {
	wait := h.Backoff
	for attempt := 0; ; attempt++ {
		err := h.runOnce(ctx, handler, msg)
		if err == nil || IsPermanent(err) || attempt >= h.Retries || ctx.Err() != nil {
			return err
		}
		logger.Warn("kafka handler retry", zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt+1), zap.Error(err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		wait *= 2
	}
}

// runOnce panic 视为不可重试
func (h *ConsumerGroupHandler) runOnce(ctx context.Context, handler MessageHandler, msg *sarama.ConsumerMessage) (err error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(errs.ErrPanic(r))
		}
	}()
	return handler(ctx, msg.Topic, msg.Key, msg.Value)
}

// ConsumerGroup 消费组，Run 阻塞到 ctx 结束
type ConsumerGroup struct {
	group sarama.ConsumerGroup
	reg   *HandlerRegistry
}

func NewConsumerGroup(c AppConfig, reg *HandlerRegistry) (*ConsumerGroup, error) {
	group, err := sarama.NewConsumerGroup(c.Brokers, c.GroupID, BuildBaseConfig(c))
	if err != nil {
		return nil, err
	}
	return &ConsumerGroup{group: group, reg: reg}, nil
}

func (g *ConsumerGroup) Run(ctx context.Context) error {
	topics := g.reg.Topics()
	if len(topics) == 0 {
		return errors.New("kafka consumer: no topics registered")
	}
	safe.SafeGo("kafka-group-errors", func() {
		for err := range g.group.Errors() {
			logger.Warn("kafka consumer group error", zap.Error(err))
		}
	})

	handler := NewConsumerGroupHandler(g.reg)
	for {
		if err := g.group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Error("kafka consume error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (g *ConsumerGroup) Close() error { return g.group.Close() }
