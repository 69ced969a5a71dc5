package kafka

import (
	"context"
	"sync"

	"GymChat/logger"
	"GymChat/tools/safe"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// AsyncProducer 异步生产者；成功/失败在后台 goroutine 里记日志
type AsyncProducer struct {
	p    sarama.AsyncProducer
	wg   sync.WaitGroup
	once sync.Once
}

// NewAsyncProducerFromClient 复用 Client 的连接
func NewAsyncProducerFromClient(c *Client) (*AsyncProducer, error) {
	p, err := sarama.NewAsyncProducerFromClient(c.Client)
	if err != nil {
		return nil, err
	}
	return NewAsyncProducer(p), nil
}

// NewAsyncProducer 包装已有的 sarama.AsyncProducer（测试里传 mocks）
func NewAsyncProducer(p sarama.AsyncProducer) *AsyncProducer {
	ap := &AsyncProducer{p: p}
	ap.wg.Add(2)
	safe.SafeGo("kafka-successes", func() {
		defer ap.wg.Done()
		for msg := range p.Successes() {
			logger.Debug("kafka sent", zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset))
		}
	})
	safe.SafeGo("kafka-errors", func() {
		defer ap.wg.Done()
		for perr := range p.Errors() {
			logger.Error("kafka send failed", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
		}
	})
	return ap
}

// Send 投递到 Input；key 为空时由分区器随机
func (ap *AsyncProducer) Send(ctx context.Context, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	select {
	case ap.p.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 刷完缓冲并等后台 goroutine 退出
func (ap *AsyncProducer) Close() error {
	var err error
	ap.once.Do(func() {
		err = ap.p.Close()
		ap.wg.Wait()
	})
	return err
}
