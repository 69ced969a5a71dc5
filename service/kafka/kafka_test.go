package kafka

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"GymChat/config"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.KafkaConfig{
		Brokers:       []string{"k1:9092"},
		Version:       "2.8.0",
		GroupID:       "g",
		Compression:   "lz4",
		InitialOffset: "oldest",
		Retries:       0,
	})
	require.NoError(t, err)
	assert.Equal(t, sarama.V2_8_0_0, c.KafkaVersion)
	assert.Equal(t, int32(1), c.PartitionsPerTopic)
	assert.Equal(t, int16(1), c.ReplicationFactor)

	sc := BuildBaseConfig(c)
	assert.Equal(t, sarama.CompressionLZ4, sc.Producer.Compression)
	assert.Equal(t, sarama.OffsetOldest, sc.Consumer.Offsets.Initial)
	assert.Equal(t, 1, sc.Producer.Retry.Max)
	assert.NoError(t, sc.Validate())

	_, err = FromConfig(config.KafkaConfig{Version: "not-a-version"})
	assert.Error(t, err)
}

func TestHandlerRegistry(t *testing.T) {
	reg := NewHandlerRegistry()
	_, err := reg.GetHandler("gym.events")
	assert.Error(t, err)

	noop := func(context.Context, string, []byte, []byte) error { return nil }
	reg.RegisterAll([]string{"b", "a"}, noop)
	h, err := reg.GetHandler("a")
	require.NoError(t, err)
	assert.NoError(t, h(context.Background(), "a", nil, nil))
	assert.Equal(t, []string{"a", "b"}, reg.Topics())
}

func TestAsyncProducerKeyed(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewAsyncProducer(t, cfg)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		k, _ := m.Key.Encode()
		if string(k) != "u1|u2" {
			return errors.New("unexpected key " + string(k))
		}
		return nil
	})
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	ap := NewAsyncProducer(mp)
	ctx := context.Background()
	require.NoError(t, ap.Send(ctx, "chat.events", "u1|u2", []byte(`{}`)))
	require.NoError(t, ap.Send(ctx, "chat.events", "", []byte(`{}`)))
	require.NoError(t, ap.Close())
	require.NoError(t, ap.Close())
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MemberID() string         { return "m-1" }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestConsumeClaimMarksEveryMessage(t *testing.T) {
	reg := NewHandlerRegistry()
	var seen []string
	reg.Register("gym.events", func(_ context.Context, _ string, key, value []byte) error {
		seen = append(seen, string(value))
		if string(value) == "bad" {
			return errors.New("bad payload")
		}
		if string(value) == "panic" {
			panic("boom")
		}
		return nil
	})

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 4)}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 1, Value: []byte("ok")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 2, Value: []byte("bad")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 3, Value: []byte("panic")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "other", Offset: 4, Value: []byte("ignored")}
	close(claim.ch)

	sess := &fakeSession{ctx: context.Background()}
	h := NewConsumerGroupHandler(reg)
	h.Retries, h.Backoff = 2, time.Millisecond
	require.NoError(t, h.Setup(sess))
	require.NoError(t, h.ConsumeClaim(sess, claim))
	require.NoError(t, h.Cleanup(sess))

	// bad 重试两次后跳过，panic 不重试
	assert.Equal(t, []string{"ok", "bad", "bad", "bad", "panic"}, seen)
	assert.Equal(t, []int64{1, 2, 3, 4}, sess.marked)
}

func TestConsumeClaimRetriesTransientErrors(t *testing.T) {
	reg := NewHandlerRegistry()
	calls := map[string]int{}
	reg.Register("gym.events", func(ctx context.Context, _ string, _, value []byte) error {
		v := string(value)
		calls[v]++
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		switch {
		case v == "flaky" && calls[v] < 3:
			return errors.New("mongo timeout")
		case v == "malformed":
			return Permanent(errors.New("decode"))
		}
		return nil
	})

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 2)}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 1, Value: []byte("flaky")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 2, Value: []byte("malformed")}
	close(claim.ch)

	sess := &fakeSession{ctx: context.Background()}
	h := NewConsumerGroupHandler(reg)
	h.Backoff = time.Millisecond
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Equal(t, 3, calls["flaky"])
	assert.Equal(t, 1, calls["malformed"])
	assert.Equal(t, []int64{1, 2}, sess.marked)
	assert.True(t, IsPermanent(Permanent(errors.New("x"))))
	assert.Nil(t, Permanent(nil))
}

func TestConsumeClaimLeavesOffsetWhenSessionEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := NewHandlerRegistry()
	reg.Register("gym.events", func(context.Context, string, []byte, []byte) error {
		cancel()
		return errors.New("store down")
	})

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 2)}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 7, Value: []byte("x")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "gym.events", Offset: 8, Value: []byte("y")}
	close(claim.ch)

	sess := &fakeSession{ctx: ctx}
	h := NewConsumerGroupHandler(reg)
	h.Backoff = time.Hour
	require.NoError(t, h.ConsumeClaim(sess, claim))
	assert.Empty(t, sess.marked)
}

type fakeAdmin struct {
	sarama.ClusterAdmin
	existing map[string]int
	created  map[string]*sarama.TopicDetail
	expanded map[string]int32
}

func (a *fakeAdmin) DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error) {
	out := make([]*sarama.TopicMetadata, 0, len(topics))
	for _, t := range topics {
		n, ok := a.existing[t]
		if !ok {
			out = append(out, &sarama.TopicMetadata{Name: t, Err: sarama.ErrUnknownTopicOrPartition})
			continue
		}
		out = append(out, &sarama.TopicMetadata{Name: t, Partitions: make([]*sarama.PartitionMetadata, n)})
	}
	return out, nil
}

func (a *fakeAdmin) CreateTopic(topic string, d *sarama.TopicDetail, _ bool) error {
	a.created[topic] = d
	return nil
}

func (a *fakeAdmin) CreatePartitions(topic string, count int32, _ [][]int32, _ bool) error {
	a.expanded[topic] = count
	return nil
}

func TestEnsureTopics(t *testing.T) {
	admin := &fakeAdmin{
		existing: map[string]int{"chat.events": 1, "gym.events": 5},
		created:  map[string]*sarama.TopicDetail{},
		expanded: map[string]int32{},
	}
	cfg := AppConfig{PartitionsPerTopic: 3, ReplicationFactor: 3}
	require.NoError(t, EnsureTopics(admin, []string{"chat.events", "gym.events", "new.topic"}, cfg))

	assert.Equal(t, map[string]int32{"chat.events": 3}, admin.expanded)
	require.Contains(t, admin.created, "new.topic")
	assert.Equal(t, int32(3), admin.created["new.topic"].NumPartitions)
	assert.Equal(t, "2", *admin.created["new.topic"].ConfigEntries["min.insync.replicas"])
}

func TestConnectKafka(t *testing.T) {
	brokers := os.Getenv("GYMCHAT_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("GYMCHAT_TEST_KAFKA_BROKERS not set")
	}
	cfg, err := FromConfig(config.KafkaConfig{Brokers: strings.Split(brokers, ","), Version: "2.1.0"})
	require.NoError(t, err)

	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	topic := "gymchat.test." + time.Now().Format("150405")
	require.NoError(t, c.EnsureTopics(topic))

	ap, err := NewAsyncProducerFromClient(c)
	require.NoError(t, err)
	require.NoError(t, ap.Send(context.Background(), topic, "k", []byte("v")))
	require.NoError(t, ap.Close())
}
