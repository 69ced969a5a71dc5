package kafka

import (
	"fmt"
	"strings"
	"time"

	"GymChat/config"

	"github.com/Shopify/sarama"
)

// AppConfig Kafka 接入配置
type AppConfig struct {
	Brokers               []string
	GroupID               string
	PartitionsPerTopic    int32 // 单机=1~3
	ReplicationFactor     int16 // 单机=1；生产=3
	ProducerRetries       int
	ProducerCompression   string // none/snappy/lz4/zstd
	ConsumerInitialOffset string // newest/oldest
	KafkaVersion          sarama.KafkaVersion
}

// FromConfig 由全局配置生成；version 解析失败返回错误
func FromConfig(kc config.KafkaConfig) (AppConfig, error) {
	ver := sarama.V2_1_0_0
	if kc.Version != "" {
		v, err := sarama.ParseKafkaVersion(kc.Version)
		if err != nil {
			return AppConfig{}, fmt.Errorf("kafka version %q: %w", kc.Version, err)
		}
		ver = v
	}
	cfg := AppConfig{
		Brokers:               kc.Brokers,
		GroupID:               kc.GroupID,
		PartitionsPerTopic:    kc.Partitions,
		ReplicationFactor:     kc.ReplicationFactor,
		ProducerRetries:       kc.Retries,
		ProducerCompression:   kc.Compression,
		ConsumerInitialOffset: kc.InitialOffset,
		KafkaVersion:          ver,
	}
	if cfg.PartitionsPerTopic <= 0 {
		cfg.PartitionsPerTopic = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	return cfg, nil
}

// BuildBaseConfig 生产/消费共用的 sarama 配置
func BuildBaseConfig(c AppConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.KafkaVersion

	// Producer
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	retries := c.ProducerRetries
	if retries <= 0 {
		retries = 1
	}
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 决定分区，同一会话有序
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	// Consumer
	switch strings.ToLower(c.ConsumerInitialOffset) {
	case "oldest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}
