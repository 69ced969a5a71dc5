package kafka

import (
	"errors"
	"fmt"

	"GymChat/logger"

	"github.com/Shopify/sarama"
)

// EnsureTopics 会：
// 1) 不存在就按 cfg 创建；
// 2) 已存在且分区数 < 期望值时扩分区（Kafka 只能增加分区）。
func EnsureTopics(admin sarama.ClusterAdmin, topics []string, cfg AppConfig) error {
	minISR := "1"
	if cfg.ReplicationFactor >= 3 {
		minISR = "2"
	}
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return fmt.Errorf("describe topic %s: %w", t, err)
		}
		exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

		if !exists {
			td := &sarama.TopicDetail{
				NumPartitions:     cfg.PartitionsPerTopic,
				ReplicationFactor: cfg.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"),
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				var te *sarama.TopicError
				if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
					logger.Infof("[Topic] exists (race): %s", t)
					continue
				}
				return fmt.Errorf("create topic %s: %w", t, err)
			}
			logger.Infof("[Topic] created: %s (partitions=%d, rf=%d)", t, cfg.PartitionsPerTopic, cfg.ReplicationFactor)
			continue
		}

		cur := int32(len(descs[0].Partitions))
		if cfg.PartitionsPerTopic > cur {
			if err := admin.CreatePartitions(t, cfg.PartitionsPerTopic, nil, false); err != nil {
				return fmt.Errorf("expand partitions %s from %d to %d: %w", t, cur, cfg.PartitionsPerTopic, err)
			}
			logger.Infof("[Topic] partitions expanded: %s (%d -> %d)", t, cur, cfg.PartitionsPerTopic)
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
