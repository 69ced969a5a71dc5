package kafka

import (
	"fmt"

	"github.com/Shopify/sarama"
)

// Client 持有一个 sarama.Client，生产者与 admin 共用连接
type Client struct {
	cfg AppConfig
	sarama.Client
}

func NewClient(c AppConfig) (*Client, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers missing")
	}
	sc, err := sarama.NewClient(c.Brokers, BuildBaseConfig(c))
	if err != nil {
		return nil, fmt.Errorf("kafka connect %v: %w", c.Brokers, err)
	}
	return &Client{cfg: c, Client: sc}, nil
}

func (c *Client) AppConfig() AppConfig { return c.cfg }

// EnsureTopics 用当前配置建 topic
func (c *Client) EnsureTopics(topics ...string) error {
	admin, err := sarama.NewClusterAdminFromClient(c.Client)
	if err != nil {
		return fmt.Errorf("cluster admin: %w", err)
	}
	// 不关闭 admin：它会连带关闭共享的 client
	return EnsureTopics(admin, topics, c.cfg)
}
