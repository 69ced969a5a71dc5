package natsx

import (
	"errors"
	"strings"
	"sync"
	"time"

	"GymChat/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsxRoute 路由配置（按 Biz 维度注册）
type NatsxRoute struct {
	Biz     string
	Subject string
	Queue   string // 队列组；空 = 广播
}

// NatsxConfig 客户端配置
type NatsxConfig struct {
	Servers        []string
	Name           string
	User           string
	Password       string
	ReconnectWait  time.Duration
	Timeout        time.Duration
	HandlerTimeout time.Duration // 每条消息处理的上限，0 = 5s
}

// NatsxClient 统一客户端，只用 core NATS（无持久化）
type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn

	mu     sync.RWMutex
	routes map[string]NatsxRoute         // biz -> route
	subs   map[string]*nats.Subscription // biz -> sub
}

// NewNatsxClient 连接 NATS；断线无限重连
func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return newWithConn(cfg, nc), nil
}

func newWithConn(cfg NatsxConfig, nc *nats.Conn) *NatsxClient {
	return &NatsxClient{
		cfg:    cfg,
		nc:     nc,
		routes: make(map[string]NatsxRoute),
		subs:   make(map[string]*nats.Subscription),
	}
}

// Close 优雅关闭
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for biz, sub := range c.subs {
		_ = sub.Drain()
		delete(c.subs, biz)
	}
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

// Connected 健康检查用
func (c *NatsxClient) Connected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// RegisterRoute 注册 Biz 路由
func (c *NatsxClient) RegisterRoute(r NatsxRoute) error {
	if r.Biz == "" || r.Subject == "" {
		return errors.New("invalid route")
	}
	c.mu.Lock()
	c.routes[r.Biz] = r
	c.mu.Unlock()
	return nil
}

// route 查询已注册路由
func (c *NatsxClient) route(biz string) (NatsxRoute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routes[biz]
	return r, ok
}

func (c *NatsxClient) addSub(biz string, sub *nats.Subscription) {
	c.mu.Lock()
	c.subs[biz] = sub
	c.mu.Unlock()
}
