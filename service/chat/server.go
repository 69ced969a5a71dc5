package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"GymChat/config"
	"GymChat/middleware"
	"GymChat/module/chat/service"
	"GymChat/tools/safe"
	"GymChat/tools/security"

	"github.com/gorilla/websocket"
)

// Options 连接层参数
type Options struct {
	AllowOrigins  []string
	EventTimeout  time.Duration
	PingInterval  time.Duration
	PongWait      time.Duration
	WriteWait     time.Duration
	MaxFrameBytes int64
	SendQueue     int
	Auth          *security.Options // nil 不校验握手 token
}

func OptionsFromConfig(cfg *config.Config) Options {
	o := Options{
		AllowOrigins:  cfg.HTTP.AllowOrigins,
		EventTimeout:  cfg.Chat.EventTimeout,
		PingInterval:  cfg.Chat.PingInterval,
		PongWait:      cfg.Chat.PongWait,
		WriteWait:     cfg.Chat.WriteWait,
		MaxFrameBytes: cfg.Chat.MaxFrameBytes,
		SendQueue:     cfg.Chat.SendQueue,
	}
	if cfg.Auth.Enabled {
		o.Auth = &security.Options{Secret: []byte(cfg.Auth.Secret), Alg: cfg.Auth.Alg, Issuer: cfg.Auth.Issuer}
	}
	return o
}

func (o *Options) norm() {
	if o.EventTimeout <= 0 {
		o.EventTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PongWait <= o.PingInterval {
		o.PongWait = o.PingInterval * 2
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 64 << 10
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
}

// Server websocket 网关：连接管理 + 事件分发
type Server struct {
	opts     Options
	reg      *Registry
	router   *DeliveryRouter
	svc      *service.ChatService
	disp     *Dispatcher
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[string]*Client
	closing bool           // Shutdown 之后不再接新事件
	wg      sync.WaitGroup // 在途事件，Add 必须在 mu 内且 closing 为 false
}

// NewServer 把 DeliveryRouter 注入 service；handler 由调用方注册
func NewServer(opts Options, reg *Registry, svc *service.ChatService) *Server {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(svc, "chat service")
	opts.norm()
	s := &Server{
		opts:    opts,
		reg:     reg,
		router:  NewDeliveryRouter(reg),
		svc:     svc,
		disp:    NewDispatcher(),
		clients: make(map[string]*Client),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(s.opts.AllowOrigins, r.Header.Get("Origin"))
		},
	}
	svc.SetDeliverer(s.router)
	return s
}

func (s *Server) Registry() *Registry           { return s.reg }
func (s *Server) Service() *service.ChatService { return s.svc }
func (s *Server) Disp() *Dispatcher             { return s.disp }

func (s *Server) track(c *Client) {
	s.mu.Lock()
	s.clients[c.ConnID] = c
	s.mu.Unlock()
}

// acquire 登记一个在途事件；已在关闭时返回 false
func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ConnID)
	s.mu.Unlock()
}

// Conns 当前连接数
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Shutdown 关闭所有连接，等在途事件结束或 ctx 超时
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for _, c := range s.clients {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer s.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
