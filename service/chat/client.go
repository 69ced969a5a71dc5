package chat

import (
	"sync"
	"time"

	"GymChat/logger"
	"GymChat/tools/errs"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClientClosed = errs.NewCodeError(errs.FrameError, "connection closed")
	ErrSendOverflow = errs.NewCodeError(errs.FrameError, "send queue full")
)

// Client 一条 websocket 连接
// 所有写操作都经过 send 队列，由 writePump 单协程写出
type Client struct {
	ConnID   string
	AuthUser string // 握手 token 里的 sub，没开鉴权时为空
	Remote   string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	users map[string]struct{} // 这条连接注册过的 userId
}

func NewClient(ws *websocket.Conn, queue int) *Client {
	c := &Client{
		ConnID: uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
		users:  make(map[string]struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr().String()
	}
	return c
}

func (c *Client) ID() string { return c.ConnID }

// Push 非阻塞入队；队列满说明对端读得太慢，直接断开
func (c *Client) Push(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case <-c.done:
		return ErrClientClosed
	case c.send <- frame:
		return nil
	default:
		logger.Warn("send queue full, closing", zap.String("conn", c.ConnID))
		c.Close(websocket.ClosePolicyViolation, "send queue full")
		return ErrSendOverflow
	}
}

// Close 幂等；真正的 close 帧由 writePump 发出
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		}
	})
}

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) BindUser(userID string) {
	c.mu.Lock()
	c.users[userID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) UnbindUser(userID string) {
	c.mu.Lock()
	delete(c.users, userID)
	c.mu.Unlock()
}

// Users 注册过的 userId 快照
func (c *Client) Users() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.users))
	for u := range c.users {
		out = append(out, u)
	}
	return out
}

// writePump 写协程：业务帧 + 定时 ping；退出时关闭底层连接
func (c *Client) writePump(pingInterval, writeWait time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("write frame failed", zap.String("conn", c.ConnID), zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Debug("ping failed", zap.String("conn", c.ConnID), zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}
