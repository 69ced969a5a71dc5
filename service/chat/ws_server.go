package chat

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"GymChat/logger"
	midsec "GymChat/middleware/security"
	"GymChat/tools/errs"
	"GymChat/tools/safe"
	"GymChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS 握手 -> 读循环；每个入站帧单独一个协程处理，写统一走 writePump
func (s *Server) HandleWS(c *gin.Context) {
	var authUser string
	if s.opts.Auth != nil {
		claims, err := security.Verify(*s.opts.Auth, midsec.TokenFromRequest(c.Request))
		if err != nil {
			logger.Info("[HandleWS] token rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.Public(errs.ErrTokenInvalid))
			return
		}
		authUser = claims.UserID
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 非 websocket 请求 / origin 不在白名单，upgrader 已经写了响应
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	client := NewClient(ws, s.opts.SendQueue)
	client.AuthUser = authUser
	s.track(client)
	logger.Info("[WS] connected", zap.String("conn", client.ConnID), zap.String("remote", client.Remote),
		zap.String("authUser", authUser))

	ws.SetReadLimit(s.opts.MaxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		for _, u := range client.Users() {
			s.reg.Touch(u, client)
		}
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	go client.writePump(s.opts.PingInterval, s.opts.WriteWait)

	s.readLoop(client, ws)
	s.disconnect(client)
}

// readLoop 只读不写；出错或连接已关闭即退出
func (s *Server) readLoop(client *Client, ws *websocket.Conn) {
	for {
		mt, data, rerr := ws.ReadMessage()
		select {
		case <-client.Done():
			return
		default:
		}
		if rerr != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				logger.Infof("[WS] peer closed conn=%s err=%v", client.ConnID, rerr)
			case errors.As(rerr, &ne) && ne.Timeout():
				logger.Infof("[WS] read timeout conn=%s err=%v", client.ConnID, rerr)
			default:
				logger.Infof("[WS] read err conn=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		s.serveFrame(client, data)
	}
}

func (s *Server) serveFrame(client *Client, raw []byte) {
	f, err := ParseFrame(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Info("[WS] bad frame", zap.String("conn", client.ConnID), zap.ByteString("sample", sample), zap.Error(err))
		var ack, event string
		if f != nil {
			ack, event = f.Ack, f.Event
		}
		s.reply(client, ack, event, nil, err)
		return
	}

	if !s.acquire() {
		logger.Debug("[WS] shutting down, frame dropped", zap.String("conn", client.ConnID), zap.String("event", f.Event))
		return
	}
	safe.SafeGo("chat-event:"+f.Event, func() {
		defer s.wg.Done()
		// 连接断开不取消在途事件，只受 event_timeout 约束
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.EventTimeout)
		defer cancel()

		var data any
		err := safe.Run(func() (herr error) {
			data, herr = s.disp.Dispatch(&ChatContext{Context: ctx, S: s, Client: client}, f)
			return herr
		})
		s.reply(client, f.Ack, f.Event, data, err)
	})
}

// reply 有 ack id 的回 ack；没有 ack 的只在失败时回 error 帧
func (s *Server) reply(client *Client, ack, event string, data any, err error) {
	if err != nil {
		fields := []zap.Field{zap.String("conn", client.ConnID), zap.String("event", event), zap.Error(err)}
		if isClientError(err) {
			logger.Info("[WS] event rejected", fields...)
		} else {
			logger.Error("[WS] event failed", fields...)
		}
	}

	var out *OutboundFrame
	switch {
	case ack != "" && err != nil:
		out = AckErrorFrame(ack, err)
	case ack != "":
		out = AckFrame(ack, data)
	case err != nil:
		out = ErrorFrame(event, err)
	default:
		return
	}
	b, eerr := out.Encode()
	if eerr != nil {
		logger.Error("[WS] encode reply", zap.String("event", event), zap.Error(eerr))
		return
	}
	_ = client.Push(b)
}

// disconnect 清掉这条连接注册过的所有 userId（已被新连接覆盖的不动），不等在途事件
func (s *Server) disconnect(client *Client) {
	users := client.Users()
	for _, u := range users {
		s.reg.UnregisterIf(u, client)
	}
	client.Close(websocket.CloseNormalClosure, "")
	s.untrack(client)
	logger.Info("[WS] disconnected", zap.String("conn", client.ConnID), zap.Strings("users", users))
}

func isClientError(err error) bool {
	ce, ok := errs.As(err)
	if !ok {
		return false
	}
	switch ce.Code {
	case errs.ArgsError, errs.NoPermissionError, errs.RecordNotFoundError,
		errs.TokenInvalidError, errs.UnknownEventError, errs.FrameError:
		return true
	}
	return false
}
