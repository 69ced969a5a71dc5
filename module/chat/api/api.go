package api

import (
	"net/http"

	"GymChat/middleware"
	midsec "GymChat/middleware/security"
	"GymChat/module/chat/service"
	"GymChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// HealthReporter 由 service/health 实现
type HealthReporter interface {
	Healthy() bool
	Deps() map[string]bool
}

// OnlineCounter 由 presence registry 实现
type OnlineCounter interface {
	Online() int
}

// Server 聊天 REST 接口，给 web 端拉历史/未读用
type Server struct {
	svc    *service.ChatService
	health HealthReporter
	online OnlineCounter
}

func NewServer(svc *service.ChatService, health HealthReporter, online OnlineCounter) *Server {
	return &Server{svc: svc, health: health, online: online}
}

// Register auth 为空时不校验身份
func (s *Server) Register(r gin.IRouter, auth gin.HandlerFunc) {
	opt := middleware.RouteOpt{Auth: auth}
	g := r.Group("/api/chat")
	middleware.GET(g, "/history", Wrap(s.History), opt)
	middleware.GET(g, "/unread", Wrap(s.Unread), opt)
	middleware.POST(g, "/read", Wrap(s.MarkRead), opt)
	middleware.POST(g, "/gyms/rename", Wrap(s.RenameGym), opt)
	middleware.GET(r, "/healthz", s.Healthz, middleware.RouteOpt{})
}

type historyQuery struct {
	UserA  string `form:"userA"`
	UserB  string `form:"userB"`
	GymTag string `form:"gymTag"`
}

// History GET /api/chat/history?userA=&userB=&gymTag=
func (s *Server) History(c *gin.Context) error {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return errs.ErrArgs.WrapMsg("bad query", "err", err.Error())
	}
	if u := midsec.UserFrom(c); u != "" && u != q.UserA && u != q.UserB {
		return midsec.CheckActor(u, q.UserA)
	}
	msgs, err := s.svc.History(c.Request.Context(), q.UserA, q.UserB, q.GymTag)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
	return nil
}

type unreadQuery struct {
	UserID string `form:"userId"`
	GymID  string `form:"gymId"`
	GymTag string `form:"gymTag"`
}

// Unread GET /api/chat/unread?userId=&gymId=|gymTag=
func (s *Server) Unread(c *gin.Context) error {
	var q unreadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return errs.ErrArgs.WrapMsg("bad query", "err", err.Error())
	}
	if err := midsec.CheckActor(midsec.UserFrom(c), q.UserID); err != nil {
		return err
	}
	n, err := s.svc.UnreadCount(c.Request.Context(), q.UserID, q.GymID, q.GymTag)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
	return nil
}

type markReadBody struct {
	ReaderID    string `json:"readerId"`
	OtherUserID string `json:"otherUserId"`
	GymTag      string `json:"gymTag"`
}

// MarkRead POST /api/chat/read
func (s *Server) MarkRead(c *gin.Context) error {
	var b markReadBody
	if err := c.ShouldBindJSON(&b); err != nil {
		return errs.ErrArgs.WrapMsg("bad body", "err", err.Error())
	}
	if err := midsec.CheckActor(midsec.UserFrom(c), b.ReaderID); err != nil {
		return err
	}
	changed, err := s.svc.MarkAsRead(c.Request.Context(), b.ReaderID, b.OtherUserID, b.GymTag)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
	return nil
}

// RenameGym POST /api/chat/gyms/rename
func (s *Server) RenameGym(c *gin.Context) error {
	var req service.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return errs.ErrArgs.WrapMsg("bad body", "err", err.Error())
	}
	if err := midsec.CheckActor(midsec.UserFrom(c), req.OwnerID); err != nil {
		return err
	}
	n, err := s.svc.RenameGym(c.Request.Context(), req)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"affected": n})
	return nil
}

// Healthz 依赖都健康时 200，否则 503
func (s *Server) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	if s.health != nil {
		body["deps"] = s.health.Deps()
		if !s.health.Healthy() {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	if s.online != nil {
		body["online"] = s.online.Online()
	}
	c.JSON(status, body)
}
