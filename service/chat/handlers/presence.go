package handlers

import (
	midsec "GymChat/middleware/security"
	"GymChat/service/chat"
)

// RegisterPresenceHandler register-presence / add_user
type RegisterPresenceHandler struct{}

func (RegisterPresenceHandler) Event() string { return chat.EventRegisterPresence }

func (RegisterPresenceHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.PresenceReq](f)
	if err != nil {
		return nil, err
	}
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.UserID); err != nil {
		return nil, err
	}
	ctx.Client.BindUser(req.UserID)
	ctx.S.Registry().Register(req.UserID, ctx.Client)
	return map[string]any{"userId": req.UserID, "connId": ctx.Client.ConnID}, nil
}

// UnregisterPresenceHandler unregister-presence / remove_user；不存在时是 no-op
type UnregisterPresenceHandler struct{}

func (UnregisterPresenceHandler) Event() string { return chat.EventUnregisterPresence }

func (UnregisterPresenceHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.PresenceReq](f)
	if err != nil {
		return nil, err
	}
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.UserID); err != nil {
		return nil, err
	}
	ctx.Client.UnbindUser(req.UserID)
	removed := ctx.S.Registry().Unregister(req.UserID)
	return map[string]any{"userId": req.UserID, "removed": removed}, nil
}
