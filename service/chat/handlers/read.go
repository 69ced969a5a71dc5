package handlers

import (
	midsec "GymChat/middleware/security"
	"GymChat/service/chat"
)

type MarkReadHandler struct{}

func (MarkReadHandler) Event() string { return chat.EventMarkRead }

func (MarkReadHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.MarkReadReq](f)
	if err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.ReaderID); err != nil {
		return nil, err
	}
	changed, err := ctx.S.Service().MarkAsRead(ctx, req.ReaderID, req.OtherUserID, req.GymTag)
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed}, nil
}

type UnreadCountHandler struct{}

func (UnreadCountHandler) Event() string { return chat.EventGetUnreadCount }

func (UnreadCountHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.UnreadReq](f)
	if err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.UserID); err != nil {
		return nil, err
	}
	n, err := ctx.S.Service().UnreadCount(ctx, req.UserID, req.GymID, req.GymTag)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}
