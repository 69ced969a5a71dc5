package handlers

import (
	midsec "GymChat/middleware/security"
	"GymChat/module/chat/service"
	"GymChat/service/chat"
)

// SendMessageHandler send-message / communicate
// 没有 ack id 时失败只会收到 error 帧
type SendMessageHandler struct{}

func (SendMessageHandler) Event() string { return chat.EventSendMessage }

func (SendMessageHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.SendMessageReq](f)
	if err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.SenderID); err != nil {
		return nil, err
	}
	return ctx.S.Service().SendMessage(ctx, service.SendRequest{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		GymTag:      req.GymTag,
		Text:        req.Text,
	})
}

type FetchHistoryHandler struct{}

func (FetchHistoryHandler) Event() string { return chat.EventFetchHistory }

func (FetchHistoryHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[chat.HistoryReq](f)
	if err != nil {
		return nil, err
	}
	if ctx.Client.AuthUser != "" && ctx.Client.AuthUser != req.UserA && ctx.Client.AuthUser != req.UserB {
		return nil, midsec.CheckActor(ctx.Client.AuthUser, req.UserA)
	}
	msgs, err := ctx.S.Service().History(ctx, req.UserA, req.UserB, req.GymTag)
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": msgs}, nil
}
