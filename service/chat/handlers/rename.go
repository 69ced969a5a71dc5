package handlers

import (
	midsec "GymChat/middleware/security"
	"GymChat/module/chat/service"
	"GymChat/service/chat"
)

// RenameGymHandler owner 的归属校验在 gym 管理侧完成，这里只按 ownerId 圈定范围
type RenameGymHandler struct{}

func (RenameGymHandler) Event() string { return chat.EventRenameGym }

func (RenameGymHandler) Handle(ctx *chat.ChatContext, f *chat.InboundFrame) (any, error) {
	req, err := chat.DecodeData[service.RenameRequest](f)
	if err != nil {
		return nil, err
	}
	if err := midsec.CheckActor(ctx.Client.AuthUser, req.OwnerID); err != nil {
		return nil, err
	}
	n, err := ctx.S.Service().RenameGym(ctx, *req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"affected": n}, nil
}
