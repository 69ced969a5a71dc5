package service

import (
	"context"
	"time"

	"GymChat/logger"
	"GymChat/module/chat/model"
	gymmodel "GymChat/module/gym/model"
	"GymChat/tools/errs"

	"go.uber.org/zap"
)

type SendRequest struct {
	SenderID    string
	RecipientID string
	GymTag      string
	Text        string
}

func (r *SendRequest) Check() error {
	switch {
	case r.Text == "":
		return errs.ErrArgs.WrapMsg("text is empty")
	case r.SenderID == "" || r.RecipientID == "":
		return errs.ErrArgs.WrapMsg("senderId and recipientId are required")
	case r.SenderID == r.RecipientID:
		return errs.ErrArgs.WrapMsg("cannot send to self", "user", r.SenderID)
	case r.GymTag == "":
		return errs.ErrArgs.WrapMsg("gymTag is required")
	}
	return nil
}

// SendMessage 校验 -> 解析 gym -> 追加到会话尾部 -> 推给对端
// 落库失败返回 ErrStore，推送失败不影响结果
func (s *ChatService) SendMessage(ctx context.Context, req SendRequest) (*model.Message, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}

	gym := s.resolveGym(ctx, req.GymTag)
	msg := model.Message{
		MessageID: s.nextID(),
		SenderID:  req.SenderID,
		Text:      req.Text,
		SentAt:    s.now().UTC().Truncate(time.Millisecond),
		ReadBy:    []string{req.SenderID},
	}
	if gym != nil {
		msg.GymRef = gym.ID
	}

	conv, err := s.store.AppendMessage(ctx, req.SenderID, req.RecipientID, req.GymTag, gym, msg)
	if err != nil {
		logger.Error("append message failed",
			zap.String("sender", req.SenderID), zap.String("recipient", req.RecipientID),
			zap.String("gym", req.GymTag), zap.Error(err))
		return nil, errs.ErrStore.WrapMsg("append message", "cause", err)
	}

	push := &model.MessagePush{
		Message:        msg,
		ConversationID: conv.ID.Hex(),
		ParticipantIDs: conv.ParticipantIDs,
		RecipientID:    req.RecipientID,
		GymTag:         req.GymTag,
	}
	s.router.DeliverMessage(ctx, req.RecipientID, push)
	s.publish(ctx, model.EventMessageStored, model.PairKey(req.SenderID, req.RecipientID), push)
	return &msg, nil
}

// resolveGym 查不到或者查询失败都按未解析处理，聊天不依赖 gym 存在
func (s *ChatService) resolveGym(ctx context.Context, tag string) *gymmodel.GymRef {
	if s.gyms == nil {
		return nil
	}
	ref, err := s.gyms.LookupByName(ctx, tag)
	if err != nil {
		logger.Warn("gym lookup failed, send without gymRef", zap.String("gym", tag), zap.Error(err))
		return nil
	}
	return ref
}

// History 会话消息，按 sentAt 升序；没有会话返回空列表
func (s *ChatService) History(ctx context.Context, userA, userB, gymTag string) ([]model.Message, error) {
	if userA == "" || userB == "" || gymTag == "" {
		return nil, errs.ErrArgs.WrapMsg("userA, userB and gymTag are required")
	}
	msgs, err := s.store.GetMessages(ctx, userA, userB, gymTag)
	if err != nil {
		return nil, errs.ErrStore.WrapMsg("get messages", "cause", err)
	}
	return msgs, nil
}
