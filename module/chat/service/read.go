package service

import (
	"context"

	"GymChat/logger"
	"GymChat/module/chat/model"
	"GymChat/tools/errs"

	"go.uber.org/zap"
)

// MarkAsRead 把 other 发给 reader 的消息都标记已读；幂等，返回本次是否有变化
// 有变化时给 other 推 read 回执
func (s *ChatService) MarkAsRead(ctx context.Context, readerID, otherUserID, gymTag string) (bool, error) {
	if readerID == "" || otherUserID == "" || gymTag == "" {
		return false, errs.ErrArgs.WrapMsg("readerId, otherUserId and gymTag are required")
	}
	if readerID == otherUserID {
		return false, errs.ErrArgs.WrapMsg("readerId equals otherUserId", "user", readerID)
	}

	n, err := s.store.MarkAsRead(ctx, readerID, otherUserID, gymTag)
	if err != nil {
		logger.Error("mark as read failed", zap.String("reader", readerID),
			zap.String("other", otherUserID), zap.String("gym", gymTag), zap.Error(err))
		return false, errs.ErrStore.WrapMsg("mark as read", "cause", err)
	}
	if n == 0 {
		return false, nil
	}

	receipt := &model.ReadReceipt{
		ReaderID:    readerID,
		OtherUserID: otherUserID,
		GymTag:      gymTag,
		ReadAt:      s.now().UTC(),
	}
	s.router.DeliverReadReceipt(ctx, otherUserID, receipt)
	s.publish(ctx, model.EventMessageRead, model.PairKey(readerID, otherUserID), receipt)
	return true, nil
}

// UnreadCount user 在某个 gym 下所有会话的未读总数
// 优先按 gymTag，gymTag 为空时按 gymId（gym_ref）
func (s *ChatService) UnreadCount(ctx context.Context, userID, gymID, gymTag string) (int64, error) {
	if userID == "" {
		return 0, errs.ErrArgs.WrapMsg("userId is required")
	}
	if gymTag == "" && gymID == "" {
		return 0, errs.ErrArgs.WrapMsg("gymTag or gymId is required")
	}
	n, err := s.store.CountUnread(ctx, userID, gymTag, gymID)
	if err != nil {
		return 0, errs.ErrStore.WrapMsg("count unread", "cause", err)
	}
	return n, nil
}
