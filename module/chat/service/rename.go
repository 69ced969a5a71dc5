package service

import (
	"context"
	"errors"
	"strings"

	"GymChat/logger"
	"GymChat/module/chat/model"
	"GymChat/module/chat/store"
	"GymChat/tools/errs"

	"go.uber.org/zap"
)

type RenameRequest struct {
	OwnerID   string `json:"ownerId" mapstructure:"ownerId"`
	OldGymTag string `json:"oldGymTag" mapstructure:"oldGymTag"`
	NewGymTag string `json:"newGymTag" mapstructure:"newGymTag"`
}

func (r *RenameRequest) Check() error {
	if r.OwnerID == "" || strings.TrimSpace(r.OldGymTag) == "" || strings.TrimSpace(r.NewGymTag) == "" {
		return errs.ErrArgs.WrapMsg("ownerId, oldGymTag and newGymTag are required")
	}
	return nil
}

// RenameGym 改 owner 名下 gym_tag == old 的会话，返回影响条数（0 是正常结果）
// 只有解析到 gym 的会话才带 owner，未解析的会话不会被改
func (s *ChatService) RenameGym(ctx context.Context, req RenameRequest) (int64, error) {
	if err := req.Check(); err != nil {
		return 0, err
	}
	if req.OldGymTag == req.NewGymTag {
		return 0, nil
	}

	n, err := s.store.RenameGym(ctx, req.OwnerID, req.OldGymTag, req.NewGymTag)
	if err != nil {
		if errors.Is(err, store.ErrRenameConflict) {
			return 0, err
		}
		logger.Error("rename gym failed", zap.String("owner", req.OwnerID),
			zap.String("old", req.OldGymTag), zap.String("new", req.NewGymTag), zap.Error(err))
		return 0, errs.ErrStore.WrapMsg("rename gym", "cause", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.OldGymTag, req.NewGymTag); err != nil {
			logger.Warn("invalidate gym cache", zap.Error(err))
		}
	}
	logger.Info("gym renamed", zap.String("owner", req.OwnerID),
		zap.String("old", req.OldGymTag), zap.String("new", req.NewGymTag), zap.Int64("affected", n))

	s.publish(ctx, model.EventGymRenamed, req.OwnerID, &model.GymRenamed{
		OwnerID:   req.OwnerID,
		OldGymTag: req.OldGymTag,
		NewGymTag: req.NewGymTag,
		Affected:  n,
	})
	return n, nil
}
