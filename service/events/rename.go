package events

import (
	"context"
	"encoding/json"

	"GymChat/logger"
	"GymChat/module/chat/model"
	"GymChat/module/chat/service"
	"GymChat/service/kafka"
	"GymChat/service/natsx"
	"GymChat/tools/errs"

	"go.uber.org/zap"
)

// Renamer 由 ChatService 实现
type Renamer interface {
	RenameGym(ctx context.Context, req service.RenameRequest) (int64, error)
}

// RenameReply NATS 回复体
type RenameReply struct {
	Affected int64           `json:"affected"`
	Error    *errs.CodeError `json:"error,omitempty"`
}

// RenameResponder gym.rename 的 request/reply 处理
func RenameResponder(r Renamer) natsx.NatsxReplyHandler {
	return func(ctx context.Context, msg natsx.NatsxMessage) ([]byte, error) {
		var req service.RenameRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, errs.ErrArgs.WrapMsg("decode rename request", "err", err.Error())
		}
		n, err := r.RenameGym(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(RenameReply{Affected: n})
	}
}

// RenameErrorReply 出错时的回复体
func RenameErrorReply(err error) []byte {
	b, _ := json.Marshal(RenameReply{Error: errs.Public(err)})
	return b
}

// gymEvent gym 管理端写到 gym.events 的记录；字段可以平铺也可以放在 data 里
type gymEvent struct {
	Type string `json:"type"`
	service.RenameRequest
	Data *service.RenameRequest `json:"data,omitempty"`
}

// GymEventHandler 消费 gym.events；只关心 gym.renamed，其余类型忽略
// 格式错、参数错不重试；存储失败交给消费组重试
func GymEventHandler(r Renamer) kafka.MessageHandler {
	return func(ctx context.Context, topic string, key, value []byte) error {
		var ev gymEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return kafka.Permanent(errs.ErrArgs.WrapMsg("decode gym event", "topic", topic, "err", err.Error()))
		}
		if ev.Type != model.EventGymRenamed {
			logger.Debug("skip gym event", zap.String("type", ev.Type))
			return nil
		}
		req := ev.RenameRequest
		if ev.Data != nil {
			req = *ev.Data
		}
		_, err := r.RenameGym(ctx, req)
		if errs.ErrArgs.Is(err) {
			return kafka.Permanent(err)
		}
		return err
	}
}
