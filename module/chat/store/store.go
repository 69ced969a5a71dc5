package store

import (
	"context"

	"GymChat/module/chat/model"
	gymmodel "GymChat/module/gym/model"
	"GymChat/tools/errs"
)

// ErrRenameConflict 同一对用户在新名字下已经有会话
var ErrRenameConflict = errs.ErrArgs.WithDetail("gym tag already used by the same participants")

// ConversationStore 会话持久化；所有写操作都是单条原子更新，不加进程内锁
type ConversationStore interface {
	// FindOrCreate 按参与者集合（与顺序无关）+ gymTag 查找，不存在则创建空会话
	FindOrCreate(ctx context.Context, userA, userB, gymTag string) (*model.Conversation, error)
	// GetMessages 按 sent_at 升序返回；会话不存在返回空切片
	GetMessages(ctx context.Context, userA, userB, gymTag string) ([]model.Message, error)
	// AppendMessage 不存在则创建，消息追加到末尾；gym 非空时记录 gym_ref / gym_owner_id
	AppendMessage(ctx context.Context, userA, userB, gymTag string, gym *gymmodel.GymRef, msg model.Message) (*model.Conversation, error)
	// MarkAsRead 对端发的消息都加上 reader，返回被修改的会话数
	MarkAsRead(ctx context.Context, readerID, otherUserID, gymTag string) (int64, error)
	// CountUnread 统计 user 在该 gym 下所有会话的未读数；gymTag 为空时按 gymRef 圈定
	CountUnread(ctx context.Context, userID, gymTag, gymRef string) (int64, error)
	// RenameGym 只改 owner 名下、gym_tag == oldTag 的会话，返回修改数
	RenameGym(ctx context.Context, ownerID, oldTag, newTag string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}
