package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ConversationTable = "users_chat"

// Conversation 两个用户在某个 gym 下的完整聊天记录
// (pair_key, gym_tag) 唯一；消息内嵌，只追加
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PairKey        string             `bson:"pair_key" json:"-"`
	ParticipantIDs []string           `bson:"participant_ids" json:"participantIds"` // 升序
	GymTag         string             `bson:"gym_tag" json:"gymTag"`                 // 冗余的 gym 名，只有改名会改
	GymRef         string             `bson:"gym_ref,omitempty" json:"gymRef,omitempty"`
	GymOwnerID     string             `bson:"gym_owner_id,omitempty" json:"-"` // 改名按 owner 圈定范围
	Messages       []Message          `bson:"messages" json:"messages"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (c *Conversation) GetTableName() string { return ConversationTable }

// Counterpart 返回对端用户；user 不在会话里时返回空
func (c *Conversation) Counterpart(user string) string {
	if len(c.ParticipantIDs) != 2 {
		return ""
	}
	switch user {
	case c.ParticipantIDs[0]:
		return c.ParticipantIDs[1]
	case c.ParticipantIDs[1]:
		return c.ParticipantIDs[0]
	}
	return ""
}

// Participants 升序的参与者
func Participants(a, b string) []string {
	if b < a {
		a, b = b, a
	}
	return []string{a, b}
}

// PairKey 参与者集合的规范化 key，与顺序无关
func PairKey(a, b string) string {
	p := Participants(a, b)
	return p[0] + "|" + p[1]
}
