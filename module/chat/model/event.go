package model

import "time"

// 对外广播的聊天事件类型（Kafka / NATS）
const (
	EventMessageStored = "message.stored"
	EventMessageRead   = "message.read"
	EventGymRenamed    = "gym.renamed"
)

// MessagePush 推给在线接收方的 message 事件
type MessagePush struct {
	Message
	ConversationID string   `json:"conversationId"`
	ParticipantIDs []string `json:"participantIds"`
	RecipientID    string   `json:"recipientId"`
	GymTag         string   `json:"gymTag"`
}

// ReadReceipt reader 读完了 otherUserId 发来的消息
type ReadReceipt struct {
	ReaderID    string    `json:"readerId"`
	OtherUserID string    `json:"otherUserId"`
	GymTag      string    `json:"gymTag"`
	ReadAt      time.Time `json:"readAt"`
}

// GymRenamed 改名结果
type GymRenamed struct {
	OwnerID   string `json:"ownerId"`
	OldGymTag string `json:"oldGymTag"`
	NewGymTag string `json:"newGymTag"`
	Affected  int64  `json:"affected"`
}

// ChatEvent 事件信封；Key 用作 Kafka 分区键
type ChatEvent struct {
	Type string    `json:"type"`
	Key  string    `json:"-"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}
