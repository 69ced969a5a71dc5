package model

import (
	"sort"
	"time"
)

// Message 会话里的一条消息；只有 read_by 会增长
type Message struct {
	MessageID string    `bson:"message_id" json:"messageId"`
	SenderID  string    `bson:"sender_id" json:"senderId"`
	Text      string    `bson:"text" json:"text"`
	SentAt    time.Time `bson:"sent_at" json:"sentAt"` // 服务端时间
	GymRef    string    `bson:"gym_ref,omitempty" json:"gymRef,omitempty"`
	ReadBy    []string  `bson:"read_by" json:"readBy"`
}

func (m *Message) ReadByUser(user string) bool {
	for _, u := range m.ReadBy {
		if u == user {
			return true
		}
	}
	return false
}

// UnreadFor 对 user 来说是否未读：不是自己发的，也没读过
func (m *Message) UnreadFor(user string) bool {
	return m.SenderID != user && !m.ReadByUser(user)
}

// MarkRead 把 user 加入 read_by，返回是否有变化
func (m *Message) MarkRead(user string) bool {
	if !m.UnreadFor(user) {
		return false
	}
	m.ReadBy = append(m.ReadBy, user)
	return true
}

func (m Message) Clone() Message {
	m.ReadBy = append([]string(nil), m.ReadBy...)
	return m
}

var epoch = time.Unix(0, 0).UTC()

// sortKey 缺失的时间按 epoch 处理
func sortKey(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}

// SortMessages 按 sent_at 升序稳定排序，同一时间戳保持插入顺序
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return sortKey(msgs[i].SentAt).Before(sortKey(msgs[j].SentAt))
	})
}
