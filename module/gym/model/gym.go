package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const GymTable = "gyms"

// Gym 主站的健身房文档，这里只读 name / owner
type Gym struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Owner primitive.ObjectID `bson:"owner"`
	City  string             `bson:"city,omitempty"`
}

func (g *Gym) GetTableName() string { return GymTable }

// Ref 聊天侧用到的 gym 稳定标识
func (g *Gym) Ref() *GymRef {
	return &GymRef{ID: g.ID.Hex(), OwnerID: g.Owner.Hex(), Name: g.Name}
}

// GymRef 按名字解析出来的 gym；ID/OwnerID 统一用字符串
type GymRef struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
}
