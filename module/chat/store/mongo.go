package store

import (
	"context"
	"time"

	"GymChat/data/database"
	mgo "GymChat/data/database/mgo/mongoutil"
	"GymChat/module/chat/model"
	gymmodel "GymChat/module/gym/model"
	"GymChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ database.Table = (*model.Conversation)(nil)

type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		coll: db.Collection((&model.Conversation{}).GetTableName()),
		now:  time.Now,
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// 并发首条消息靠它兜底：只会有一个 upsert 成功
			Keys:    bson.D{{Key: "pair_key", Value: 1}, {Key: "gym_tag", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("pair_gym_uniq"),
		},
		{
			Keys:    bson.D{{Key: "participant_ids", Value: 1}, {Key: "gym_tag", Value: 1}},
			Options: options.Index().SetName("participant_gym_idx"),
		},
		{
			Keys:    bson.D{{Key: "gym_owner_id", Value: 1}, {Key: "gym_tag", Value: 1}},
			Options: options.Index().SetName("owner_gym_idx").SetSparse(true),
		},
	})
	return errs.WrapMsg(err, "create conversation indexes")
}

func convFilter(userA, userB, gymTag string) bson.M {
	return bson.M{"pair_key": model.PairKey(userA, userB), "gym_tag": gymTag}
}

// upsertRetry 两个用户同时发第一条消息时，后到的 upsert 会撞唯一索引，重试一次即可命中已有文档
func upsertRetry(f func() error) error {
	err := f()
	if err != nil && mgo.IsDuplicateKey(err) {
		err = f()
	}
	return err
}

func (s *MongoStore) FindOrCreate(ctx context.Context, userA, userB, gymTag string) (*model.Conversation, error) {
	now := s.now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"participant_ids": model.Participants(userA, userB),
			"messages":        bson.A{},
			"created_at":      now,
			"updated_at":      now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"messages": 0})

	var conv model.Conversation
	err := upsertRetry(func() error {
		return s.coll.FindOneAndUpdate(ctx, convFilter(userA, userB, gymTag), update, opts).Decode(&conv)
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "find or create conversation", "pair", model.PairKey(userA, userB), "gym", gymTag)
	}
	return &conv, nil
}

func (s *MongoStore) GetMessages(ctx context.Context, userA, userB, gymTag string) ([]model.Message, error) {
	var conv model.Conversation
	err := s.coll.FindOne(ctx, convFilter(userA, userB, gymTag),
		options.FindOne().SetProjection(bson.M{"messages": 1})).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return []model.Message{}, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "get messages", "pair", model.PairKey(userA, userB), "gym", gymTag)
	}
	if conv.Messages == nil {
		return []model.Message{}, nil
	}
	model.SortMessages(conv.Messages)
	return conv.Messages, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, userA, userB, gymTag string, gym *gymmodel.GymRef, msg model.Message) (*model.Conversation, error) {
	now := s.now().UTC()
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
	set := bson.M{"updated_at": now}
	if gym != nil {
		set["gym_ref"] = gym.ID
		set["gym_owner_id"] = gym.OwnerID
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"participant_ids": model.Participants(userA, userB),
			"created_at":      now,
		},
		"$set":  set,
		"$push": bson.M{"messages": msg}, // 只追加到末尾，顺序以 sent_at 为准
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"messages": 0})

	var conv model.Conversation
	err := upsertRetry(func() error {
		return s.coll.FindOneAndUpdate(ctx, convFilter(userA, userB, gymTag), update, opts).Decode(&conv)
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "append message", "pair", model.PairKey(userA, userB), "gym", gymTag)
	}
	return &conv, nil
}

func (s *MongoStore) MarkAsRead(ctx context.Context, readerID, otherUserID, gymTag string) (int64, error) {
	filter := convFilter(readerID, otherUserID, gymTag)
	// 没有未读就不写，重复调用不产生修改
	filter["messages"] = bson.M{"$elemMatch": bson.M{
		"sender_id": bson.M{"$ne": readerID},
		"read_by":   bson.M{"$ne": readerID},
	}}
	update := bson.M{"$addToSet": bson.M{"messages.$[m].read_by": readerID}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.sender_id": bson.M{"$ne": readerID}}},
	})

	res, err := s.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark as read", "reader", readerID, "other", otherUserID, "gym", gymTag)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) CountUnread(ctx context.Context, userID, gymTag, gymRef string) (int64, error) {
	match := bson.M{"participant_ids": userID}
	if gymTag != "" {
		match["gym_tag"] = gymTag
	} else {
		match["gym_ref"] = gymRef
	}

	unread := bson.M{"$size": bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$messages", bson.A{}}},
		"as":    "m",
		"cond": bson.M{"$and": bson.A{
			bson.M{"$ne": bson.A{"$$m.sender_id", userID}},
			bson.M{"$not": bson.A{
				bson.M{"$in": bson.A{userID, bson.M{"$ifNull": bson.A{"$$m.read_by", bson.A{}}}}},
			}},
		}},
	}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.M{"unread": unread}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$unread"}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errs.WrapMsg(err, "count unread", "user", userID, "gym", gymTag)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, errs.WrapMsg(err, "decode unread", "user", userID)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// RenameGym UpdateMany 不是整体原子的；撞唯一索引时已改的文档不会回滚
func (s *MongoStore) RenameGym(ctx context.Context, ownerID, oldTag, newTag string) (int64, error) {
	filter := bson.M{"gym_owner_id": ownerID, "gym_tag": oldTag}
	update := bson.M{"$set": bson.M{"gym_tag": newTag, "updated_at": s.now().UTC()}}

	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		if mgo.IsDuplicateKey(err) {
			return 0, errs.WrapMsg(ErrRenameConflict, "rename gym", "owner", ownerID, "old", oldTag, "new", newTag)
		}
		return 0, errs.WrapMsg(err, "rename gym", "owner", ownerID, "old", oldTag)
	}
	return res.ModifiedCount, nil
}
