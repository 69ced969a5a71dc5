package store

import (
	"context"

	"GymChat/module/gym/model"
	"GymChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDirectory 直接读主站的 gyms 集合
type MongoDirectory struct {
	coll *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database, collection string) *MongoDirectory {
	if collection == "" {
		collection = (&model.Gym{}).GetTableName()
	}
	return &MongoDirectory{coll: db.Collection(collection)}
}

// LookupByName 最多取两条，用来判断名字是否唯一
func (d *MongoDirectory) LookupByName(ctx context.Context, name string) (*model.GymRef, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "name": 1, "owner": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(2)
	cur, err := d.coll.Find(ctx, bson.M{"name": name}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "lookup gym", "name", name)
	}
	var gyms []model.Gym
	if err := cur.All(ctx, &gyms); err != nil {
		return nil, errs.WrapMsg(err, "decode gym", "name", name)
	}
	switch len(gyms) {
	case 0:
		return nil, nil
	case 1:
		return gyms[0].Ref(), nil
	}
	ambiguous(name, len(gyms))
	return nil, nil
}
