package remstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store on top of a MongoDB database. Documents are keyed by
// _id; per-document updates are atomic, cross-document updates are not.
type Mongo struct {
	database *mongo.Database
}

func NewMongo(database *mongo.Database) *Mongo {
	return &Mongo{database: database}
}

func (m *Mongo) coll(name string) *mongo.Collection {
	return m.database.Collection(name)
}

func (m *Mongo) Get(ctx context.Context, collection, id string, out any) error {
	err := m.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) Set(ctx context.Context, collection, id string, doc any) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.coll(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	return err
}

func (m *Mongo) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	res, err := m.coll(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Increment(ctx context.Context, collection, id, field string, delta int) error {
	res, err := m.coll(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) IncrementWhere(ctx context.Context, collection, id, field string, delta, min int) (bool, error) {
	// Filtered $inc: the guard and the write are one atomic server-side
	// operation, so two sessions cannot both pass the check.
	filter := bson.M{
		"_id": id,
		field: bson.M{"$gte": min},
	}
	res, err := m.coll(collection).UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) QueryEqual(ctx context.Context, collection, field string, value any, out any) error {
	cursor, err := m.coll(collection).Find(ctx, bson.M{field: value})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	_, err := m.coll(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}
