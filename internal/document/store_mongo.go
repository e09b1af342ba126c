package document

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "documents"

// MongoStore keeps uploaded binaries in a MongoDB collection keyed by the
// object key. Documents top out at 10 MiB, comfortably under the BSON
// document limit, so a side-band chunk store is unnecessary.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

func (s *MongoStore) Put(ctx context.Context, obj *Object) error {
	_, err := s.collection.InsertOne(ctx, obj)
	if err != nil {
		return fmt.Errorf("insert document object: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (*Object, error) {
	var obj Object
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&obj)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document object: %w", err)
	}
	return &obj, nil
}
