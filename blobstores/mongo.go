package blobstores

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 5 * time.Second

// Mongo implements [Store] on a "kv" collection keyed by _id.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Store = (*Mongo)(nil)

type mongoBlob struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("connect", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("ping", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection("kv"),
	}, nil
}

func (s *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var blob mongoBlob
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&blob)
	switch {
	case err == nil:
		return blob.Value, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotExist
	default:
		return nil, unavailable("find", err)
	}
}

func (s *Mongo) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoBlob{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return unavailable("replace", err)
	}
	return nil
}

func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
