package preset

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// MongoStore serves team-published presets from a MongoDB collection. Each
// document is one Preset keyed by its unique name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// collectionName is the presets collection within the configured database.
const collectionName = "presets"

// NewMongoStore connects to the MongoDB instance at url and verifies the
// connection before returning.
func NewMongoStore(ctx context.Context, url, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "connect to preset store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "ping preset store")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}, nil
}

// List returns names and descriptions of all published presets.
func (s *MongoStore) List(ctx context.Context) ([]Preset, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "description": 1, "main_file": 1}).
		SetSort(bson.M{"name": 1})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "list presets")
	}
	defer cursor.Close(ctx)

	var out []Preset
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "decode presets")
	}
	return out, nil
}

// Get returns the full preset document by name.
func (s *MongoStore) Get(ctx context.Context, name string) (*Preset, error) {
	var p Preset
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.New(apperrors.ErrCodePresetNotFound, "preset %q not found", name)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "load preset %s", name)
	}
	return &p, nil
}

// Publish upserts a preset document by name.
func (s *MongoStore) Publish(ctx context.Context, p *Preset) error {
	if p.Name == "" || p.MainFile == "" || len(p.Files) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "preset needs a name, main file, and files")
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"name": p.Name}, p,
		options.Replace().SetUpsert(true))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "publish preset %s", p.Name)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
