// Package mongo stores run history in a MongoDB collection so several
// server replicas share one history.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

// Defaults for Options.
const (
	DefaultDatabase   = "fieldtrial"
	DefaultCollection = "runs"
)

// Options configures Connect.
type Options struct {
	URI        string
	Database   string
	Collection string
}

// Store is a MongoDB-backed run store.
type Store struct {
	client *mongo.Client // nil when the collection is borrowed
	coll   *mongo.Collection
}

// Connect dials MongoDB, pings the primary with retries and ensures the
// collection's indexes.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo uri")
	}
	err = cache.RetryWithBackoff(ctx, cache.DefaultBackoff, func() error {
		return cache.Retryable(client.Ping(ctx, readpref.Primary()))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo: %v", cache.ErrUnavailable, err)
	}

	s := New(client.Database(opts.Database).Collection(opts.Collection))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing collection. Close does not disconnect its client.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the index ListRuns sorts on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "name", Value: 1}},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create indexes")
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, r *store.Run) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save run %s", r.ID)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	var r store.Run
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "get run %s", id)
	}
	return &r, nil
}

func (s *Store) ListRuns(ctx context.Context, opts store.ListOptions) ([]*store.Run, error) {
	filter := bson.M{}
	if opts.Name != "" {
		filter["name"] = opts.Name
	}
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.EffectiveLimit())).
		SetProjection(bson.M{"config": 0, "layout": 0})

	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	var out []*store.Run
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode runs")
	}
	return out, nil
}

func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete run %s", id)
	}
	if res.DeletedCount == 0 {
		return store.NotFound(id)
	}
	return nil
}

// Close disconnects the client opened by Connect.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ store.Store = (*Store)(nil)
