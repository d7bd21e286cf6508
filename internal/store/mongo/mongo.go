// server/internal/store/mongo/mongo.go

// Package mongo implements store.Store on MongoDB. Collections mirror the Postgres tables and
// conditional updates use filtered FindOneAndUpdate in place of UPDATE ... WHERE.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediradar-api-server/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	requestsCollection   = "requests"
	repliesCollection    = "replies"
	pharmaciesCollection = "pharmacies"
	responsesCollection  = "responses"
	auditCollection      = "admin_audit_logs"
)

type Store struct {
	db  *mongo.Database
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) requests() *mongo.Collection   { return s.db.Collection(requestsCollection) }
func (s *Store) replies() *mongo.Collection    { return s.db.Collection(repliesCollection) }
func (s *Store) pharmacies() *mongo.Collection { return s.db.Collection(pharmaciesCollection) }
func (s *Store) responses() *mongo.Collection  { return s.db.Collection(responsesCollection) }
func (s *Store) audit() *mongo.Collection      { return s.db.Collection(auditCollection) }

// timestamp truncates to the millisecond precision BSON dates keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.requests(): {
			{Keys: bson.D{{Key: "status_token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.replies(): {
			{Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		s.pharmacies(): {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
		s.responses(): {
			{Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "pharmacy_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.audit(): {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
	for coll, indexes := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// statusIn builds a filter restricting status to values; empty values match everything.
func statusIn[T ~string](values []T) bson.M {
	if len(values) == 0 {
		return bson.M{}
	}
	in := make(bson.A, len(values))
	for i, v := range values {
		in[i] = string(v)
	}
	return bson.M{"status": bson.M{"$in": in}}
}
