// Package mongostore implements the repository interfaces on MongoDB.
//
// MongoDB has no multi-document transactions on a standalone server, so the
// lifecycle methods rely on single-document conditional updates and undo
// their earlier step when a later one fails. The collection balance check is
// folded into the update filter with $expr, which keeps the
// distributed <= quantity invariant without a transaction.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/clothconnect/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store holds one handle per MongoDB collection.
type Store struct {
	client        *mongo.Client
	users         *mongo.Collection
	donations     *mongo.Collection
	pickups       *mongo.Collection
	collections   *mongo.Collection
	notifications *mongo.Collection
	audit         *mongo.Collection
	now           func() time.Time
}

// New connects to uri, selects dbName and makes sure the indexes exist.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:        client,
		users:         db.Collection("users"),
		donations:     db.Collection("donations"),
		pickups:       db.Collection("pickups"),
		collections:   db.Collection("collections"),
		notifications: db.Collection("notifications"),
		audit:         db.Collection("audit_logs"),
		now:           func() time.Time { return time.Now().UTC() },
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the indexes the queries and invariants depend on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		c       *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_users_email")},
			// Sparse: password accounts have no github_id and must not collide.
			{Keys: bson.D{{Key: "github_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("idx_users_github")},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "email_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "reset_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
		}},
		{s.donations, []mongo.IndexModel{
			{Keys: bson.D{{Key: "donor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{s.pickups, []mongo.IndexModel{
			{Keys: bson.D{{Key: "ngo_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "donor_id", Value: 1}}},
		}},
		{s.collections, []mongo.IndexModel{
			{Keys: bson.D{{Key: "ngo_id", Value: 1}, {Key: "clothes_type", Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_collections_ngo_type")},
		}},
		{s.notifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_notifications_ttl")},
		}},
		{s.audit, []mongo.IndexModel{
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.c.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("mongo: creating indexes on %s: %w", spec.c.Name(), err)
		}
	}
	return nil
}

// withUndo joins a failed compensating write onto the error that made it
// necessary, so a half-applied change is never reported as a clean failure.
func withUndo(err error, what string, undoErr error) error {
	if undoErr == nil {
		return err
	}
	return errors.Join(err, fmt.Errorf("mongo: undoing %s: %w", what, undoErr))
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// DropAll removes every collection. Only the tests call it.
func (s *Store) DropAll(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.users, s.donations, s.pickups, s.collections, s.notifications, s.audit} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return s.EnsureIndexes(ctx)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// newestFirst sorts by creation time with the id as a tie breaker.
func newestFirst() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}
