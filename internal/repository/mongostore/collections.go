package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// AddToCollection upserts the (ngo, clothes type) document with $inc.
// Two first-time inflows can race on the upsert; the loser hits the unique
// index and simply retries as an increment.
func (s *Store) AddToCollection(ctx context.Context, ngoID, clothesType string, qty int) (*model.Collection, error) {
	if qty <= 0 {
		return nil, apperror.ValidationFailed("quantity", "Quantity must be a positive number")
	}

	var (
		c   model.Collection
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()
		err = s.collections.FindOneAndUpdate(ctx,
			bson.M{"ngo_id": ngoID, "clothes_type": clothesType},
			bson.M{
				"$inc":         bson.M{"quantity": qty},
				"$set":         bson.M{"updated_at": now},
				"$setOnInsert": bson.M{"_id": xid.New().String(), "distributed": 0, "created_at": now},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&c)
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: adding to collection (%s, %s): %w", ngoID, clothesType, err)
	}
	c.RefreshStatus()
	return &c, nil
}

func (s *Store) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	var c model.Collection
	if err := s.collections.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, fmt.Errorf("mongo: getting collection %s: %w", id, err)
	}
	c.RefreshStatus()
	return &c, nil
}

func (s *Store) ListCollections(ctx context.Context, filter repository.CollectionFilter) ([]model.Collection, error) {
	query := bson.M{}
	if filter.NGOID != "" {
		query["ngo_id"] = filter.NGOID
	}
	cur, err := s.collections.Find(ctx, query, options.Find().SetSort(newestFirst()))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing collections: %w", err)
	}
	collections := []model.Collection{}
	if err := cur.All(ctx, &collections); err != nil {
		return nil, fmt.Errorf("mongo: decoding collections: %w", err)
	}
	for i := range collections {
		collections[i].RefreshStatus()
	}
	return collections, nil
}

// DistributeFromCollection increments distributed only if the result stays
// within quantity. The check lives in the filter, so it is evaluated
// atomically with the update on the server.
func (s *Store) DistributeFromCollection(ctx context.Context, id, ngoID string, qty int) (*model.Collection, *model.AuditLog, error) {
	if qty <= 0 {
		return nil, nil, apperror.ValidationFailed("quantity", "Quantity must be a positive number")
	}

	current, err := s.GetCollection(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if current.NGOID != ngoID {
		return nil, nil, apperror.Forbidden("Not authorized to distribute from this collection")
	}

	var after model.Collection
	err = s.collections.FindOneAndUpdate(ctx,
		bson.M{
			"_id": id,
			"$expr": bson.M{"$lte": bson.A{
				bson.M{"$add": bson.A{"$distributed", qty}},
				"$quantity",
			}},
		},
		bson.M{
			"$inc": bson.M{"distributed": qty},
			"$set": bson.M{"updated_at": s.now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if err != nil {
		if isNoDocuments(err) {
			latest, getErr := s.GetCollection(ctx, id)
			if getErr != nil {
				return nil, nil, getErr
			}
			return nil, nil, apperror.InsufficientStock(latest.Available())
		}
		return nil, nil, fmt.Errorf("mongo: distributing from collection %s: %w", id, err)
	}
	after.RefreshStatus()

	entry := &model.AuditLog{
		Action:       model.AuditCollectionDistributed,
		ResourceType: "Collection",
		ResourceID:   id,
		ActorID:      ngoID,
		Before:       map[string]any{"distributed": after.Distributed - qty},
		After:        map[string]any{"distributed": after.Distributed},
		Details:      fmt.Sprintf("Distributed %d %s items", qty, after.ClothesType),
	}
	if err := s.AppendAudit(ctx, entry); err != nil {
		// Give the items back so the distribution and its log stay paired.
		_, undoErr := s.collections.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"distributed": -qty}})
		return nil, nil, withUndo(err, fmt.Sprintf("distribution from collection %s", id), undoErr)
	}
	return &after, entry, nil
}
