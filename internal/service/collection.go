package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/metrics"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// CollectionService manages an NGO's inventory ledger.
type CollectionService struct {
	store   repository.CollectionRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCollectionService(store repository.CollectionRepository, m *metrics.Metrics, logger *slog.Logger) *CollectionService {
	return &CollectionService{store: store, metrics: m, logger: logger}
}

type MarkDonatedInput struct {
	ClothesType string          `json:"clothesType"`
	Quantity    json.RawMessage `json:"quantity"`
}

// MarkAsDonated records items the NGO received outside a pickup. It uses
// the same increment-or-create as a Picked pickup, so there is still one row
// per clothes type.
func (s *CollectionService) MarkAsDonated(ctx context.Context, ngoID string, in MarkDonatedInput) (*model.Collection, error) {
	clothesType := strings.TrimSpace(in.ClothesType)
	if clothesType == "" {
		return nil, apperror.ValidationFailed("clothesType", "Clothes type is required")
	}
	qty, err := ParseQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}

	c, err := s.store.AddToCollection(ctx, ngoID, clothesType, qty)
	if err != nil {
		return nil, err
	}

	s.metrics.ItemsCollected(qty)
	s.logger.Info("items added to collection",
		slog.String("collection_id", c.ID),
		slog.String("ngo_id", ngoID),
		slog.String("clothes_type", clothesType),
		slog.Int("quantity", qty),
	)
	return c, nil
}

type DistributeInput struct {
	Quantity json.RawMessage `json:"quantity"`
}

// Distribute records items leaving the collection. The store refuses to let
// distributed exceed quantity and writes the audit entry with the update.
func (s *CollectionService) Distribute(ctx context.Context, ngoID, collectionID string, in DistributeInput) (*model.Collection, error) {
	qty, err := ParseQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}

	c, entry, err := s.store.DistributeFromCollection(ctx, collectionID, ngoID, qty)
	if err != nil {
		return nil, err
	}

	s.metrics.ItemsDistributed(qty)
	s.logger.Info("collection distributed",
		slog.String("collection_id", c.ID),
		slog.String("ngo_id", ngoID),
		slog.Int("quantity", qty),
		slog.Int("available", c.Available()),
		slog.String("audit_id", entry.ID),
	)
	return c, nil
}

// List returns the NGO's collection rows, or every row when ngoID is empty.
func (s *CollectionService) List(ctx context.Context, ngoID string) ([]model.Collection, error) {
	return s.store.ListCollections(ctx, repository.CollectionFilter{NGOID: ngoID})
}
