package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{"title", "clothesType", "quantity", "address", "city", "pincode", "status", "pickupDate"}

// ExportCSV writes the NGO's pickups as CSV with a fixed column set.
func (s *PickupService) ExportCSV(ctx context.Context, ngoID string, w io.Writer) error {
	pickups, err := s.ForNGO(ctx, ngoID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("service/export: writing header: %w", err)
	}
	for _, p := range pickups {
		err := cw.Write([]string{
			p.Title,
			p.ClothesType,
			strconv.Itoa(p.Quantity),
			p.Address,
			p.City,
			p.Pincode,
			string(p.Status),
			p.PickupDate.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("service/export: writing pickup %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
