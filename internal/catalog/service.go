package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// itemStore is the slice of Repository the service needs.
type itemStore interface {
	GetByCode(ctx context.Context, code string) (*Item, error)
	GetByBarcode(ctx context.Context, barcode string) (*Item, error)
	GetByScaleCode(ctx context.Context, scaleCode string) (*Item, error)
	Search(ctx context.Context, req SearchItemsRequest) ([]Item, error)
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// Service provides read access to the catalog mirror for the UI collaborator.
type Service struct {
	store itemStore
}

// NewService constructs a catalog service.
func NewService(store itemStore) *Service {
	return &Service{store: store}
}

// ScanResult is what a barcode scan resolves to. For weighed items Quantity
// carries the decoded weight and Rate/Amount the per-kg pricing from the
// barcode itself rather than the catalog rate.
type ScanResult struct {
	Item     Item    `json:"item"`
	Quantity float64 `json:"quantity"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
	Weighed  bool    `json:"weighed"`
}

// Scan resolves a scanned barcode to an item. Fixed-price barcodes match the
// barcode column directly; 12-digit codes with no direct match are decoded as
// scale barcodes.
func (s *Service) Scan(ctx context.Context, barcode string) (*ScanResult, error) {
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode required", shared.ErrValidation)
	}

	item, err := s.store.GetByBarcode(ctx, barcode)
	if err == nil {
		return &ScanResult{
			Item:     *item,
			Quantity: 1,
			Rate:     item.StandardRate,
			Amount:   item.StandardRate,
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	reading, perr := ParseScaleBarcode(barcode)
	if perr != nil {
		return nil, fmt.Errorf("%w: unknown barcode %s", shared.ErrNotFound, barcode)
	}
	item, err = s.store.GetByScaleCode(ctx, reading.ScaleCode)
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		Item:     *item,
		Quantity: reading.WeightKg,
		Rate:     reading.Rate,
		Amount:   reading.Total,
		Weighed:  true,
	}, nil
}

// Search returns items matching the request.
func (s *Service) Search(ctx context.Context, req SearchItemsRequest) ([]Item, error) {
	return s.store.Search(ctx, req)
}

// Get returns a single item by code.
func (s *Service) Get(ctx context.Context, code string) (*Item, error) {
	return s.store.GetByCode(ctx, code)
}

// PaymentMethods lists the mirrored payment modes.
func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx)
}
