package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbridge/tillbridge/internal/shared"
)

type mockItemStore struct {
	byBarcode   map[string]*Item
	byScaleCode map[string]*Item
	byCode      map[string]*Item

	barcodeErr error
	searchErr  error
}

func (m *mockItemStore) GetByCode(_ context.Context, code string) (*Item, error) {
	if it, ok := m.byCode[code]; ok {
		return it, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemStore) GetByBarcode(_ context.Context, barcode string) (*Item, error) {
	if m.barcodeErr != nil {
		return nil, m.barcodeErr
	}
	if it, ok := m.byBarcode[barcode]; ok {
		return it, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemStore) GetByScaleCode(_ context.Context, scaleCode string) (*Item, error) {
	if it, ok := m.byScaleCode[scaleCode]; ok {
		return it, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemStore) Search(_ context.Context, _ SearchItemsRequest) ([]Item, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var items []Item
	for _, it := range m.byCode {
		items = append(items, *it)
	}
	return items, nil
}

func (m *mockItemStore) ListPaymentMethods(_ context.Context) ([]PaymentMethod, error) {
	return []PaymentMethod{{Name: "Cash", Kind: "cash"}}, nil
}

func ptr[T any](v T) *T { return &v }

func TestScanFixedBarcode(t *testing.T) {
	store := &mockItemStore{
		byBarcode: map[string]*Item{
			"6291041500213": {ItemCode: "ITM-001", ItemName: "Milk 1L", StandardRate: 0.450, Barcode: ptr("6291041500213")},
		},
	}
	svc := NewService(store)

	result, err := svc.Scan(context.Background(), "6291041500213")
	require.NoError(t, err)
	require.Equal(t, "ITM-001", result.Item.ItemCode)
	require.Equal(t, 1.0, result.Quantity)
	require.InDelta(t, 0.450, result.Amount, 1e-9)
	require.False(t, result.Weighed)
}

func TestScanScaleBarcode(t *testing.T) {
	store := &mockItemStore{
		byScaleCode: map[string]*Item{
			"2121": {ItemCode: "ITM-TOM", ItemName: "Tomato", ScaleItemCode: ptr("2121")},
		},
	}
	svc := NewService(store)

	result, err := svc.Scan(context.Background(), "212100500300")
	require.NoError(t, err)
	require.Equal(t, "ITM-TOM", result.Item.ItemCode)
	require.InDelta(t, 0.500, result.Quantity, 1e-9)
	require.InDelta(t, 0.300, result.Rate, 1e-9)
	require.InDelta(t, 0.150, result.Amount, 1e-9)
	require.True(t, result.Weighed)
}

func TestScanFixedBarcodeWinsOverScaleDecoding(t *testing.T) {
	// A 12-digit code that also exists as a plain barcode must resolve as one.
	store := &mockItemStore{
		byBarcode: map[string]*Item{
			"212100500300": {ItemCode: "ITM-FIX", StandardRate: 1.250},
		},
	}
	svc := NewService(store)

	result, err := svc.Scan(context.Background(), "212100500300")
	require.NoError(t, err)
	require.Equal(t, "ITM-FIX", result.Item.ItemCode)
	require.False(t, result.Weighed)
}

func TestScanUnknownBarcode(t *testing.T) {
	svc := NewService(&mockItemStore{})

	_, err := svc.Scan(context.Background(), "0000000000000")
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestScanEmptyBarcode(t *testing.T) {
	svc := NewService(&mockItemStore{})

	_, err := svc.Scan(context.Background(), "")
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestScanPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	svc := NewService(&mockItemStore{barcodeErr: storeErr})

	_, err := svc.Scan(context.Background(), "6291041500213")
	require.ErrorIs(t, err, storeErr)
}
