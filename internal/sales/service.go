package sales

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/shared"
	"github.com/tillbridge/tillbridge/internal/till"
)

// saleStore is the slice of Repository the service needs.
type saleStore interface {
	Create(ctx context.Context, sale *Sale) (*Sale, error)
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, error)
	SumByMethodSince(ctx context.Context, since time.Time) (map[string]float64, error)
}

// sessionGuard reports the current open till session. Sales can only be
// recorded while one is open.
type sessionGuard interface {
	Current(ctx context.Context) (*till.Session, error)
}

// customerDirectory resolves customer display fields for receipts.
type customerDirectory interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// Service records sales into the local ledger.
type Service struct {
	store     saleStore
	sessions  sessionGuard
	customers customerDirectory
}

// NewService constructs a sales service.
func NewService(store saleStore, sessions sessionGuard, customers customerDirectory) *Service {
	return &Service{store: store, sessions: sessions, customers: customers}
}

// Record validates and persists a sale. The sale is written unsynced; the
// push path carries it upstream later.
func (s *Service) Record(ctx context.Context, req CreateSaleRequest) (*Sale, error) {
	if _, err := s.sessions.Current(ctx); err != nil {
		return nil, err
	}

	items := make([]SaleItem, 0, len(req.Items))
	total := 0.0
	for _, line := range req.Items {
		item, err := buildLine(line)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
		total += item.Amount
	}
	total = round3(total)

	if err := req.Payment.Validate(total); err != nil {
		return nil, err
	}

	sale := &Sale{
		CustomerID:    req.CustomerID,
		TotalAmount:   total,
		PaymentMethod: req.Payment.PrimaryMethod(),
		Payment:       req.Payment,
		Status:        "completed",
		Synced:        false,
		Items:         items,
	}
	created, err := s.store.Create(ctx, sale)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateCustomer(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns a sale with its lines and customer display name.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateCustomer(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// List returns recorded sales.
func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	return s.store.List(ctx, req)
}

// SumByMethodSince exposes per-mode totals for till reconciliation.
func (s *Service) SumByMethodSince(ctx context.Context, since time.Time) (map[string]float64, error) {
	return s.store.SumByMethodSince(ctx, since)
}

func (s *Service) hydrateCustomer(ctx context.Context, sale *Sale) error {
	if sale.CustomerID == nil {
		return nil
	}
	c, err := s.customers.Get(ctx, *sale.CustomerID)
	if err != nil {
		return fmt.Errorf("sales: resolve customer %d: %w", *sale.CustomerID, err)
	}
	sale.CustomerName = &c.CustomerName
	return nil
}

func buildLine(req CreateSaleLineRequest) (*SaleItem, error) {
	gross := round3(req.Quantity * req.Rate)

	item := &SaleItem{
		ItemCode: req.ItemCode,
		ItemName: req.ItemName,
		Quantity: req.Quantity,
		Rate:     req.Rate,
		Amount:   gross,
	}
	if req.Discount == 0 {
		return item, nil
	}

	var discounted float64
	switch req.DiscountType {
	case DiscountPercentage:
		if req.Discount > 100 {
			return nil, fmt.Errorf("%w: percentage discount on %s exceeds 100", shared.ErrValidation, req.ItemCode)
		}
		discounted = gross * (1 - req.Discount/100)
	case DiscountFixed:
		discounted = gross - req.Discount
	case "":
		return nil, fmt.Errorf("%w: discount on %s needs a discount_type", shared.ErrValidation, req.ItemCode)
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", shared.ErrValidation, req.DiscountType)
	}
	if discounted < 0 {
		return nil, fmt.Errorf("%w: discount on %s exceeds line amount", shared.ErrValidation, req.ItemCode)
	}

	original := gross
	discountType := req.DiscountType
	item.Amount = round3(discounted)
	item.Discount = req.Discount
	item.DiscountType = &discountType
	item.OriginalAmount = &original
	return item, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
