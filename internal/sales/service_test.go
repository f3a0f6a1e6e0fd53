package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/shared"
	"github.com/tillbridge/tillbridge/internal/till"
)

type mockSaleStore struct {
	nextID    int64
	sales     map[int64]*Sale
	createErr error
}

func newMockSaleStore() *mockSaleStore {
	return &mockSaleStore{sales: map[int64]*Sale{}}
}

func (m *mockSaleStore) Create(_ context.Context, sale *Sale) (*Sale, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	sale.ID = m.nextID
	sale.CreatedAt = time.Now()
	m.sales[sale.ID] = sale
	return sale, nil
}

func (m *mockSaleStore) Get(_ context.Context, id int64) (*Sale, error) {
	if s, ok := m.sales[id]; ok {
		return s, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockSaleStore) List(_ context.Context, _ ListSalesRequest) ([]Sale, error) {
	var out []Sale
	for _, s := range m.sales {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockSaleStore) SumByMethodSince(_ context.Context, since time.Time) (map[string]float64, error) {
	totals := map[string]float64{}
	for _, s := range m.sales {
		if s.CreatedAt.Before(since) {
			continue
		}
		for method, amount := range s.Payment.AmountsByMethod(s.TotalAmount) {
			totals[method] += amount
		}
	}
	return totals, nil
}

type mockCustomerDirectory struct {
	byID map[int64]*customers.Customer
}

func noCustomers() *mockCustomerDirectory {
	return &mockCustomerDirectory{}
}

func (m *mockCustomerDirectory) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
}

type mockSessionGuard struct {
	session *till.Session
	err     error
}

func (m *mockSessionGuard) Current(_ context.Context) (*till.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func openGuard() *mockSessionGuard {
	return &mockSessionGuard{session: &till.Session{Status: till.StatusOpen, OpeningTime: time.Now()}}
}

func TestRecordSale(t *testing.T) {
	store := newMockSaleStore()
	svc := NewService(store, openGuard(), noCustomers())

	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", ItemName: "Milk 1L", Quantity: 2, Rate: 0.450},
			{ItemCode: "ITM-002", ItemName: "Bread", Quantity: 1, Rate: 0.250},
		},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)
	require.InDelta(t, 1.150, sale.TotalAmount, 1e-9)
	require.Equal(t, "Cash", sale.PaymentMethod)
	require.False(t, sale.Synced)
	require.Len(t, sale.Items, 2)
}

func TestRecordSaleHydratesCustomerName(t *testing.T) {
	store := newMockSaleStore()
	directory := &mockCustomerDirectory{byID: map[int64]*customers.Customer{
		7: {ID: 7, CustomerName: "Aisha", Mobile: "96550001122"},
	}}
	svc := NewService(store, openGuard(), directory)

	customerID := int64(7)
	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		CustomerID: &customerID,
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", ItemName: "Milk 1L", Quantity: 1, Rate: 0.450},
		},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerName)
	require.Equal(t, "Aisha", *sale.CustomerName)

	fetched, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.CustomerName)
	require.Equal(t, "Aisha", *fetched.CustomerName)
}

func TestRecordSaleRequiresOpenSession(t *testing.T) {
	svc := NewService(newMockSaleStore(), &mockSessionGuard{err: till.ErrNoOpenSession}, noCustomers())

	_, err := svc.Record(context.Background(), CreateSaleRequest{
		Items:   []CreateSaleLineRequest{{ItemCode: "ITM-001", Quantity: 1, Rate: 1}},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.ErrorIs(t, err, till.ErrNoOpenSession)
}

func TestRecordSaleSplitPayment(t *testing.T) {
	store := newMockSaleStore()
	svc := NewService(store, openGuard(), noCustomers())

	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", Quantity: 1, Rate: 10.000},
		},
		Payment: Payment{Kind: PaymentSplit, Legs: []PaymentLeg{
			{Method: "Cash", Amount: 4.000},
			{Method: "Knet", Amount: 6.000},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "Split", sale.PaymentMethod)
}

func TestRecordSaleSplitSumMismatch(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	_, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", Quantity: 1, Rate: 10.000},
		},
		Payment: Payment{Kind: PaymentSplit, Legs: []PaymentLeg{
			{Method: "Cash", Amount: 4.000},
			{Method: "Knet", Amount: 5.000},
		}},
	})
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestRecordSaleSplitToleratesRounding(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	// Legs off by less than half a thousandth still pass.
	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", Quantity: 3, Rate: 0.333},
		},
		Payment: Payment{Kind: PaymentSplit, Legs: []PaymentLeg{
			{Method: "Cash", Amount: 0.500},
			{Method: "Knet", Amount: 0.4993},
		}},
	})
	require.NoError(t, err)
	require.InDelta(t, 0.999, sale.TotalAmount, 1e-9)
}

func TestRecordSalePercentageDiscount(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", Quantity: 2, Rate: 5.000, Discount: 10, DiscountType: DiscountPercentage},
		},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)
	require.InDelta(t, 9.000, sale.TotalAmount, 1e-9)
	require.NotNil(t, sale.Items[0].OriginalAmount)
	require.InDelta(t, 10.000, *sale.Items[0].OriginalAmount, 1e-9)
}

func TestRecordSaleFixedDiscount(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-001", Quantity: 1, Rate: 5.000, Discount: 0.500, DiscountType: DiscountFixed},
		},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)
	require.InDelta(t, 4.500, sale.TotalAmount, 1e-9)
}

func TestRecordSaleDiscountValidation(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	cases := []struct {
		name string
		line CreateSaleLineRequest
	}{
		{"missing type", CreateSaleLineRequest{ItemCode: "X", Quantity: 1, Rate: 1, Discount: 0.5}},
		{"over 100 percent", CreateSaleLineRequest{ItemCode: "X", Quantity: 1, Rate: 1, Discount: 150, DiscountType: DiscountPercentage}},
		{"fixed exceeds amount", CreateSaleLineRequest{ItemCode: "X", Quantity: 1, Rate: 1, Discount: 2, DiscountType: DiscountFixed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), CreateSaleRequest{
				Items:   []CreateSaleLineRequest{tc.line},
				Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
			})
			require.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestRecordSaleWeighedQuantity(t *testing.T) {
	svc := NewService(newMockSaleStore(), openGuard(), noCustomers())

	// 0.500 kg at 0.300 per kg.
	sale, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{
			{ItemCode: "ITM-TOM", ItemName: "Tomato", Quantity: 0.500, Rate: 0.300},
		},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)
	require.InDelta(t, 0.150, sale.TotalAmount, 1e-9)
}

func TestSumByMethodSinceSplitsLegs(t *testing.T) {
	store := newMockSaleStore()
	svc := NewService(store, openGuard(), noCustomers())

	_, err := svc.Record(context.Background(), CreateSaleRequest{
		Items: []CreateSaleLineRequest{{ItemCode: "A", Quantity: 1, Rate: 10}},
		Payment: Payment{Kind: PaymentSplit, Legs: []PaymentLeg{
			{Method: "Cash", Amount: 4},
			{Method: "Knet", Amount: 6},
		}},
	})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), CreateSaleRequest{
		Items:   []CreateSaleLineRequest{{ItemCode: "B", Quantity: 1, Rate: 5}},
		Payment: Payment{Kind: PaymentSingle, Method: "Cash"},
	})
	require.NoError(t, err)

	totals, err := svc.SumByMethodSince(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.InDelta(t, 9, totals["Cash"], 1e-9)
	require.InDelta(t, 6, totals["Knet"], 1e-9)
}

func TestPaymentValidate(t *testing.T) {
	require.Error(t, Payment{Kind: "single"}.Validate(1))
	require.Error(t, Payment{Kind: "split", Legs: []PaymentLeg{{Method: "Cash", Amount: 1}}}.Validate(1))
	require.Error(t, Payment{Kind: "other"}.Validate(1))
	require.NoError(t, Payment{Kind: "single", Method: "Cash"}.Validate(1))
}
