package sales

import (
	"fmt"
	"math"
	"time"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// Discount types accepted on a sale line.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Payment kinds.
const (
	PaymentSingle = "single"
	PaymentSplit  = "split"
)

// paymentEpsilon is the tolerance when comparing split-payment sums against
// the sale total. Amounts are 3-decimal currency values.
const paymentEpsilon = 0.0005

// PaymentLeg is one part of a split payment.
type PaymentLeg struct {
	Method string  `json:"method" validate:"required,max=140"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

// Payment is a tagged variant: a single method covering the whole total, or a
// list of legs that must sum to it.
type Payment struct {
	Kind   string       `json:"kind" validate:"required,oneof=single split"`
	Method string       `json:"method,omitempty" validate:"required_if=Kind single,max=140"`
	Legs   []PaymentLeg `json:"legs,omitempty" validate:"required_if=Kind split,dive"`
}

// Validate checks the payment against the sale total.
func (p Payment) Validate(total float64) error {
	switch p.Kind {
	case PaymentSingle:
		if p.Method == "" {
			return fmt.Errorf("%w: payment method required", shared.ErrValidation)
		}
		if len(p.Legs) != 0 {
			return fmt.Errorf("%w: single payment cannot carry legs", shared.ErrValidation)
		}
		return nil
	case PaymentSplit:
		if len(p.Legs) < 2 {
			return fmt.Errorf("%w: split payment needs at least two legs", shared.ErrValidation)
		}
		sum := 0.0
		for _, leg := range p.Legs {
			if leg.Method == "" {
				return fmt.Errorf("%w: split leg method required", shared.ErrValidation)
			}
			if leg.Amount <= 0 {
				return fmt.Errorf("%w: split leg amount must be positive", shared.ErrValidation)
			}
			sum += leg.Amount
		}
		if math.Abs(sum-total) > paymentEpsilon {
			return fmt.Errorf("%w: split legs sum to %.3f, sale total is %.3f", shared.ErrValidation, sum, total)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown payment kind %q", shared.ErrValidation, p.Kind)
	}
}

// PrimaryMethod is the value stored in the sales.payment_method column and
// used when grouping totals per mode of payment.
func (p Payment) PrimaryMethod() string {
	if p.Kind == PaymentSplit {
		return "Split"
	}
	return p.Method
}

// AmountsByMethod distributes the sale total across modes of payment.
func (p Payment) AmountsByMethod(total float64) map[string]float64 {
	if p.Kind == PaymentSplit {
		out := make(map[string]float64, len(p.Legs))
		for _, leg := range p.Legs {
			out[leg.Method] += leg.Amount
		}
		return out
	}
	return map[string]float64{p.Method: total}
}

// SaleItem is one recorded sale line. OriginalAmount holds the pre-discount
// amount when a discount applied.
type SaleItem struct {
	ID             int64    `json:"id" db:"id"`
	SaleID         int64    `json:"sale_id" db:"sale_id"`
	ItemCode       string   `json:"item_code" db:"item_code"`
	ItemName       string   `json:"item_name" db:"item_name"`
	Quantity       float64  `json:"quantity" db:"quantity"`
	Rate           float64  `json:"rate" db:"rate"`
	Amount         float64  `json:"amount" db:"amount"`
	Discount       float64  `json:"discount" db:"discount"`
	DiscountType   *string  `json:"discount_type,omitempty" db:"discount_type"`
	OriginalAmount *float64 `json:"original_amount,omitempty" db:"original_amount"`
}

// Sale is a locally recorded sale awaiting push. CustomerName is hydrated
// from the customer table for receipt use and never stored on the sale row.
type Sale struct {
	ID            int64      `json:"id" db:"id"`
	CustomerID    *int64     `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName  *string    `json:"customer_name,omitempty" db:"-"`
	TotalAmount   float64    `json:"total_amount" db:"total_amount"`
	PaymentMethod string     `json:"payment_method" db:"payment_method"`
	Payment       Payment    `json:"payment_details" db:"payment_details"`
	Status        string     `json:"status" db:"status"`
	Synced        bool       `json:"synced" db:"synced"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	Items         []SaleItem `json:"items"`
}

// CreateSaleLineRequest is one line of a sale being recorded.
type CreateSaleLineRequest struct {
	ItemCode     string  `json:"item_code" validate:"required,max=140"`
	ItemName     string  `json:"item_name" validate:"max=200"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Rate         float64 `json:"rate" validate:"gte=0"`
	Discount     float64 `json:"discount" validate:"gte=0"`
	DiscountType string  `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
}

// CreateSaleRequest records a completed sale.
type CreateSaleRequest struct {
	CustomerID *int64                  `json:"customer_id"`
	Items      []CreateSaleLineRequest `json:"items" validate:"required,min=1,dive"`
	Payment    Payment                 `json:"payment"`
}

// ListSalesRequest pages through recorded sales.
type ListSalesRequest struct {
	Limit  int `json:"limit" validate:"gte=0,lte=500"`
	Offset int `json:"offset" validate:"gte=0"`
}
