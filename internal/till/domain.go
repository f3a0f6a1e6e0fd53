package till

import (
	"time"

	"github.com/google/uuid"
)

// Session states.
const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"
)

// Session is one till session between an opening and a closing entry. At most
// one session is open at a time; the database enforces this with a partial
// unique index on open rows. CashAmount and KnetAmount are the itemized
// opening amounts recorded by the opening entry; OpeningBalance is their sum.
type Session struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	POSUser        string     `json:"pos_user" db:"pos_user"`
	Profile        string     `json:"profile" db:"profile"`
	OpeningTime    time.Time  `json:"opening_time" db:"opening_time"`
	ClosingTime    *time.Time `json:"closing_time,omitempty" db:"closing_time"`
	Status         string     `json:"status" db:"status"`
	OpeningBalance *float64   `json:"opening_balance,omitempty" db:"opening_balance"`
	ClosingBalance *float64   `json:"closing_balance,omitempty" db:"closing_balance"`
	CashAmount     float64    `json:"cash_amount" db:"cash_amount"`
	KnetAmount     float64    `json:"knet_amount" db:"knet_amount"`
}

// ClosingDetail reconciles one mode of payment at close time.
type ClosingDetail struct {
	ModeOfPayment  string  `json:"mode_of_payment" db:"mode_of_payment"`
	ExpectedAmount float64 `json:"expected_amount" db:"expected_amount"`
	CountedAmount  float64 `json:"counted_amount" db:"counted_amount"`
	Difference     float64 `json:"difference" db:"difference"`
}

// ClosingSummary is the full result of closing a session.
type ClosingSummary struct {
	Session Session         `json:"session"`
	Details []ClosingDetail `json:"details"`
}

// OpenSessionRequest starts a new till session.
type OpenSessionRequest struct {
	POSUser string `json:"pos_user" validate:"required,max=140"`
	Profile string `json:"profile" validate:"required,max=140"`
}

// CreateOpeningRequest records the counted opening float for the current
// open session, itemized per payment mode. The aggregate opening balance is
// the sum of the two amounts. Profile, when given, replaces the one set at
// open.
type CreateOpeningRequest struct {
	CashAmount float64 `json:"cash_amount" validate:"gte=0"`
	KnetAmount float64 `json:"knet_amount" validate:"gte=0"`
	Profile    string  `json:"profile" validate:"max=140"`
}

// CountedAmount is the drawer count for one mode of payment at close.
type CountedAmount struct {
	ModeOfPayment string  `json:"mode_of_payment" validate:"required,max=140"`
	Amount        float64 `json:"amount" validate:"gte=0"`
}

// CloseSessionRequest closes the current open session with per-mode counts.
type CloseSessionRequest struct {
	Counted []CountedAmount `json:"counted" validate:"required,min=1,dive"`
}
