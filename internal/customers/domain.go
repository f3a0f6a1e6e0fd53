package customers

import "time"

// Customer is a locally recorded or mirrored customer. Rows created at the
// till start unsynced and acquire an ERPNext identifier once pushed.
type Customer struct {
	ID           int64     `json:"id" db:"id"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	Mobile       string    `json:"mobile" db:"mobile"`
	Email        *string   `json:"email,omitempty" db:"email"`
	ERPNextID    *string   `json:"erpnext_id,omitempty" db:"erpnext_id"`
	Synced       bool      `json:"synced" db:"synced"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreateCustomerRequest is the payload for registering a customer at the till.
type CreateCustomerRequest struct {
	CustomerName string  `json:"customer_name" validate:"required,min=2,max=140"`
	Mobile       string  `json:"mobile" validate:"required,min=6,max=20"`
	Email        *string `json:"email" validate:"omitempty,email"`
}

// UpdateCustomerRequest edits an existing customer. Any edit marks the row
// unsynced again so the next push carries it.
type UpdateCustomerRequest struct {
	CustomerName string  `json:"customer_name" validate:"required,min=2,max=140"`
	Mobile       string  `json:"mobile" validate:"required,min=6,max=20"`
	Email        *string `json:"email" validate:"omitempty,email"`
}

// SearchCustomersRequest filters the customer list.
type SearchCustomersRequest struct {
	Query  string `json:"query" validate:"omitempty,max=100"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}
