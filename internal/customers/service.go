package customers

import (
	"context"
)

// customerStore is the slice of Repository the service needs.
type customerStore interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByMobile(ctx context.Context, mobile string) (*Customer, error)
	Search(ctx context.Context, req SearchCustomersRequest) ([]Customer, error)
}

// Service handles customer registration and lookup at the till.
type Service struct {
	store customerStore
}

// NewService constructs a customer service.
func NewService(store customerStore) *Service {
	return &Service{store: store}
}

// Create registers a new customer locally. The record is pushed upstream on
// the next sync run.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	return s.store.Create(ctx, req)
}

// Update edits a customer. The row is re-queued for push.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	return s.store.Update(ctx, id, req)
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.store.Get(ctx, id)
}

// GetByMobile returns a customer by mobile number.
func (s *Service) GetByMobile(ctx context.Context, mobile string) (*Customer, error) {
	return s.store.GetByMobile(ctx, mobile)
}

// Search returns customers matching the request.
func (s *Service) Search(ctx context.Context, req SearchCustomersRequest) ([]Customer, error) {
	return s.store.Search(ctx, req)
}
