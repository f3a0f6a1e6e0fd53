package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusRow is the singleton sync_status record.
type StatusRow struct {
	LastSync        *time.Time `json:"last_sync" db:"last_sync"`
	ItemsSynced     bool       `json:"items_synced" db:"items_synced"`
	CustomersSynced bool       `json:"customers_synced" db:"customers_synced"`
	SalesSynced     bool       `json:"sales_synced" db:"sales_synced"`
}

// Repository persists the sync status singleton.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the current status row.
func (r *Repository) Get(ctx context.Context) (*StatusRow, error) {
	var s StatusRow
	err := r.pool.QueryRow(ctx, `
		SELECT last_sync, items_synced, customers_synced, sales_synced
		FROM sync_status WHERE id = 1`).
		Scan(&s.LastSync, &s.ItemsSynced, &s.CustomersSynced, &s.SalesSynced)
	if err != nil {
		return nil, fmt.Errorf("sync: load status: %w", err)
	}
	return &s, nil
}

// Save overwrites the status row.
func (r *Repository) Save(ctx context.Context, s StatusRow) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sync_status
		SET last_sync = $1, items_synced = $2, customers_synced = $3, sales_synced = $4
		WHERE id = 1`,
		s.LastSync, s.ItemsSynced, s.CustomersSynced, s.SalesSynced,
	)
	if err != nil {
		return fmt.Errorf("sync: save status: %w", err)
	}
	return nil
}
