package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, customer_name, mobile, email, erpnext_id, synced, created_at, updated_at`

// Create inserts a new locally registered customer. The row starts unsynced.
func (r *Repository) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (customer_name, mobile, email, synced)
		VALUES ($1, $2, $3, FALSE)
		RETURNING `+customerColumns,
		req.CustomerName, req.Mobile, req.Email,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: mobile %s already registered", shared.ErrConflict, req.Mobile)
		}
		return nil, fmt.Errorf("customers: create: %w", err)
	}
	return c, nil
}

// Update edits a customer and clears its synced flag.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE customers
		SET customer_name = $2, mobile = $3, email = $4, synced = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, req.CustomerName, req.Mobile, req.Email,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: mobile %s already registered", shared.ErrConflict, req.Mobile)
		}
		return nil, fmt.Errorf("customers: update: %w", err)
	}
	return c, nil
}

// Get returns a customer by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

// GetByMobile returns a customer by mobile number.
func (r *Repository) GetByMobile(ctx context.Context, mobile string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE mobile = $1`, mobile)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer with mobile %s", shared.ErrNotFound, mobile)
		}
		return nil, err
	}
	return c, nil
}

// Search returns customers matching name or mobile.
func (r *Repository) Search(ctx context.Context, req SearchCustomersRequest) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	args := []interface{}{}
	argPos := 1

	if req.Query != "" {
		query += fmt.Sprintf(" WHERE (customer_name ILIKE $%d OR mobile ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Query+"%")
		argPos++
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY customer_name LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)

	return r.queryCustomers(ctx, query, args...)
}

// ListUnsynced returns customers awaiting push, oldest first.
func (r *Repository) ListUnsynced(ctx context.Context) ([]Customer, error) {
	return r.queryCustomers(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE synced = FALSE
		ORDER BY created_at`)
}

// MarkSynced records a successful push, attaching the remote identifier.
// Idempotent; marking an already synced customer is a no-op.
func (r *Repository) MarkSynced(ctx context.Context, id int64, erpnextID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers SET synced = TRUE, erpnext_id = $2, updated_at = NOW()
		WHERE id = $1`,
		id, erpnextID,
	)
	if err != nil {
		return fmt.Errorf("customers: mark synced: %w", err)
	}
	return nil
}

// ReplaceSynced refreshes the mirrored portion of the customer table from a
// pull. The refresh is a pure upsert keyed on mobile: existing rows keep
// their ids so sales referencing them stay valid, and rows are never deleted.
// Local customers that have not been pushed yet are left untouched, so a pull
// can never lose a customer registered offline.
func (r *Repository) ReplaceSynced(ctx context.Context, remote []Customer) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return upsertSynced(ctx, tx, remote)
	})
}

// execer is the slice of pgx.Tx the pull upsert needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const upsertSyncedCustomerSQL = `
	INSERT INTO customers (customer_name, mobile, email, erpnext_id, synced)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (mobile) DO UPDATE
	SET customer_name = EXCLUDED.customer_name,
	    email = EXCLUDED.email,
	    erpnext_id = EXCLUDED.erpnext_id,
	    synced = TRUE,
	    updated_at = NOW()`

func upsertSynced(ctx context.Context, tx execer, remote []Customer) error {
	for _, c := range remote {
		if _, err := tx.Exec(ctx, upsertSyncedCustomerSQL,
			c.CustomerName, c.Mobile, c.Email, c.ERPNextID,
		); err != nil {
			return fmt.Errorf("customers: upsert %s: %w", c.Mobile, err)
		}
	}
	return nil
}

// CountUnsynced returns the number of customers awaiting push.
func (r *Repository) CountUnsynced(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE synced = FALSE`).Scan(&n)
	return n, err
}

func (r *Repository) queryCustomers(ctx context.Context, query string, args ...interface{}) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.CustomerName, &c.Mobile, &c.Email,
			&c.ERPNextID, &c.Synced, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.CustomerName, &c.Mobile, &c.Email,
		&c.ERPNextID, &c.Synced, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
