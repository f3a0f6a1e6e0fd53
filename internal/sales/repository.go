package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the sale header and all lines in one transaction. Either
// the whole sale lands or none of it does.
func (r *Repository) Create(ctx context.Context, sale *Sale) (*Sale, error) {
	details, err := json.Marshal(sale.Payment)
	if err != nil {
		return nil, fmt.Errorf("sales: marshal payment: %w", err)
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO sales (customer_id, total_amount, payment_method, payment_details, status, synced)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING id, created_at`,
			sale.CustomerID, sale.TotalAmount, sale.PaymentMethod, details, sale.Status,
		)
		if err := row.Scan(&sale.ID, &sale.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return fmt.Errorf("%w: customer does not exist", shared.ErrNotFound)
			}
			return fmt.Errorf("sales: insert header: %w", err)
		}

		for i := range sale.Items {
			line := &sale.Items[i]
			line.SaleID = sale.ID
			row := tx.QueryRow(ctx, `
				INSERT INTO sale_items (sale_id, item_code, item_name, quantity, rate, amount, discount, discount_type, original_amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				line.SaleID, line.ItemCode, line.ItemName, line.Quantity, line.Rate,
				line.Amount, line.Discount, line.DiscountType, line.OriginalAmount,
			)
			if err := row.Scan(&line.ID); err != nil {
				return fmt.Errorf("sales: insert line %s: %w", line.ItemCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Get returns a sale with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, total_amount, payment_method, payment_details, status, synced, created_at
		FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: sale %d", shared.ErrNotFound, id)
		}
		return nil, err
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

// List returns sales newest first.
func (r *Repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, total_amount, payment_method, payment_details, status, synced, created_at
		FROM sales
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// ListUnsynced returns sales awaiting push in insertion order, lines included.
func (r *Repository) ListUnsynced(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, total_amount, payment_method, payment_details, status, synced, created_at
		FROM sales
		WHERE synced = FALSE
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	sales, err := collectSales(rows)
	if err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := r.itemsFor(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

// MarkSynced records a successful push. Idempotent.
func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales SET synced = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: mark synced: %w", err)
	}
	return nil
}

// CountUnsynced returns the number of sales awaiting push.
func (r *Repository) CountUnsynced(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE synced = FALSE`).Scan(&n)
	return n, err
}

// SumByMethodSince totals recorded sales per mode of payment from the given
// instant. Split payments contribute each leg to its own mode.
func (r *Repository) SumByMethodSince(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT total_amount, payment_details
		FROM sales
		WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var total float64
		var details []byte
		if err := rows.Scan(&total, &details); err != nil {
			return nil, err
		}
		var payment Payment
		if err := json.Unmarshal(details, &payment); err != nil {
			return nil, fmt.Errorf("sales: unmarshal payment: %w", err)
		}
		for method, amount := range payment.AmountsByMethod(total) {
			totals[method] += amount
		}
	}
	return totals, rows.Err()
}

// RecordSubmission journals a push attempt before the remote call. A repeated
// attempt for the same sale keeps the original idempotency key so the remote
// side can deduplicate.
func (r *Repository) RecordSubmission(ctx context.Context, saleID int64, idempotencyKey string) (string, error) {
	var key string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sale_submissions (sale_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (sale_id) DO UPDATE SET submitted_at = now()
		RETURNING idempotency_key`,
		saleID, idempotencyKey,
	).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("sales: record submission: %w", err)
	}
	return key, nil
}

// AcknowledgeSubmission stamps the journal row after the remote accepted the
// sale.
func (r *Repository) AcknowledgeSubmission(ctx context.Context, saleID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sale_submissions SET acknowledged_at = now() WHERE sale_id = $1`, saleID)
	if err != nil {
		return fmt.Errorf("sales: acknowledge submission: %w", err)
	}
	return nil
}

func (r *Repository) itemsFor(ctx context.Context, saleID int64) ([]SaleItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, item_code, item_name, quantity, rate, amount, discount, discount_type, original_amount
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(
			&it.ID, &it.SaleID, &it.ItemCode, &it.ItemName, &it.Quantity,
			&it.Rate, &it.Amount, &it.Discount, &it.DiscountType, &it.OriginalAmount,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func collectSales(rows pgx.Rows) ([]Sale, error) {
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		var details []byte
		if err := rows.Scan(
			&s.ID, &s.CustomerID, &s.TotalAmount, &s.PaymentMethod,
			&details, &s.Status, &s.Synced, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &s.Payment); err != nil {
			return nil, fmt.Errorf("sales: unmarshal payment: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	var details []byte
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.TotalAmount, &s.PaymentMethod,
		&details, &s.Status, &s.Synced, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &s.Payment); err != nil {
		return nil, fmt.Errorf("sales: unmarshal payment: %w", err)
	}
	return &s, nil
}
