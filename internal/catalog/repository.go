package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the catalog mirror.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `item_code, item_name, description, standard_rate, current_stock, barcode, item_group, scale_item_code`

// ReplaceAll swaps the entire item mirror for the given set inside one
// transaction. Pull path only; the mirror is a cache, not a source of truth.
func (r *Repository) ReplaceAll(ctx context.Context, items []Item) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("catalog: clear items: %w", err)
		}
		for _, it := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO items (`+itemColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				it.ItemCode, it.ItemName, it.Description, it.StandardRate,
				it.CurrentStock, it.Barcode, it.ItemGroup, it.ScaleItemCode,
			)
			if err != nil {
				return fmt.Errorf("catalog: insert item %s: %w", it.ItemCode, err)
			}
		}
		return nil
	})
}

// GetByCode returns a single item by its code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE item_code = $1`, code)
	return scanItem(row)
}

// GetByBarcode resolves a fixed-price barcode.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE barcode = $1`, barcode)
	return scanItem(row)
}

// GetByScaleCode resolves the 4-digit scale prefix embedded in weighed barcodes.
func (r *Repository) GetByScaleCode(ctx context.Context, scaleCode string) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE scale_item_code = $1`, scaleCode)
	return scanItem(row)
}

// Search returns items matching code, name or barcode.
func (r *Repository) Search(ctx context.Context, req SearchItemsRequest) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	args := []interface{}{}
	argPos := 1

	where := ""
	if req.Query != "" {
		pattern := "%" + req.Query + "%"
		where = fmt.Sprintf(" WHERE (item_code ILIKE $%d OR item_name ILIKE $%d OR barcode ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, pattern)
		argPos++
	}
	if req.Group != "" {
		if where == "" {
			where = fmt.Sprintf(" WHERE item_group = $%d", argPos)
		} else {
			where += fmt.Sprintf(" AND item_group = $%d", argPos)
		}
		args = append(args, req.Group)
		argPos++
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += where + fmt.Sprintf(" ORDER BY item_name LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ItemCode, &it.ItemName, &it.Description, &it.StandardRate,
			&it.CurrentStock, &it.Barcode, &it.ItemGroup, &it.ScaleItemCode,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the mirror size.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

// ReplacePaymentMethods swaps the payment method mirror.
func (r *Repository) ReplacePaymentMethods(ctx context.Context, methods []PaymentMethod) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment_methods`); err != nil {
			return err
		}
		for _, m := range methods {
			if _, err := tx.Exec(ctx, `INSERT INTO payment_methods (name, kind) VALUES ($1, $2)`, m.Name, m.Kind); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTaxTemplates swaps the tax template mirror.
func (r *Repository) ReplaceTaxTemplates(ctx context.Context, templates []TaxTemplate) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tax_templates`); err != nil {
			return err
		}
		for _, t := range templates {
			if _, err := tx.Exec(ctx, `INSERT INTO tax_templates (name, rate) VALUES ($1, $2)`, t.Name, t.Rate); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePriceLists swaps the price list mirror.
func (r *Repository) ReplacePriceLists(ctx context.Context, lists []PriceList) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM price_lists`); err != nil {
			return err
		}
		for _, p := range lists {
			if _, err := tx.Exec(ctx, `INSERT INTO price_lists (name, currency) VALUES ($1, $2)`, p.Name, p.Currency); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPaymentMethods returns the mirrored payment modes.
func (r *Repository) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, kind FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.Name, &m.Kind); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ItemCode, &it.ItemName, &it.Description, &it.StandardRate,
		&it.CurrentStock, &it.Barcode, &it.ItemGroup, &it.ScaleItemCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: item", shared.ErrNotFound)
		}
		return nil, err
	}
	return &it, nil
}
