package till

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for till sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, pos_user, profile, opening_time, closing_time, status, opening_balance, closing_balance, cash_amount, knet_amount`

// Open inserts a new open session. The partial unique index on open rows
// turns a concurrent second open into a unique violation, reported here as a
// conflict. The itemized amounts start at zero so the returned row scans into
// the non-pointer Session fields; the opening entry fills them in later.
func (r *Repository) Open(ctx context.Context, req OpenSessionRequest) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pos_sessions (id, pos_user, profile, opening_time, status, cash_amount, knet_amount)
		VALUES ($1, $2, $3, NOW(), $4, 0, 0)
		RETURNING `+sessionColumns,
		uuid.New(), req.POSUser, req.Profile, StatusOpen,
	)
	s, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: a till session is already open", shared.ErrConflict)
		}
		return nil, fmt.Errorf("till: open session: %w", err)
	}
	return s, nil
}

// CurrentOpen returns the open session, if any.
func (r *Repository) CurrentOpen(ctx context.Context) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM pos_sessions
		WHERE closing_time IS NULL
		ORDER BY opening_time DESC
		LIMIT 1`)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("till: current session: %w", err)
	}
	return s, nil
}

// SetOpening records the itemized opening amounts on an open session. The row
// is locked for the duration so two cashiers cannot both write an opening
// entry. The written balance is read back and verified before the transaction
// commits.
func (r *Repository) SetOpening(ctx context.Context, id uuid.UUID, req CreateOpeningRequest) (*Session, error) {
	var s *Session
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+sessionColumns+` FROM pos_sessions
			WHERE id = $1 FOR UPDATE`, id)
		current, err := scanSession(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
			}
			return err
		}
		if current.ClosingTime != nil {
			return fmt.Errorf("%w: session %s is closed", shared.ErrConflict, id)
		}
		if current.OpeningBalance != nil {
			return ErrOpeningAlreadySet
		}

		_, err = tx.Exec(ctx, `
			UPDATE pos_sessions
			SET opening_balance = $2, cash_amount = $3, knet_amount = $4,
			    profile = COALESCE(NULLIF($5, ''), profile)
			WHERE id = $1`,
			id, req.CashAmount+req.KnetAmount, req.CashAmount, req.KnetAmount, req.Profile)
		if err != nil {
			return err
		}

		row = tx.QueryRow(ctx, `
			SELECT `+sessionColumns+` FROM pos_sessions WHERE id = $1`, id)
		s, err = scanSession(row)
		if err != nil {
			return err
		}
		if s.OpeningBalance == nil {
			return fmt.Errorf("till: opening balance for session %s not persisted", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close marks a session closed and records the per-mode reconciliation rows
// in the same transaction. The itemized opening amounts stay untouched.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, closingBalance float64, details []ClosingDetail) (*Session, error) {
	var s *Session
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE pos_sessions
			SET closing_time = NOW(), status = $2, closing_balance = $3
			WHERE id = $1 AND closing_time IS NULL
			RETURNING `+sessionColumns,
			id, StatusClosed, closingBalance,
		)
		var err error
		s, err = scanSession(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: session %s is not open", shared.ErrConflict, id)
			}
			return err
		}

		for _, d := range details {
			_, err := tx.Exec(ctx, `
				INSERT INTO pos_session_closings (session_id, mode_of_payment, expected_amount, counted_amount, difference)
				VALUES ($1, $2, $3, $4, $5)`,
				id, d.ModeOfPayment, d.ExpectedAmount, d.CountedAmount, d.Difference,
			)
			if err != nil {
				return fmt.Errorf("till: insert closing detail %s: %w", d.ModeOfPayment, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a session by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM pos_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return s, nil
}

// ClosingDetails returns the reconciliation rows for a closed session.
func (r *Repository) ClosingDetails(ctx context.Context, id uuid.UUID) ([]ClosingDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mode_of_payment, expected_amount, counted_amount, difference
		FROM pos_session_closings
		WHERE session_id = $1
		ORDER BY mode_of_payment`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []ClosingDetail
	for rows.Next() {
		var d ClosingDetail
		if err := rows.Scan(&d.ModeOfPayment, &d.ExpectedAmount, &d.CountedAmount, &d.Difference); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// List returns recent sessions, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM pos_sessions
		ORDER BY opening_time DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.POSUser, &s.Profile, &s.OpeningTime, &s.ClosingTime,
			&s.Status, &s.OpeningBalance, &s.ClosingBalance, &s.CashAmount, &s.KnetAmount,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.POSUser, &s.Profile, &s.OpeningTime, &s.ClosingTime,
		&s.Status, &s.OpeningBalance, &s.ClosingBalance, &s.CashAmount, &s.KnetAmount,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
