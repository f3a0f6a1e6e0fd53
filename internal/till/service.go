package till

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// Till errors.
var (
	ErrNoOpenSession     = fmt.Errorf("%w: no open till session", shared.ErrNotFound)
	ErrOpeningAlreadySet = fmt.Errorf("%w: opening entry already recorded", shared.ErrConflict)
)

// Modes of payment with dedicated columns on the session row.
const (
	ModeCash = "Cash"
	ModeKnet = "Knet"
)

const (
	currentSessionKey = "till:current_session"
	currentSessionTTL = 30 * time.Second
)

// sessionStore is the slice of Repository the service needs.
type sessionStore interface {
	Open(ctx context.Context, req OpenSessionRequest) (*Session, error)
	CurrentOpen(ctx context.Context) (*Session, error)
	SetOpening(ctx context.Context, id uuid.UUID, req CreateOpeningRequest) (*Session, error)
	Close(ctx context.Context, id uuid.UUID, closingBalance float64, details []ClosingDetail) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	ClosingDetails(ctx context.Context, id uuid.UUID) ([]ClosingDetail, error)
	List(ctx context.Context, limit int) ([]Session, error)
}

// salesTotals reports recorded sale amounts grouped by mode of payment.
type salesTotals interface {
	SumByMethodSince(ctx context.Context, since time.Time) (map[string]float64, error)
}

// Service manages the till session lifecycle.
type Service struct {
	logger *slog.Logger
	store  sessionStore
	sales  salesTotals
	cache  *redis.Client
}

// NewService constructs a till service. cache may be nil; the current-session
// lookup then always hits the database.
func NewService(logger *slog.Logger, store sessionStore, sales salesTotals, cache *redis.Client) *Service {
	return &Service{logger: logger, store: store, sales: sales, cache: cache}
}

// Open starts a new till session. Fails with a conflict when one is already
// open.
func (s *Service) Open(ctx context.Context, req OpenSessionRequest) (*Session, error) {
	session, err := s.store.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidateCurrent(ctx)
	return session, nil
}

// CreateOpening records the itemized opening amounts on the current open
// session. A session accepts exactly one opening entry.
func (s *Service) CreateOpening(ctx context.Context, req CreateOpeningRequest) (*Session, error) {
	current, err := s.store.CurrentOpen(ctx)
	if err != nil {
		return nil, err
	}
	session, err := s.store.SetOpening(ctx, current.ID, req)
	if err != nil {
		return nil, err
	}
	s.invalidateCurrent(ctx)
	return session, nil
}

// Current returns the open session, read through the cache when available.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, currentSessionKey).Bytes(); err == nil {
			var cached Session
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	session, err := s.store.CurrentOpen(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(session); err == nil {
			if err := s.cache.Set(ctx, currentSessionKey, raw, currentSessionTTL).Err(); err != nil {
				s.logger.Warn("cache current session", slog.Any("error", err))
			}
		}
	}
	return session, nil
}

// Close reconciles and closes the current open session. Per mode, the
// expected amount is the opening amount for that mode plus the sales recorded
// since the session opened; the difference is counted minus expected, with a
// negative value recording a shortage. Modes with sales or an opening amount
// but no drawer count are reconciled against a zero count.
func (s *Service) Close(ctx context.Context, req CloseSessionRequest) (*ClosingSummary, error) {
	current, err := s.store.CurrentOpen(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.sales.SumByMethodSince(ctx, current.OpeningTime)
	if err != nil {
		return nil, fmt.Errorf("till: sales totals: %w", err)
	}

	opening := map[string]float64{
		ModeCash: current.CashAmount,
		ModeKnet: current.KnetAmount,
	}

	counted := make(map[string]float64, len(req.Counted))
	for _, c := range req.Counted {
		if _, dup := counted[c.ModeOfPayment]; dup {
			return nil, fmt.Errorf("%w: duplicate count for %s", shared.ErrValidation, c.ModeOfPayment)
		}
		counted[c.ModeOfPayment] = c.Amount
	}
	for mode := range totals {
		if _, ok := counted[mode]; !ok {
			counted[mode] = 0
		}
	}
	for mode, amount := range opening {
		if _, ok := counted[mode]; !ok && amount != 0 {
			counted[mode] = 0
		}
	}

	closingBalance := 0.0
	details := make([]ClosingDetail, 0, len(counted))
	for mode, amount := range counted {
		expected := totals[mode] + opening[mode]
		closingBalance += amount
		details = append(details, ClosingDetail{
			ModeOfPayment:  mode,
			ExpectedAmount: roundAmount(expected),
			CountedAmount:  roundAmount(amount),
			Difference:     roundAmount(amount - expected),
		})
	}

	session, err := s.store.Close(ctx, current.ID, roundAmount(closingBalance), details)
	if err != nil {
		return nil, err
	}
	s.invalidateCurrent(ctx)

	return &ClosingSummary{Session: *session, Details: details}, nil
}

// Get returns a session with its closing details when closed.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClosingSummary, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := &ClosingSummary{Session: *session}
	if session.ClosingTime != nil {
		details, err := s.store.ClosingDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		summary.Details = details
	}
	return summary, nil
}

// List returns recent sessions.
func (s *Service) List(ctx context.Context, limit int) ([]Session, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) invalidateCurrent(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, currentSessionKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("invalidate current session cache", slog.Any("error", err))
	}
}

func roundAmount(v float64) float64 {
	return math.Round(v*1000) / 1000
}
