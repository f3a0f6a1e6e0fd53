package till

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tillbridge/tillbridge/internal/shared"
)

type mockSessionStore struct {
	sessions map[uuid.UUID]*Session
	closings map[uuid.UUID][]ClosingDetail

	openErr  error
	closeErr error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: map[uuid.UUID]*Session{},
		closings: map[uuid.UUID][]ClosingDetail{},
	}
}

func (m *mockSessionStore) Open(_ context.Context, req OpenSessionRequest) (*Session, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	for _, s := range m.sessions {
		if s.ClosingTime == nil {
			return nil, fmt.Errorf("%w: a till session is already open", shared.ErrConflict)
		}
	}
	s := &Session{
		ID:          uuid.New(),
		POSUser:     req.POSUser,
		Profile:     req.Profile,
		OpeningTime: time.Now(),
		Status:      StatusOpen,
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessionStore) CurrentOpen(_ context.Context) (*Session, error) {
	for _, s := range m.sessions {
		if s.ClosingTime == nil {
			return s, nil
		}
	}
	return nil, ErrNoOpenSession
}

func (m *mockSessionStore) SetOpening(_ context.Context, id uuid.UUID, req CreateOpeningRequest) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if s.OpeningBalance != nil {
		return nil, ErrOpeningAlreadySet
	}
	balance := req.CashAmount + req.KnetAmount
	s.OpeningBalance = &balance
	s.CashAmount = req.CashAmount
	s.KnetAmount = req.KnetAmount
	if req.Profile != "" {
		s.Profile = req.Profile
	}
	return s, nil
}

func (m *mockSessionStore) Close(_ context.Context, id uuid.UUID, closingBalance float64, details []ClosingDetail) (*Session, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	s, ok := m.sessions[id]
	if !ok || s.ClosingTime != nil {
		return nil, fmt.Errorf("%w: session %s is not open", shared.ErrConflict, id)
	}
	now := time.Now()
	s.ClosingTime = &now
	s.Status = StatusClosed
	s.ClosingBalance = &closingBalance
	m.closings[id] = details
	return s, nil
}

func (m *mockSessionStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
}

func (m *mockSessionStore) ClosingDetails(_ context.Context, id uuid.UUID) ([]ClosingDetail, error) {
	return m.closings[id], nil
}

func (m *mockSessionStore) List(_ context.Context, _ int) ([]Session, error) {
	var out []Session
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

type mockSalesTotals struct {
	totals map[string]float64
	err    error
}

func (m *mockSalesTotals) SumByMethodSince(_ context.Context, _ time.Time) (map[string]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.totals, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, store sessionStore, sales salesTotals) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })
	return NewService(testLogger(), store, sales, cache)
}

func TestOpenSessionSecondOpenConflicts(t *testing.T) {
	store := newMockSessionStore()
	svc := newTestService(t, store, &mockSalesTotals{})

	first, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, first.Status)

	_, err = svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-2", Profile: "Main Till"})
	require.True(t, errors.Is(err, shared.ErrConflict))

	// The first session is unaffected.
	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.ID, current.ID)
}

func TestCreateOpeningRequiresOpenSession(t *testing.T) {
	svc := newTestService(t, newMockSessionStore(), &mockSalesTotals{})

	_, err := svc.CreateOpening(context.Background(), CreateOpeningRequest{CashAmount: 100})
	require.ErrorIs(t, err, ErrNoOpenSession)
}

func TestCreateOpeningOnlyOnce(t *testing.T) {
	store := newMockSessionStore()
	svc := newTestService(t, store, &mockSalesTotals{})

	_, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)

	session, err := svc.CreateOpening(context.Background(), CreateOpeningRequest{CashAmount: 50, KnetAmount: 0, Profile: "Retail"})
	require.NoError(t, err)
	require.NotNil(t, session.OpeningBalance)
	require.InDelta(t, 50, *session.OpeningBalance, 1e-9)
	require.Equal(t, "Retail", session.Profile)

	_, err = svc.CreateOpening(context.Background(), CreateOpeningRequest{CashAmount: 25})
	require.ErrorIs(t, err, ErrOpeningAlreadySet)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 50, *current.OpeningBalance, 1e-9)
}

func TestCloseReconciliation(t *testing.T) {
	store := newMockSessionStore()
	sales := &mockSalesTotals{totals: map[string]float64{
		ModeCash: 40.000,
		ModeKnet: 40.250,
	}}
	svc := newTestService(t, store, sales)

	_, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)
	_, err = svc.CreateOpening(context.Background(), CreateOpeningRequest{CashAmount: 100, KnetAmount: 0})
	require.NoError(t, err)

	summary, err := svc.Close(context.Background(), CloseSessionRequest{Counted: []CountedAmount{
		{ModeOfPayment: ModeCash, Amount: 138.000},
		{ModeOfPayment: ModeKnet, Amount: 40.250},
	}})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, summary.Session.Status)
	require.NotNil(t, summary.Session.ClosingTime)
	require.NotNil(t, summary.Session.ClosingBalance)
	require.InDelta(t, 178.250, *summary.Session.ClosingBalance, 1e-9)

	byMode := map[string]ClosingDetail{}
	for _, d := range summary.Details {
		byMode[d.ModeOfPayment] = d
	}
	// Cash expectation includes the opening float; the 2.000 shortage is
	// recorded, not rejected.
	require.InDelta(t, 140.000, byMode[ModeCash].ExpectedAmount, 1e-9)
	require.InDelta(t, -2.000, byMode[ModeCash].Difference, 1e-9)
	require.InDelta(t, 40.250, byMode[ModeKnet].ExpectedAmount, 1e-9)
	require.Zero(t, byMode[ModeKnet].Difference)
}

func TestCloseIncludesUncountedModes(t *testing.T) {
	store := newMockSessionStore()
	sales := &mockSalesTotals{totals: map[string]float64{
		ModeCash: 10.000,
		ModeKnet: 5.000,
	}}
	svc := newTestService(t, store, sales)

	_, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)

	summary, err := svc.Close(context.Background(), CloseSessionRequest{Counted: []CountedAmount{
		{ModeOfPayment: ModeCash, Amount: 10.000},
	}})
	require.NoError(t, err)

	byMode := map[string]ClosingDetail{}
	for _, d := range summary.Details {
		byMode[d.ModeOfPayment] = d
	}
	require.InDelta(t, -5.000, byMode[ModeKnet].Difference, 1e-9)
}

func TestCloseWithoutOpenSession(t *testing.T) {
	svc := newTestService(t, newMockSessionStore(), &mockSalesTotals{})

	_, err := svc.Close(context.Background(), CloseSessionRequest{Counted: []CountedAmount{
		{ModeOfPayment: ModeCash, Amount: 0},
	}})
	require.ErrorIs(t, err, ErrNoOpenSession)
}

func TestCloseRejectsDuplicateCounts(t *testing.T) {
	store := newMockSessionStore()
	svc := newTestService(t, store, &mockSalesTotals{totals: map[string]float64{}})

	_, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), CloseSessionRequest{Counted: []CountedAmount{
		{ModeOfPayment: ModeCash, Amount: 5},
		{ModeOfPayment: ModeCash, Amount: 10},
	}})
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCurrentUsesCache(t *testing.T) {
	store := newMockSessionStore()
	svc := newTestService(t, store, &mockSalesTotals{})

	opened, err := svc.Open(context.Background(), OpenSessionRequest{POSUser: "cashier-1", Profile: "Main Till"})
	require.NoError(t, err)

	// First read populates the cache.
	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, opened.ID, current.ID)

	// Remove the row behind the cache; the cached copy still serves.
	delete(store.sessions, opened.ID)
	cached, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, opened.ID, cached.ID)
}
