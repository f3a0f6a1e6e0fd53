package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/tillbridge/tillbridge/internal/erpnext"
	"github.com/tillbridge/tillbridge/internal/shared"
	"github.com/tillbridge/tillbridge/internal/till"
)

// Login modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// LoginRequest carries the cashier credentials and the POS profile the shift
// runs under.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=140"`
	Password string `json:"password" validate:"required"`
	Profile  string `json:"profile" validate:"required,max=140"`
}

// LoginResponse reports which path authenticated the cashier and the till
// session the shift runs against.
type LoginResponse struct {
	Username string        `json:"username"`
	Mode     string        `json:"mode"`
	Session  *till.Session `json:"session"`
}

// remoteAuth is the slice of the ERPNext client the service needs.
type remoteAuth interface {
	Authenticate(ctx context.Context, username, password string) error
}

// sessionOpener starts or resumes the till session for the shift.
type sessionOpener interface {
	Open(ctx context.Context, req till.OpenSessionRequest) (*till.Session, error)
	Current(ctx context.Context) (*till.Session, error)
}

// Service authenticates cashiers against ERPNext, falling back to locally
// configured bcrypt PIN hashes when the remote is unreachable. A rejected
// credential never falls back. A successful login opens a till session, or
// resumes the one already open.
type Service struct {
	logger     *slog.Logger
	remote     remoteAuth
	sessions   sessionOpener
	offlinePIN map[string]string
}

// NewService constructs an auth service. offlinePIN maps usernames to bcrypt
// hashes used only while offline.
func NewService(logger *slog.Logger, remote remoteAuth, sessions sessionOpener, offlinePIN map[string]string) *Service {
	return &Service{logger: logger, remote: remote, sessions: sessions, offlinePIN: offlinePIN}
}

// Login validates credentials and attaches the shift's till session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	mode, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, req)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Username: req.Username, Mode: mode, Session: session}, nil
}

func (s *Service) authenticate(ctx context.Context, req LoginRequest) (string, error) {
	err := s.remote.Authenticate(ctx, req.Username, req.Password)
	if err == nil {
		return ModeOnline, nil
	}
	if errors.Is(err, erpnext.ErrRemoteRejected) {
		return "", fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}
	if !errors.Is(err, erpnext.ErrRemoteUnavailable) {
		return "", err
	}

	hash, ok := s.offlinePIN[req.Username]
	if !ok {
		return "", fmt.Errorf("%w: no offline access for %s", shared.ErrUnauthorized, req.Username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return "", fmt.Errorf("%w: invalid offline pin", shared.ErrUnauthorized)
	}

	s.logger.Info("offline login", slog.String("username", req.Username))
	return ModeOffline, nil
}

func (s *Service) openSession(ctx context.Context, req LoginRequest) (*till.Session, error) {
	session, err := s.sessions.Open(ctx, till.OpenSessionRequest{POSUser: req.Username, Profile: req.Profile})
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, shared.ErrConflict) {
		return nil, err
	}
	// A session is already open; the shift resumes it.
	return s.sessions.Current(ctx)
}
