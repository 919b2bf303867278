// Package session holds the authenticated identity for the process.
//
// The manager is an explicit object handed to every store, created at
// startup and torn down on logout. At most one identity is active at a
// time; switching identities requires logout then login.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
)

// stateKey is the well-known storage key for the persisted session.
// keyPrefix covers it and any session-scoped key added later, so logout
// can clear them all at once.
const (
	keyPrefix = "session"
	stateKey  = "session"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// AuthError reports a credentials rejection from the server. Local
// precondition failures use plain validation errors and never reach the
// network.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string { return e.Reason }
func (e *AuthError) Unwrap() error { return e.Err }

// Session is the identity/credential pair scoping all per-user requests.
type Session struct {
	Identity   string `json:"identity"`
	Credential string `json:"credential"`
}

// StateStore is the durable client-local storage the manager persists to.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// AuthAPI is the slice of the remote API the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (api.AuthResponse, error)
	CreateUser(ctx context.Context, req api.RegisterRequest) (api.AuthResponse, error)
}

type Manager struct {
	mu      sync.Mutex
	current *Session
	store   StateStore
	client  AuthAPI
	logger  *log.Logger
}

func NewManager(store StateStore, client AuthAPI, logger *log.Logger) *Manager {
	return &Manager{
		store:  store,
		client: client,
		logger: logger.WithComponent(log.ComponentSession),
	}
}

// Restore rehydrates the session from durable storage at startup.
// Malformed stored data counts as no session: storage is cleared and no
// error is returned.
func (m *Manager) Restore(ctx context.Context) error {
	raw, ok, err := m.store.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.Identity == "" {
		m.logger.WarnContext(ctx, "Discarding malformed persisted session",
			log.FieldOperation, log.OpRestore)
		if err := m.store.DeletePrefix(ctx, keyPrefix); err != nil {
			return fmt.Errorf("clear malformed session: %w", err)
		}
		return nil
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session restored",
		log.FieldUsername, s.Identity,
		log.FieldOperation, log.OpRestore)
	return nil
}

// Login exchanges credentials for a session. On failure any existing
// session is left untouched.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, &AuthError{Reason: "username and password are required"}
	}

	resp, err := m.client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, &AuthError{Reason: messageOrFallback(err, "Login failed"), Err: err}
	}

	return m.establish(ctx, resp, log.OpLogin)
}

// Register creates an identity then behaves as Login.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*Session, error) {
	if err := core.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := core.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := m.client.CreateUser(ctx, api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, &AuthError{Reason: messageOrFallback(err, "Registration failed"), Err: err}
	}

	return m.establish(ctx, resp, log.OpRegister)
}

func (m *Manager) establish(ctx context.Context, resp api.AuthResponse, op string) (*Session, error) {
	s := Session{Identity: resp.User.Username, Credential: resp.Token}
	if s.Identity == "" {
		s.Identity = resp.Token // token is the username in this contract
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, stateKey, string(raw)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session established",
		log.FieldUsername, s.Identity,
		log.FieldOperation, op)

	out := s
	return &out, nil
}

// Logout clears the session from memory and durable storage. Idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.DeletePrefix(ctx, keyPrefix); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}

	m.logger.InfoContext(ctx, "Session cleared", log.FieldOperation, log.OpLogout)
	return nil
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Username returns the active identity, or "" when no session is active.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Identity
}

// Token returns the bearer credential for the transport layer, or "".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Credential
}

// messageOrFallback prefers the server-reported message and falls back to
// a per-operation generic string.
func messageOrFallback(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
