package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var (
	// ErrNeedsUserGesture means a token is missing or expired and the
	// caller asked for silent acquisition. Silent attempts never pop a
	// consent screen.
	ErrNeedsUserGesture = errors.New("sign-in needs a user gesture")
	// ErrAuthDenied means the interactive flow failed or was cancelled.
	ErrAuthDenied = errors.New("authorization denied")
	// ErrFlowUnavailable means the sign-in flow did not become ready
	// within FlowProbeTimeout.
	ErrFlowUnavailable = errors.New("sign-in flow unavailable")
)

var (
	// TokenExpiryMargin is subtracted from the token lifetime so a
	// token is treated as expired slightly before it actually is.
	TokenExpiryMargin = 60 * time.Second
	// FlowProbeTimeout bounds the readiness probe of the sign-in flow.
	FlowProbeTimeout = 2 * time.Second
)

//go:generate mockgen -source=manager.go -destination=manager_mocks_test.go -package=auth_test

// TokenFlow is the platform consent flow. Ready probes whether the flow
// can run at all; RequestToken runs the interactive round trip, which can
// take arbitrarily long (the user is involved).
type TokenFlow interface {
	Ready(ctx context.Context) error
	RequestToken(ctx context.Context) (*oauth2.Token, error)
}

type connectionStore interface {
	Connected(ctx context.Context) bool
	SetConnected(ctx context.Context, connected bool) error
	ClearSyncState(ctx context.Context) error
}

// Manager caches a bearer token and its (margin-adjusted) expiry, both
// held in memory only. Across restarts only the boolean "previously
// connected" flag survives, so the app can offer silent reconnection.
type Manager struct {
	mu     sync.Mutex
	flow   TokenFlow
	store  connectionStore
	token  string
	expiry time.Time

	// NowFunc is injectable for tests.
	NowFunc func() time.Time
}

func NewManager(flow TokenFlow, store connectionStore) *Manager {
	return &Manager{
		flow:    flow,
		store:   store,
		NowFunc: time.Now,
	}
}

// Acquire returns a valid bearer token. A cached unexpired token is
// returned without any network or UI action. Otherwise, interactive
// acquisition runs the consent flow; non-interactive acquisition fails
// with ErrNeedsUserGesture.
func (m *Manager) Acquire(ctx context.Context, interactive bool) (string, error) {
	m.mu.Lock()
	if m.token != "" && m.NowFunc().Before(m.expiry) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	if !interactive {
		return "", ErrNeedsUserGesture
	}

	probeCtx, cancel := context.WithTimeout(ctx, FlowProbeTimeout)
	defer cancel()
	if err := m.flow.Ready(probeCtx); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFlowUnavailable, err)
	}

	token, err := m.flow.RequestToken(ctx)
	if err != nil || token == nil || token.AccessToken == "" {
		m.Invalidate()
		if err := m.store.SetConnected(ctx, false); err != nil {
			log.Warnf("failed to clear connected flag: %s", err)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrAuthDenied, err)
		}
		return "", ErrAuthDenied
	}

	m.mu.Lock()
	m.token = token.AccessToken
	m.expiry = token.Expiry.Add(-TokenExpiryMargin)
	m.mu.Unlock()

	if err := m.store.SetConnected(ctx, true); err != nil {
		log.Warnf("failed to persist connected flag: %s", err)
	}

	return token.AccessToken, nil
}

// Valid reports whether an unexpired token is cached.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && m.NowFunc().Before(m.expiry)
}

// Token makes the manager an oauth2.TokenSource for the Drive transport.
// It never triggers acquisition: the sync engine acquires first, the
// transport only consumes the cached token.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || !m.NowFunc().Before(m.expiry) {
		return nil, ErrNeedsUserGesture
	}
	return &oauth2.Token{
		AccessToken: m.token,
		TokenType:   "Bearer",
		Expiry:      m.expiry,
	}, nil
}

// Invalidate drops the cached token and expiry.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

// PreviouslyConnected reports the persisted connected flag, used on
// startup to decide whether to attempt a silent reconnect.
func (m *Manager) PreviouslyConnected(ctx context.Context) bool {
	return m.store.Connected(ctx)
}

// Disconnect drops the token and all remote bookkeeping. An in-flight
// sync is not aborted, its next network call fails naturally.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.Invalidate()
	if err := m.store.SetConnected(ctx, false); err != nil {
		return fmt.Errorf("clear connected flag: %w", err)
	}
	if err := m.store.ClearSyncState(ctx); err != nil {
		return fmt.Errorf("clear sync bookkeeping: %w", err)
	}
	return nil
}
