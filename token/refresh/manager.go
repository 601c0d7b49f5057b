package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-token-server/internal/errors"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token issuance, lookup and single-use consumption.
type Manager struct {
	repo     Repo
	lifetime time.Duration
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowFunc sets the clock used for issuance and expiry checks.
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new refresh token manager. lifetime must be positive;
// callers pass an already-normalised configuration value.
func NewManager(repo Repo, lifetime time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:     repo,
		lifetime: lifetime,
		now:      func() time.Time { return NowTimeFunc() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lifetime returns the configured refresh token lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue persists a new refresh token record. An empty tokenID is replaced by a random one.
// The expiry is issuedAt plus the configured lifetime.
func (m *Manager) Issue(ctx context.Context, tokenID string, userID int64, clientID string) (*Token, error) {
	if tokenID == "" {
		tokenID = uuid.New().String()
	}
	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.lifetime)

	token, err := m.repo.AddRefreshToken(ctx, tokenID, userID, clientID, issuedAt, expiresAt)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] AddRefreshToken")
	}
	return token, nil
}

// Find returns the live token matching q. Expired records are reported as
// ErrNotFound even if the store has not reaped them yet.
func (m *Manager) Find(ctx context.Context, q Query) (*Token, error) {
	token, err := m.repo.FindRefreshToken(ctx, q)
	if err != nil {
		return nil, err
	}
	if token.Expired(m.now()) {
		return nil, apperrors.ErrNotFound
	}
	return token, nil
}

// Delete consumes the token. See Repo for the atomicity contract.
func (m *Manager) Delete(ctx context.Context, token *Token) error {
	return m.repo.DeleteRefreshToken(ctx, token)
}
