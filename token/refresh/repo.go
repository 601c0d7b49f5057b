package refresh

import (
	"context"
	"time"
)

// Token represents the server-side record of an issued refresh token.
// The client only ever holds an encoded ticket referencing TokenID; everything
// else is metadata used to correlate and expire the token.
type Token struct {
	TokenID   string    `json:"token_id"`   // Opaque unique identifier (the ticket's token id)
	UserID    int64     `json:"user_id"`    // Owning user, 0 for client_credentials tokens
	ClientID  string    `json:"client_id"`  // Session or client correlation id
	IssuedAt  time.Time `json:"issued_at"`  // Issued at time (UTC)
	ExpiresAt time.Time `json:"expires_at"` // Expiry time (UTC)
}

// Expired reports whether the token is no longer usable at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Query selects a refresh token by identifier and correlation client id.
// Both fields must match exactly.
type Query struct {
	TokenID  string
	ClientID string
}

// Matches reports whether t satisfies the query.
func (q Query) Matches(t *Token) bool {
	if t == nil || q.TokenID == "" {
		return false
	}
	return t.TokenID == q.TokenID && t.ClientID == q.ClientID
}

// Repo is the refresh token part of the credential store gateway.
// Tokens are immutable once issued: there is no update, rotation is Delete followed by Add.
//
// Delete must be an atomic compare-and-delete. When two callers race to delete the
// same record at most one may succeed; the loser receives a not-found error.
type Repo interface {
	FindRefreshToken(ctx context.Context, q Query) (*Token, error)
	AddRefreshToken(ctx context.Context, tokenID string, userID int64, clientID string, issuedAt, expiresAt time.Time) (*Token, error)
	DeleteRefreshToken(ctx context.Context, token *Token) error
}
