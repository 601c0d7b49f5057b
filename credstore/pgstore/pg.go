// Package pgstore implements the credential store gateway on PostgreSQL.
package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ credstore.Store = (*Store)(nil)

const defaultMaxConns = 8

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       BIGINT PRIMARY KEY,
	username TEXT UNIQUE,
	password TEXT NOT NULL DEFAULT '',
	role     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token_id   TEXT PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	client_id  TEXT NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS refresh_tokens_expires_at_idx ON refresh_tokens (expires_at);
`

// Store implements credstore.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for dsn. The pool is created even if the first
// ping fails so the server can start while the database is still coming up.
func New(ctx context.Context, dsn string) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[pgstore.New] parse dsn")
	}
	if pcfg.MaxConns == 0 || pcfg.MaxConns > defaultMaxConns {
		pcfg.MaxConns = defaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Wrap(err, "[pgstore.New] create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("pg pool startup ping failed")
	} else {
		log.Info().Int32("max_conns", pcfg.MaxConns).Msg("pg pool ready")
	}

	return &Store{pool: pool}, nil
}

// Migrate creates the tables used by the store if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "[Store.Migrate] exec")
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.pool.Ping(ctx), "[Store.Ping]")
}

func (s *Store) UpsertUser(ctx context.Context, user *users.User) error {
	const q = `
		INSERT INTO users (id, username, password, role)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, password = EXCLUDED.password, role = EXCLUDED.role`
	_, err := s.pool.Exec(ctx, q, user.ID, user.Username, user.Password, user.Role)
	return errors.Wrap(err, "[Store.UpsertUser] exec")
}

func (s *Store) FindUser(ctx context.Context, q users.Query) (*users.User, error) {
	var row pgx.Row
	switch {
	case q.ID != nil:
		row = s.pool.QueryRow(ctx, `SELECT id, COALESCE(username, ''), password, role FROM users WHERE id = $1`, *q.ID)
	case q.Username != nil:
		row = s.pool.QueryRow(ctx, `SELECT id, COALESCE(username, ''), password, role FROM users WHERE username = $1`, *q.Username)
	default:
		return nil, credstore.ErrNotFound
	}

	var u users.User
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credstore.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Store.FindUser] scan")
	}
	if !q.Matches(&u) {
		return nil, credstore.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindRefreshToken(ctx context.Context, q refresh.Query) (*refresh.Token, error) {
	const query = `
		SELECT token_id, user_id, client_id, issued_at, expires_at
		FROM refresh_tokens
		WHERE token_id = $1 AND client_id = $2 AND expires_at > NOW()`

	var t refresh.Token
	err := s.pool.QueryRow(ctx, query, q.TokenID, q.ClientID).Scan(&t.TokenID, &t.UserID, &t.ClientID, &t.IssuedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credstore.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Store.FindRefreshToken] scan")
	}
	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	return &t, nil
}

func (s *Store) AddRefreshToken(ctx context.Context, tokenID string, userID int64, clientID string, issuedAt, expiresAt time.Time) (*refresh.Token, error) {
	const q = `
		INSERT INTO refresh_tokens (token_id, user_id, client_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, q, tokenID, userID, clientID, issuedAt.UTC(), expiresAt.UTC()); err != nil {
		return nil, errors.Wrap(err, "[Store.AddRefreshToken] exec")
	}
	return &refresh.Token{
		TokenID:   tokenID,
		UserID:    userID,
		ClientID:  clientID,
		IssuedAt:  issuedAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// DeleteRefreshToken relies on row locking: a concurrent delete of the same row
// blocks until the first commits and then affects zero rows.
func (s *Store) DeleteRefreshToken(ctx context.Context, token *refresh.Token) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_id = $1`, token.TokenID)
	if err != nil {
		return errors.Wrap(err, "[Store.DeleteRefreshToken] exec")
	}
	if ct.RowsAffected() == 0 {
		return credstore.ErrNotFound
	}
	return nil
}

// PurgeExpired removes refresh tokens whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, errors.Wrap(err, "[Store.PurgeExpired] exec")
	}
	return ct.RowsAffected(), nil
}
