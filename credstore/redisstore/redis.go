// Package redisstore implements the credential store gateway on Redis.
// Refresh tokens are stored with a TTL matching their expiry, and consumption
// relies on DEL reporting how many keys it removed, which makes it a
// compare-and-delete across any number of server instances.
package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ credstore.Store = (*Store)(nil)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "tokensrv:"

// Config holds Redis connection configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// Timeouts (defaults: Dial=5s, Read=3s, Write=3s).
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Store implements credstore.Store with a Redis backend.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	nowFunc   func() time.Time
}

// storedUser mirrors users.User including the password, which users.User never serialises.
type storedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("[redisstore.New] address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisstore.New] ping")
	}

	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps a pre-configured client. Useful with miniredis in tests.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		nowFunc:   time.Now,
	}
}

func (s *Store) userKey(id int64) string {
	return s.keyPrefix + "user:" + strconv.FormatInt(id, 10)
}

func (s *Store) usernameKey(username string) string {
	return s.keyPrefix + "username:" + username
}

func (s *Store) refreshKey(tokenID string) string {
	return s.keyPrefix + "refresh:" + tokenID
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) UpsertUser(ctx context.Context, user *users.User) error {
	data, err := json.Marshal(storedUser{
		ID:       user.ID,
		Username: user.Username,
		Password: user.Password,
		Role:     user.Role,
	})
	if err != nil {
		return errors.Wrap(err, "[Store.UpsertUser] marshal")
	}

	previous, err := s.getUser(ctx, user.ID)
	if err != nil && !credstore.IsNotFound(err) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil && previous.Username != "" && previous.Username != user.Username {
			pipe.Del(ctx, s.usernameKey(previous.Username))
		}
		pipe.Set(ctx, s.userKey(user.ID), data, 0)
		if user.Username != "" {
			pipe.Set(ctx, s.usernameKey(user.Username), user.ID, 0)
		}
		return nil
	})
	return errors.Wrap(err, "[Store.UpsertUser] exec")
}

func (s *Store) getUser(ctx context.Context, id int64) (*users.User, error) {
	data, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, credstore.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Store.getUser] get")
	}
	var su storedUser
	if err := json.Unmarshal(data, &su); err != nil {
		return nil, errors.Wrap(err, "[Store.getUser] unmarshal")
	}
	return &users.User{ID: su.ID, Username: su.Username, Password: su.Password, Role: su.Role}, nil
}

func (s *Store) FindUser(ctx context.Context, q users.Query) (*users.User, error) {
	var id int64
	switch {
	case q.ID != nil:
		id = *q.ID
	case q.Username != nil:
		v, err := s.client.Get(ctx, s.usernameKey(*q.Username)).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, credstore.ErrNotFound
			}
			return nil, errors.Wrap(err, "[Store.FindUser] username index")
		}
		id = v
	default:
		return nil, credstore.ErrNotFound
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Matches(user) {
		return nil, credstore.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindRefreshToken(ctx context.Context, q refresh.Query) (*refresh.Token, error) {
	data, err := s.client.Get(ctx, s.refreshKey(q.TokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, credstore.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Store.FindRefreshToken] get")
	}

	var token refresh.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errors.Wrap(err, "[Store.FindRefreshToken] unmarshal")
	}
	if !q.Matches(&token) || token.Expired(s.nowFunc()) {
		return nil, credstore.ErrNotFound
	}
	return &token, nil
}

func (s *Store) AddRefreshToken(ctx context.Context, tokenID string, userID int64, clientID string, issuedAt, expiresAt time.Time) (*refresh.Token, error) {
	token := &refresh.Token{
		TokenID:   tokenID,
		UserID:    userID,
		ClientID:  clientID,
		IssuedAt:  issuedAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	data, err := json.Marshal(token)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.AddRefreshToken] marshal")
	}

	ttl := expiresAt.Sub(s.nowFunc())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	if err := s.client.Set(ctx, s.refreshKey(tokenID), data, ttl).Err(); err != nil {
		return nil, errors.Wrap(err, "[Store.AddRefreshToken] set")
	}
	return token, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, token *refresh.Token) error {
	n, err := s.client.Del(ctx, s.refreshKey(token.TokenID)).Result()
	if err != nil {
		return errors.Wrap(err, "[Store.DeleteRefreshToken] del")
	}
	if n == 0 {
		return credstore.ErrNotFound
	}
	return nil
}
