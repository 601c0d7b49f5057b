package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/patrickmn/go-cache"
)

var _ credstore.Store = (*Store)(nil)

const cleanupInterval = 5 * time.Minute

type Store struct {
	users     map[int64]*users.User
	usernames map[string]int64 // username to user id
	tokens    *cache.Cache     // token id to *refresh.Token, expires with the token
	lock      sync.RWMutex
}

func New() *Store {
	return &Store{
		users:     make(map[int64]*users.User),
		usernames: make(map[string]int64),
		tokens:    cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *Store) UpsertUser(_ context.Context, user *users.User) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if existing, ok := s.users[user.ID]; ok {
		delete(s.usernames, existing.Username)
	}
	u := *user
	s.users[u.ID] = &u
	if u.Username != "" {
		s.usernames[u.Username] = u.ID
	}
	return nil
}

func (s *Store) FindUser(_ context.Context, q users.Query) (*users.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var candidate *users.User
	switch {
	case q.ID != nil:
		candidate = s.users[*q.ID]
	case q.Username != nil:
		if id, ok := s.usernames[*q.Username]; ok {
			candidate = s.users[id]
		}
	}
	if !q.Matches(candidate) {
		return nil, credstore.ErrNotFound
	}
	u := *candidate
	return &u, nil
}

// Users returns every stored record ordered by id.
func (s *Store) Users() []*users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]*users.User, 0, len(s.users))
	for _, v := range s.users {
		u := *v
		list = append(list, &u)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func (s *Store) FindRefreshToken(_ context.Context, q refresh.Query) (*refresh.Token, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.tokens.Get(q.TokenID)
	if !ok {
		return nil, credstore.ErrNotFound
	}
	token := v.(*refresh.Token)
	if !q.Matches(token) {
		return nil, credstore.ErrNotFound
	}
	t := *token
	return &t, nil
}

func (s *Store) AddRefreshToken(_ context.Context, tokenID string, userID int64, clientID string, issuedAt, expiresAt time.Time) (*refresh.Token, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	token := &refresh.Token{
		TokenID:   tokenID,
		UserID:    userID,
		ClientID:  clientID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// go-cache treats non-positive durations as "never expire"
		ttl = time.Nanosecond
	}
	s.tokens.Set(tokenID, token, ttl)
	t := *token
	return &t, nil
}

// DeleteRefreshToken removes the token under the write lock so that of two
// concurrent deletes only the first finds the record.
func (s *Store) DeleteRefreshToken(_ context.Context, token *refresh.Token) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tokens.Get(token.TokenID); !ok {
		return credstore.ErrNotFound
	}
	s.tokens.Delete(token.TokenID)
	return nil
}

// RefreshTokenCount returns the number of live refresh tokens.
func (s *Store) RefreshTokenCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.tokens.ItemCount()
}

func (s *Store) Close() error {
	s.tokens.Flush()
	return nil
}
