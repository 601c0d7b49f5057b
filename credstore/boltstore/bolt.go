// Package boltstore implements the credential store gateway on an embedded bbolt file.
// bbolt serialises write transactions, so the read-then-delete performed when a
// refresh token is consumed cannot interleave with another consumer.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var _ credstore.Store = (*Store)(nil)

const (
	fileMode    = 0o600
	dirMode     = 0o700
	openTimeout = time.Second
)

var (
	usersBucket     = []byte("users")
	usernamesBucket = []byte("usernames")
	refreshBucket   = []byte("refresh_tokens")
)

// Store wraps a bbolt database holding users and refresh tokens.
type Store struct {
	db      *bolt.DB
	nowFunc func() time.Time
}

type storedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Open opens (creating if needed) the database at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, errors.Wrap(err, "[boltstore.Open] create directory")
	}

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "[boltstore.Open] open")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{usersBucket, usernamesBucket, refreshBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[boltstore.Open] initialise buckets")
	}

	return &Store{db: db, nowFunc: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database file is still open.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(usersBucket) == nil {
			return errors.New("[Store.Ping] users bucket missing")
		}
		return nil
	})
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func (s *Store) UpsertUser(_ context.Context, user *users.User) error {
	data, err := json.Marshal(storedUser{
		ID:       user.ID,
		Username: user.Username,
		Password: user.Password,
		Role:     user.Role,
	})
	if err != nil {
		return errors.Wrap(err, "[Store.UpsertUser] marshal")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		ub := tx.Bucket(usersBucket)
		nb := tx.Bucket(usernamesBucket)

		if prev := ub.Get(idKey(user.ID)); prev != nil {
			var old storedUser
			if err := json.Unmarshal(prev, &old); err == nil && old.Username != "" {
				if err := nb.Delete([]byte(old.Username)); err != nil {
					return err
				}
			}
		}
		if err := ub.Put(idKey(user.ID), data); err != nil {
			return err
		}
		if user.Username == "" {
			return nil
		}
		return nb.Put([]byte(user.Username), idKey(user.ID))
	})
}

func (s *Store) FindUser(_ context.Context, q users.Query) (*users.User, error) {
	var user *users.User

	err := s.db.View(func(tx *bolt.Tx) error {
		var key []byte
		switch {
		case q.ID != nil:
			key = idKey(*q.ID)
		case q.Username != nil:
			key = tx.Bucket(usernamesBucket).Get([]byte(*q.Username))
		}
		if key == nil {
			return nil
		}

		v := tx.Bucket(usersBucket).Get(key)
		if v == nil {
			return nil
		}
		var su storedUser
		if err := json.Unmarshal(v, &su); err != nil {
			return err
		}
		user = &users.User{ID: su.ID, Username: su.Username, Password: su.Password, Role: su.Role}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Store.FindUser] view")
	}
	if !q.Matches(user) {
		return nil, credstore.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindRefreshToken(_ context.Context, q refresh.Query) (*refresh.Token, error) {
	var token *refresh.Token

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(refreshBucket).Get([]byte(q.TokenID))
		if v == nil {
			return nil
		}
		token = &refresh.Token{}
		return json.Unmarshal(v, token)
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Store.FindRefreshToken] view")
	}
	if !q.Matches(token) || token.Expired(s.nowFunc()) {
		return nil, credstore.ErrNotFound
	}
	return token, nil
}

func (s *Store) AddRefreshToken(_ context.Context, tokenID string, userID int64, clientID string, issuedAt, expiresAt time.Time) (*refresh.Token, error) {
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

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(refreshBucket).Put([]byte(tokenID), data)
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Store.AddRefreshToken] put")
	}
	return token, nil
}

func (s *Store) DeleteRefreshToken(_ context.Context, token *refresh.Token) error {
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(refreshBucket)
		if b.Get([]byte(token.TokenID)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(token.TokenID))
	})
	if err != nil {
		return errors.Wrap(err, "[Store.DeleteRefreshToken] update")
	}
	if !found {
		return credstore.ErrNotFound
	}
	return nil
}

// PurgeExpired removes refresh tokens whose expiry has passed and returns how many were removed.
func (s *Store) PurgeExpired(_ context.Context) (int, error) {
	now := s.nowFunc()
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(refreshBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var t refresh.Token
			if err := json.Unmarshal(v, &t); err != nil || t.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "[Store.PurgeExpired] update")
	}
	return removed, nil
}
