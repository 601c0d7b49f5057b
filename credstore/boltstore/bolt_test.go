package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/credstore/storetest"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tokens.db"))
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) credstore.Store {
		return openTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertUser(ctx, &users.User{ID: 7, Username: "alice", Password: "correct", Role: users.RoleUser}))
	now := time.Now().UTC()
	_, err = s.AddRefreshToken(ctx, "tok", 7, "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.FindUser(ctx, users.ByUsername("alice"))
	require.NoError(t, err)
	require.Equal(t, "correct", u.Password)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "tok", ClientID: "session-1"})
	require.NoError(t, err)
}

func TestStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	defer s.Close()

	base := time.Now().UTC()
	_, err := s.AddRefreshToken(ctx, "old", 7, "session-1", base.Add(-2*time.Hour), base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.AddRefreshToken(ctx, "live", 7, "session-2", base, base.Add(time.Hour))
	require.NoError(t, err)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "old", ClientID: "session-1"})
	require.ErrorIs(t, err, credstore.ErrNotFound)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "live", ClientID: "session-2"})
	require.NoError(t, err)
}

func TestStore_Ping(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	require.Error(t, s.Ping(context.Background()))
}
