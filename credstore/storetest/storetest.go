// Package storetest holds the behaviour every credstore.Store implementation must share.
package storetest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) credstore.Store

// Run exercises the full gateway contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("FindUser", func(t *testing.T) { testFindUser(t, newStore) })
	t.Run("UpsertUserReplacesUsername", func(t *testing.T) { testUpsertReplacesUsername(t, newStore) })
	t.Run("RefreshTokenRoundTrip", func(t *testing.T) { testRefreshTokenRoundTrip(t, newStore) })
	t.Run("RefreshTokenClientMismatch", func(t *testing.T) { testRefreshTokenClientMismatch(t, newStore) })
	t.Run("DeleteIsSingleUse", func(t *testing.T) { testDeleteIsSingleUse(t, newStore) })
	t.Run("ConcurrentDeleteOneWinner", func(t *testing.T) { testConcurrentDelete(t, newStore) })
}

func open(t *testing.T, newStore Factory) credstore.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFindUser(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.UpsertUser(ctx, &users.User{ID: 7, Username: "alice", Password: "correct", Role: users.RoleUser}))
	require.NoError(t, s.UpsertUser(ctx, &users.User{ID: 42, Username: "", Password: "s3cret", Role: users.RoleService}))

	u, err := s.FindUser(ctx, users.ByUsername("alice"))
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, "correct", u.Password)
	require.Equal(t, users.RoleUser, u.Role)

	u, err = s.FindUser(ctx, users.ByID(42))
	require.NoError(t, err)
	require.Equal(t, users.RoleService, u.Role)

	_, err = s.FindUser(ctx, users.ByUsername("ALICE"))
	require.ErrorIs(t, err, credstore.ErrNotFound)

	_, err = s.FindUser(ctx, users.ByID(8))
	require.ErrorIs(t, err, credstore.ErrNotFound)

	_, err = s.FindUser(ctx, users.Query{})
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func testUpsertReplacesUsername(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.UpsertUser(ctx, &users.User{ID: 1, Username: "old", Password: "p", Role: users.RoleUser}))
	require.NoError(t, s.UpsertUser(ctx, &users.User{ID: 1, Username: "new", Password: "p", Role: users.RoleAdministrator}))

	_, err := s.FindUser(ctx, users.ByUsername("old"))
	require.ErrorIs(t, err, credstore.ErrNotFound)

	u, err := s.FindUser(ctx, users.ByUsername("new"))
	require.NoError(t, err)
	require.Equal(t, users.RoleAdministrator, u.Role)
}

func testRefreshTokenRoundTrip(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	issued := time.Now().UTC().Truncate(time.Second)
	expires := issued.Add(time.Hour)

	added, err := s.AddRefreshToken(ctx, "tok-1", 7, "session-1", issued, expires)
	require.NoError(t, err)
	require.Equal(t, "tok-1", added.TokenID)
	require.True(t, added.IssuedAt.Equal(issued))
	require.True(t, added.ExpiresAt.Equal(expires))

	found, err := s.FindRefreshToken(ctx, refresh.Query{TokenID: "tok-1", ClientID: "session-1"})
	require.NoError(t, err)
	require.Equal(t, int64(7), found.UserID)
	require.Equal(t, "session-1", found.ClientID)
	require.True(t, found.ExpiresAt.Equal(expires))

	require.NoError(t, s.DeleteRefreshToken(ctx, found))

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "tok-1", ClientID: "session-1"})
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func testRefreshTokenClientMismatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	now := time.Now().UTC()
	_, err := s.AddRefreshToken(ctx, "tok-2", 7, "session-a", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "tok-2", ClientID: "session-b"})
	require.ErrorIs(t, err, credstore.ErrNotFound)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "tok-unknown", ClientID: "session-a"})
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func testDeleteIsSingleUse(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	now := time.Now().UTC()
	token, err := s.AddRefreshToken(ctx, "tok-3", 7, "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.DeleteRefreshToken(ctx, token))
	require.ErrorIs(t, s.DeleteRefreshToken(ctx, token), credstore.ErrNotFound)
}

func testConcurrentDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	now := time.Now().UTC()
	token, err := s.AddRefreshToken(ctx, "tok-4", 7, "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	const workers = 16
	var winners, losers atomic.Int32
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			err := s.DeleteRefreshToken(ctx, token)
			switch {
			case err == nil:
				winners.Add(1)
			case credstore.IsNotFound(err):
				losers.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), winners.Load())
	require.Equal(t, int32(workers-1), losers.Load())
}
