package users_test

import (
	"testing"

	"github.com/jrsteele09/go-token-server/users"
	"github.com/stretchr/testify/require"
)

func TestQuery_Matches(t *testing.T) {
	alice := &users.User{ID: 7, Username: "alice", Role: users.RoleUser}

	t.Run("by username", func(t *testing.T) {
		require.True(t, users.ByUsername("alice").Matches(alice))
		require.False(t, users.ByUsername("Alice").Matches(alice))
	})

	t.Run("by id", func(t *testing.T) {
		require.True(t, users.ByID(7).Matches(alice))
		require.False(t, users.ByID(8).Matches(alice))
	})

	t.Run("empty query matches nothing", func(t *testing.T) {
		require.False(t, users.Query{}.Matches(alice))
	})

	t.Run("nil user", func(t *testing.T) {
		require.False(t, users.ByID(7).Matches(nil))
	})
}

func TestByClientID(t *testing.T) {
	q, ok := users.ByClientID("7")
	require.True(t, ok)
	require.Equal(t, int64(7), *q.ID)

	for _, bad := range []string{"", "07", "+7", "seven", " 7"} {
		_, ok := users.ByClientID(bad)
		require.False(t, ok, bad)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("correct")
	require.NoError(t, err)
	require.True(t, users.IsPasswordHash(hash))
	require.True(t, users.CheckPasswordHash("correct", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))
	require.False(t, users.IsPasswordHash("correct"))
}
