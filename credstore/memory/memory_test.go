package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/credstore/memory"
	"github.com/jrsteele09/go-token-server/credstore/storetest"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) credstore.Store {
		return memory.New()
	})
}

func TestStore_ExpiredTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	issued := time.Now().Add(-2 * time.Hour)
	_, err := s.AddRefreshToken(ctx, "expired", 7, "session-1", issued, issued.Add(time.Hour))
	require.NoError(t, err)

	_, err = s.FindRefreshToken(ctx, refresh.Query{TokenID: "expired", ClientID: "session-1"})
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	n, err := credstore.SeedFromFile(ctx, s, "testdata/seed.yaml")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list := s.Users()
	require.Len(t, list, 2)
	require.Equal(t, int64(7), list[0].ID)
	require.Equal(t, int64(100), list[1].ID)
}
