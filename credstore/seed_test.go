package credstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/credstore/memory"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("plain and hashed records", func(t *testing.T) {
		s := memory.New()
		doc := `
users:
  - id: 7
    username: alice
    password: correct
    role: User
    hash: true
  - id: 42
    password: s3cret
    role: Service
`
		n, err := credstore.Seed(ctx, s, strings.NewReader(doc))
		require.NoError(t, err)
		require.Equal(t, 2, n)

		alice, err := s.FindUser(ctx, users.ByUsername("alice"))
		require.NoError(t, err)
		require.True(t, users.IsPasswordHash(alice.Password))
		require.True(t, users.CheckPasswordHash("correct", alice.Password))

		client, err := s.FindUser(ctx, users.ByID(42))
		require.NoError(t, err)
		require.Equal(t, "s3cret", client.Password)
	})

	t.Run("empty document", func(t *testing.T) {
		n, err := credstore.Seed(ctx, memory.New(), strings.NewReader(""))
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("duplicate id", func(t *testing.T) {
		doc := "users:\n  - id: 1\n    username: a\n  - id: 1\n    username: b\n"
		_, err := credstore.Seed(ctx, memory.New(), strings.NewReader(doc))
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate id 1")
	})

	t.Run("non positive id", func(t *testing.T) {
		doc := "users:\n  - id: 0\n    username: a\n"
		_, err := credstore.Seed(ctx, memory.New(), strings.NewReader(doc))
		require.Error(t, err)
		require.Contains(t, err.Error(), "id must be positive")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := credstore.SeedFromFile(ctx, memory.New(), "does-not-exist.yaml")
		require.Error(t, err)
	})
}
