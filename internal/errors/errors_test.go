package errors_test

import (
	"errors"
	"testing"

	apperrors "github.com/jrsteele09/go-token-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.Nil(t, apperrors.Wrapf(nil, "context"))

	err := apperrors.Wrapf(apperrors.ErrNotFound, "find user %d", 7)
	require.EqualError(t, err, "find user 7: not found")
	require.True(t, apperrors.IsNotFound(err))
	require.False(t, errors.Is(err, apperrors.ErrTokenExpired))
}

func TestIsNotFound(t *testing.T) {
	require.False(t, apperrors.IsNotFound(nil))
	require.False(t, apperrors.IsNotFound(errors.New("not found")))
	require.True(t, apperrors.IsNotFound(apperrors.Wrapf(apperrors.Wrapf(apperrors.ErrNotFound, "inner"), "outer")))
}
