// Package credstore defines the credential store gateway: the query contract the
// token pipeline needs from persistence. Implementations live in sub-packages.
package credstore

import (
	"context"

	apperrors "github.com/jrsteele09/go-token-server/internal/errors"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
)

// ErrNotFound is returned by every gateway lookup that finds no record, and by
// DeleteRefreshToken when the record was already consumed.
var ErrNotFound = apperrors.ErrNotFound

// UserFinder looks up user/client records.
type UserFinder interface {
	FindUser(ctx context.Context, q users.Query) (*users.User, error)
}

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks -source=gateway.go Gateway

// Gateway is everything the token pipeline reads and writes. Every call goes to
// the backing store; nothing is cached between requests.
type Gateway interface {
	UserFinder
	refresh.Repo
}

// UserWriter creates or replaces user/client records. It is used for seeding and
// administration and is not part of the request path.
type UserWriter interface {
	UpsertUser(ctx context.Context, user *users.User) error
}

// Store is a gateway that can also be seeded and closed.
type Store interface {
	Gateway
	UserWriter
	Close() error
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return apperrors.IsNotFound(err)
}
