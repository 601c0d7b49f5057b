package users

import (
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Role values used by the seeded records. The store may hold any role string.
const (
	RoleAdministrator = "Administrator"
	RoleUser          = "User"
	RoleService       = "Service"
)

// User is the single record type backing both flows that authenticate a principal:
// the password grant treats it as an end user (Username/Password), the
// client_credentials grant treats it as a client (ID as client_id, Password as client_secret).
type User struct {
	ID       int64  `json:"id" yaml:"id"`             // Unique identifier, also the client_id for client_credentials
	Username string `json:"username" yaml:"username"` // Exact-match login name
	Password string `json:"-" yaml:"password"`        // bcrypt hash or plain secret, store-defined - never serialize
	Role     string `json:"role" yaml:"role"`         // Single role claim value
}

// ClientID returns the record identifier in the form presented as client_id.
func (u *User) ClientID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Query selects a single user record. Set fields must all match exactly;
// a Query with no fields set matches nothing.
type Query struct {
	ID       *int64
	Username *string
}

// ByUsername builds a Query matching on the exact username.
func ByUsername(username string) Query {
	return Query{Username: &username}
}

// ByID builds a Query matching on the record identifier.
func ByID(id int64) Query {
	return Query{ID: &id}
}

// ByClientID builds a Query from a client_id string. A client_id that is not the
// canonical decimal form of an identifier can never match, so ok is false.
func ByClientID(clientID string) (q Query, ok bool) {
	id, err := strconv.ParseInt(clientID, 10, 64)
	if err != nil || strconv.FormatInt(id, 10) != clientID {
		return Query{}, false
	}
	return ByID(id), true
}

// IsEmpty reports whether the query has no criteria.
func (q Query) IsEmpty() bool {
	return q.ID == nil && q.Username == nil
}

// Matches reports whether u satisfies every criterion of q.
func (q Query) Matches(u *User) bool {
	if u == nil || q.IsEmpty() {
		return false
	}
	if q.ID != nil && *q.ID != u.ID {
		return false
	}
	if q.Username != nil && *q.Username != u.Username {
		return false
	}
	return true
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsPasswordHash reports whether a stored password value is a bcrypt hash
// rather than a plain secret.
func IsPasswordHash(stored string) bool {
	if len(stored) != 60 {
		return false
	}
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}
