package auth

import (
	"crypto/subtle"

	"github.com/jrsteele09/go-token-server/users"
)

// CredentialValidator decides whether presented credentials match a stored record.
type CredentialValidator interface {
	ValidateUserCredentials(user *users.User, username, password string) bool
	ValidateClientCredentials(client *users.User, clientID, clientSecret string) bool
}

// Validator is the default CredentialValidator. Stored secrets may be bcrypt
// hashes or plain values; plain values are compared in constant time.
type Validator struct{}

var _ CredentialValidator = (*Validator)(nil)

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials checks the username exactly and the password against the stored secret.
func (v *Validator) ValidateUserCredentials(user *users.User, username, password string) bool {
	if user == nil || user.Username != username {
		return false
	}
	return v.matchSecret(user.Password, password)
}

// ValidateClientCredentials checks that clientID is the record id and the secret matches.
func (v *Validator) ValidateClientCredentials(client *users.User, clientID, clientSecret string) bool {
	if client == nil || client.ClientID() != clientID {
		return false
	}
	return v.matchSecret(client.Password, clientSecret)
}

func (v *Validator) matchSecret(stored, presented string) bool {
	if users.IsPasswordHash(stored) {
		return users.CheckPasswordHash(presented, stored)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
