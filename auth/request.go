package auth

import "github.com/jrsteele09/go-token-server/oauth2"

// TokenRequest is a token endpoint request after transport decoding.
// Scope is empty when no scope parameter was sent. Ticket is set by the host
// for refresh_token grants, decoded from the presented refresh token.
type TokenRequest struct {
	GrantType    oauth2.GrantType
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Scope        string
	Ticket       *Ticket
}

// ValidationResult is the outcome of a successful Validate call.
type ValidationResult int

const (
	// Skipped means the grant type needs no client authentication before its handler runs.
	Skipped ValidationResult = iota
	// Validated means the client was authenticated.
	Validated
)

func (r ValidationResult) String() string {
	if r == Validated {
		return "validated"
	}
	return "skipped"
}
