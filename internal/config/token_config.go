package config

import (
	"github.com/pkg/errors"
)

type TokenConfig interface {
	GetAccessTokenLifetimeMinutes() int
	GetRefreshTokenLifetimeMinutes() int
	GetRequestScope() string
	GetRotateRefreshTokens() bool
	GetSigningKey() string
	GetIssuer() string
}

// Token holds the token pipeline settings. Lifetimes of zero or less select
// the pipeline defaults.
type Token struct {
	AccessTokenLifetimeMinutes  int    `env:"ACCESS_TOKEN_LIFETIME_MINUTES" envDefault:"0"`
	RefreshTokenLifetimeMinutes int    `env:"REFRESH_TOKEN_LIFETIME_MINUTES" envDefault:"0"`
	RequestScope                string `env:"REQUEST_SCOPE"`
	RotateRefreshTokens         bool   `env:"ROTATE_REFRESH_TOKENS" envDefault:"false"`
	SigningKey                  string `env:"SIGNING_KEY"`
	Issuer                      string `env:"ISSUER" envDefault:"http://localhost:8080"`
}

var _ TokenConfig = Token{}

// minSigningKeyLength matches the HMAC signer requirement.
const minSigningKeyLength = 32

func (t Token) validate() error {
	if t.SigningKey != "" && len(t.SigningKey) < minSigningKeyLength {
		return errors.Errorf("SIGNING_KEY must be at least %d bytes", minSigningKeyLength)
	}
	return nil
}

func (t Token) GetAccessTokenLifetimeMinutes() int {
	return t.AccessTokenLifetimeMinutes
}

func (t Token) GetRefreshTokenLifetimeMinutes() int {
	return t.RefreshTokenLifetimeMinutes
}

func (t Token) GetRequestScope() string {
	return t.RequestScope
}

func (t Token) GetRotateRefreshTokens() bool {
	return t.RotateRefreshTokens
}

// GetSigningKey returns the HMAC secret. Empty means a random key is generated
// at startup, which invalidates all tokens on restart.
func (t Token) GetSigningKey() string {
	return t.SigningKey
}

func (t Token) GetIssuer() string {
	return t.Issuer
}
