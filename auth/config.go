package auth

import "time"

const (
	DefaultAccessTokenLifetimeMinutes  = 60
	DefaultRefreshTokenLifetimeMinutes = 20160 // 14 days
)

// Configuration is the normalised token pipeline configuration.
type Configuration struct {
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	RequestScope         string
	RotateRefreshTokens  bool // issue a new refresh token on every refresh_token grant
}

// ConfigurationOption adjusts a Configuration built by NewConfiguration.
type ConfigurationOption func(*Configuration)

// WithRefreshTokenRotation enables issuing a fresh refresh token on refresh grants.
func WithRefreshTokenRotation(rotate bool) ConfigurationOption {
	return func(c *Configuration) {
		c.RotateRefreshTokens = rotate
	}
}

// NewConfiguration builds a Configuration from raw minute values. Each
// non-positive lifetime falls back to its own default.
func NewConfiguration(accessMinutes, refreshMinutes int, requestScope string, opts ...ConfigurationOption) Configuration {
	if accessMinutes <= 0 {
		accessMinutes = DefaultAccessTokenLifetimeMinutes
	}
	if refreshMinutes <= 0 {
		refreshMinutes = DefaultRefreshTokenLifetimeMinutes
	}
	c := Configuration{
		AccessTokenLifetime:  time.Duration(accessMinutes) * time.Minute,
		RefreshTokenLifetime: time.Duration(refreshMinutes) * time.Minute,
		RequestScope:         requestScope,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// DefaultConfiguration returns the configuration used when nothing is set.
func DefaultConfiguration() Configuration {
	return NewConfiguration(0, 0, "")
}
