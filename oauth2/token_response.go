package oauth2

// TokenResponse represents a successful response from the token endpoint (RFC 6749 section 5.1).
type TokenResponse struct {
	// AccessToken is the signed JWT presented to resource servers.
	// Usage: Authorization: Bearer <access_token>
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// IdToken carries the claims targeted at the id_token destination.
	// Only present when the identity has such claims.
	IdToken *string `json:"id_token,omitempty"`

	// RefreshToken references a server-side refresh token record.
	// Absent for a refresh grant unless rotation is enabled.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope echoes the effective request scope.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the body returned when a token request is rejected (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            ErrorCode `json:"error"`
	ErrorDescription string    `json:"error_description,omitempty"`
}
