package oauth2

// GrantType represents the OAuth 2.0 grant type presented at the token endpoint.
// Determines which handler authenticates the request.
type GrantType string

const (
	// PasswordGrant exchanges a username and password for tokens.
	// Token request includes: username, password, scope (optional)
	// Returns: access_token, id_token, refresh_token
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token
	// Returns: access_token, id_token and a new refresh_token only when rotation is enabled.
	// A refresh token is single use: presenting it twice fails.
	RefreshTokenGrant GrantType = "refresh_token"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Token request includes: client_id, client_secret (form or HTTP Basic)
	// Returns: access_token, refresh_token. The identity carries no user claims.
	ClientCredentialsGrant GrantType = "client_credentials"
)

// SupportedGrantTypes lists the grant types accepted by the token endpoint.
var SupportedGrantTypes = []GrantType{PasswordGrant, RefreshTokenGrant, ClientCredentialsGrant}

// Supported reports whether g is one of the accepted grant types.
func (g GrantType) Supported() bool {
	for _, s := range SupportedGrantTypes {
		if g == s {
			return true
		}
	}
	return false
}

// ErrorCode is the value of the "error" member of an error response (RFC 6749 section 5.2).
type ErrorCode string

const (
	ErrorUnsupportedGrantType ErrorCode = "unsupported_grant_type"
	ErrorInvalidRequest       ErrorCode = "invalid_request"
	ErrorInvalidClient        ErrorCode = "invalid_client"
	ErrorInvalidGrant         ErrorCode = "invalid_grant"

	// ErrorServerError reports an unexpected failure inside the server
	// (store outage, panic). The request may be retried.
	ErrorServerError ErrorCode = "server_error"
)

// Form parameter names read from token requests.
const (
	ParamGrantType    = "grant_type"
	ParamUsername     = "username"
	ParamPassword     = "password"
	ParamClientID     = "client_id"
	ParamClientSecret = "client_secret"
	ParamScope        = "scope"
	ParamRefreshToken = "refresh_token"
)

// BearerTokenType is the token_type of every issued access token.
const BearerTokenType = "bearer"
