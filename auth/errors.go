package auth

import (
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"
)

// Error descriptions returned to clients.
const (
	DescUnsupportedGrantType      = "Only authorization code, refresh token, client credentials grant types are accepted by this authorization server."
	DescMissingClientCredentials  = "The mandatory 'client_id'/'client_secret' parameters are missing."
	DescInvalidClientID           = "The specified client identifier is invalid."
	DescInvalidClientCredentials  = "The specified client credentials are invalid."
	DescInvalidCredentials        = "Invalid credentials."
	DescInvalidUserCredentials    = "The specified user credentials are invalid."
	DescRefreshTokenNoLongerValid = "The refresh token is no longer valid."
	DescServerError               = "The authorization server encountered an unexpected condition."
)

// Rejection is a protocol-level failure of a token request. It carries the
// OAuth2 error code and a human readable description for the response body.
type Rejection struct {
	Code        oauth2.ErrorCode
	Description string
}

func (r *Rejection) Error() string {
	return string(r.Code) + ": " + r.Description
}

// Reject builds a Rejection.
func Reject(code oauth2.ErrorCode, description string) *Rejection {
	return &Rejection{Code: code, Description: description}
}

// AsRejection returns the Rejection carried by err. Any other non-nil error is
// reported as a server_error rejection so callers always have a code to send.
func AsRejection(err error) (*Rejection, bool) {
	if err == nil {
		return nil, false
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return Reject(oauth2.ErrorServerError, DescServerError), false
}

func unsupportedGrantType() *Rejection {
	return Reject(oauth2.ErrorUnsupportedGrantType, DescUnsupportedGrantType)
}

func invalidRequest(description string) *Rejection {
	return Reject(oauth2.ErrorInvalidRequest, description)
}

func invalidClient(description string) *Rejection {
	return Reject(oauth2.ErrorInvalidClient, description)
}

func invalidGrant(description string) *Rejection {
	return Reject(oauth2.ErrorInvalidGrant, description)
}

func serverError() *Rejection {
	return Reject(oauth2.ErrorServerError, DescServerError)
}
