package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-token-server/auth"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/rs/zerolog/log"
)

// maxTokenRequestBytes bounds the form body of a token request.
const maxTokenRequestBytes = 64 << 10

// Descriptions for requests rejected before they reach the token pipeline.
const (
	descMalformedForm       = "The token request could not be parsed."
	descMissingGrantType    = "The mandatory 'grant_type' parameter is missing."
	descMissingUserCreds    = "The mandatory 'username' and/or 'password' parameters are missing."
	descMissingRefreshToken = "The mandatory 'refresh_token' parameter is missing."
	descMultipleClientAuth  = "Client credentials must be sent using a single authentication method."
)

// TokenHandler serves the token endpoint. Parameters are read from the
// form encoded body; client credentials may also be sent with HTTP Basic.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTokenRequestBytes)
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, descMalformedForm, http.StatusBadRequest)
			return
		}

		req, rejection := s.tokenRequest(r)
		if rejection != nil {
			writeRejection(w, rejection)
			return
		}

		res, err := s.provider.Process(r.Context(), req)
		if err != nil {
			rejection, _ := auth.AsRejection(err)
			writeRejection(w, rejection)
			return
		}

		response, err := s.encoder.TokenResponse(res)
		if err != nil {
			log.Err(err).Str("grant_type", string(req.GrantType)).Msg("failed to encode token response")
			writeJSONError(w, oauth2.ErrorServerError, auth.DescServerError, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// PreflightHandler answers CORS preflight requests for the token endpoint.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// tokenRequest maps the HTTP request onto a pipeline request, rejecting
// requests that are missing a mandatory parameter for their grant type.
func (s *Server) tokenRequest(r *http.Request) (auth.TokenRequest, *auth.Rejection) {
	form := r.PostForm

	grantType := oauth2.GrantType(form.Get(oauth2.ParamGrantType))
	if grantType == "" {
		return auth.TokenRequest{}, auth.Reject(oauth2.ErrorInvalidRequest, descMissingGrantType)
	}

	req := auth.TokenRequest{
		GrantType:    grantType,
		Username:     form.Get(oauth2.ParamUsername),
		Password:     form.Get(oauth2.ParamPassword),
		ClientID:     form.Get(oauth2.ParamClientID),
		ClientSecret: form.Get(oauth2.ParamClientSecret),
		Scope:        form.Get(oauth2.ParamScope),
	}

	if id, secret, ok := basicClientCredentials(r); ok {
		if req.ClientSecret != "" {
			return auth.TokenRequest{}, auth.Reject(oauth2.ErrorInvalidRequest, descMultipleClientAuth)
		}
		req.ClientID, req.ClientSecret = id, secret
	}

	switch grantType {
	case oauth2.PasswordGrant:
		if req.Username == "" || req.Password == "" {
			return auth.TokenRequest{}, auth.Reject(oauth2.ErrorInvalidRequest, descMissingUserCreds)
		}
	case oauth2.RefreshTokenGrant:
		raw := form.Get(oauth2.ParamRefreshToken)
		if raw == "" {
			return auth.TokenRequest{}, auth.Reject(oauth2.ErrorInvalidRequest, descMissingRefreshToken)
		}
		ticket, err := s.encoder.DecodeRefreshToken(raw)
		if err != nil {
			// Left nil: the refresh grant rejects it as no longer valid.
			log.Debug().Err(err).Msg("refresh token rejected by decoder")
		}
		req.Ticket = ticket
	}
	return req, nil
}

// basicClientCredentials reads client credentials from the Authorization
// header. Both parts are form-url-encoded before base64 (RFC 6749 section 2.3.1).
func basicClientCredentials(r *http.Request) (string, string, bool) {
	id, secret, ok := r.BasicAuth()
	if !ok {
		return "", "", false
	}
	return unescapeOrRaw(id), unescapeOrRaw(secret), true
}

func unescapeOrRaw(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

func writeRejection(w http.ResponseWriter, rejection *auth.Rejection) {
	status := http.StatusBadRequest
	switch rejection.Code {
	case oauth2.ErrorInvalidClient:
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	case oauth2.ErrorServerError:
		status = http.StatusInternalServerError
	}
	writeJSONError(w, rejection.Code, rejection.Description, status)
}
