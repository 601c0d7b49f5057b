// Package token encodes authenticated tickets into the JWTs returned by the
// token endpoint, and decodes presented refresh tokens back into tickets.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-token-server/auth"
	apperrors "github.com/jrsteele09/go-token-server/internal/errors"
	"github.com/jrsteele09/go-token-server/internal/utils"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"
)

// Values of the token_use claim.
const (
	UseAccess  = "access"
	UseID      = "id"
	UseRefresh = "refresh"
)

// refreshClaims is the payload of a refresh token. It carries the whole prior
// ticket so the refresh grant can re-issue the principal without a user lookup.
type refreshClaims struct {
	jwt.RegisteredClaims
	TokenUse string            `json:"token_use"`
	Claims   []auth.Claim      `json:"claims,omitempty"`
	Items    map[string]string `json:"items,omitempty"`
}

// Encoder turns tickets into signed tokens.
type Encoder struct {
	signer            Signer
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type EncoderOption func(*Encoder)

func WithIssuer(issuer string) EncoderOption {
	return func(e *Encoder) {
		e.issuer = issuer
	}
}

func WithNowFunc(now func() time.Time) EncoderOption {
	return func(e *Encoder) {
		e.nowFunc = now
	}
}

// NewEncoder creates an encoder issuing access and id tokens valid for accessTokenExpiry.
func NewEncoder(signer Signer, accessTokenExpiry time.Duration, options ...EncoderOption) (*Encoder, error) {
	if signer == nil {
		return nil, errors.New("[NewEncoder] signer is required")
	}
	if accessTokenExpiry <= 0 {
		return nil, errors.New("[NewEncoder] access token expiry must be positive")
	}
	e := &Encoder{
		signer:            signer,
		accessTokenExpiry: accessTokenExpiry,
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// TokenResponse encodes a processed request into the token endpoint response.
func (e *Encoder) TokenResponse(res *auth.Result) (*oauth2.TokenResponse, error) {
	if res == nil || res.Ticket == nil {
		return nil, errors.New("[Encoder.TokenResponse] result has no ticket")
	}
	ticket := res.Ticket
	now := e.nowFunc()

	accessToken, err := e.CreateAccessToken(ticket.Identity, res.Scope, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Encoder.TokenResponse] CreateAccessToken")
	}

	response := &oauth2.TokenResponse{
		AccessToken: accessToken,
		TokenType:   oauth2.BearerTokenType,
		ExpiresIn:   int(e.accessTokenExpiry.Seconds()),
		Scope:       res.Scope,
	}

	if idClaims := ticket.Identity.ClaimsFor(auth.IDTokenDestination); len(idClaims) > 0 {
		idToken, err := e.CreateIDToken(ticket.Identity, now)
		if err != nil {
			return nil, errors.Wrap(err, "[Encoder.TokenResponse] CreateIDToken")
		}
		response.IdToken = utils.Ptr(idToken)
	}

	if res.RefreshTokenIssued {
		refreshToken, err := e.CreateRefreshToken(ticket)
		if err != nil {
			return nil, errors.Wrap(err, "[Encoder.TokenResponse] CreateRefreshToken")
		}
		response.RefreshToken = utils.Ptr(refreshToken)
	}
	return response, nil
}

// CreateAccessToken signs the claims targeted at the access token.
func (e *Encoder) CreateAccessToken(identity *auth.Identity, scope string, now time.Time) (string, error) {
	claims := e.baseClaims(identity.ClaimsFor(auth.AccessTokenDestination), UseAccess, now)
	if scope != "" {
		claims["scope"] = scope
	}
	return e.signer.Sign(claims)
}

// CreateIDToken signs the claims targeted at the id token. The audience is the
// client_id claim when present.
func (e *Encoder) CreateIDToken(identity *auth.Identity, now time.Time) (string, error) {
	idClaims := identity.ClaimsFor(auth.IDTokenDestination)
	claims := e.baseClaims(idClaims, UseID, now)
	if clientID, ok := idClaims[auth.ClaimClientID]; ok {
		claims["aud"] = clientID
	}
	return e.signer.Sign(claims)
}

// CreateRefreshToken signs a refresh token referencing the persisted record
// ticket.TokenID. The ticket must have been serialized first.
func (e *Encoder) CreateRefreshToken(ticket *auth.Ticket) (string, error) {
	if ticket.TokenID == "" || ticket.Properties == nil || ticket.Properties.ExpiresAt == nil {
		return "", errors.New("[Encoder.CreateRefreshToken] ticket has not been serialized")
	}
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ticket.TokenID,
			Issuer:    e.issuer,
			ExpiresAt: jwt.NewNumericDate(*ticket.Properties.ExpiresAt),
		},
		TokenUse: UseRefresh,
		Items:    ticket.Properties.Items,
	}
	if ticket.Properties.IssuedAt != nil {
		claims.IssuedAt = jwt.NewNumericDate(*ticket.Properties.IssuedAt)
	}
	if ticket.Identity != nil {
		claims.Claims = ticket.Identity.Claims
	}
	return e.signer.Sign(claims)
}

// DecodeRefreshToken verifies a presented refresh token and rebuilds the
// ticket it was issued for. It does not consult the store: whether the token
// is still redeemable is decided by the refresh grant.
func (e *Encoder) DecodeRefreshToken(raw string) (*auth.Ticket, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	var claims refreshClaims
	_, err := jwt.ParseWithClaims(raw, &claims, e.signer.GetVerificationKey, e.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "[Encoder.DecodeRefreshToken] %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "[Encoder.DecodeRefreshToken] %v", err)
	}
	if claims.TokenUse != UseRefresh || claims.ID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "[Encoder.DecodeRefreshToken] not a refresh token")
	}

	properties := &auth.Properties{Items: claims.Items}
	if properties.Items == nil {
		properties.Items = map[string]string{}
	}
	if claims.IssuedAt != nil {
		properties.IssuedAt = utils.Ptr(claims.IssuedAt.UTC())
	}
	properties.ExpiresAt = utils.Ptr(claims.ExpiresAt.UTC())

	return &auth.Ticket{
		TokenID:    claims.ID,
		Identity:   &auth.Identity{Claims: claims.Claims},
		Properties: properties,
	}, nil
}

// ParseAccessToken verifies an access token issued by this encoder and returns its claims.
func (e *Encoder) ParseAccessToken(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, e.signer.GetVerificationKey, e.parserOptions()...); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "[Encoder.ParseAccessToken] %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Encoder.ParseAccessToken] %v", err)
	}
	if use, _ := claims["token_use"].(string); use != UseAccess {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Encoder.ParseAccessToken] not an access token")
	}
	return claims, nil
}

func (e *Encoder) baseClaims(values map[string]string, use string, now time.Time) jwt.MapClaims {
	claims := jwt.MapClaims{}
	for k, v := range values {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(e.accessTokenExpiry).Unix()
	claims["jti"] = uuid.New().String()
	claims["token_use"] = use
	if e.issuer != "" {
		claims["iss"] = e.issuer
	}
	return claims
}

func (e *Encoder) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{e.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(e.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if e.issuer != "" {
		opts = append(opts, jwt.WithIssuer(e.issuer))
	}
	return opts
}
