package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// OutcomeRecorder observes the result of every processed token request.
// outcome is "success" or the rejection error code.
type OutcomeRecorder interface {
	RecordOutcome(grantType, outcome string)
}

// OutcomeSuccess is the outcome reported for a request that produced a ticket.
const OutcomeSuccess = "success"

type grantHandler func(ctx context.Context, req TokenRequest) (*Ticket, error)

// Result is the outcome of Process: the authenticated ticket the host encodes
// into tokens, and whether a refresh token record was persisted for it.
type Result struct {
	Ticket             *Ticket
	GrantType          oauth2.GrantType
	Scope              string
	RefreshTokenIssued bool
}

// Provider runs the token endpoint pipeline: extract, validate, handle and
// refresh token serialization.
type Provider struct {
	store     credstore.Gateway
	refresh   *refresh.Manager
	validator CredentialValidator
	config    Configuration
	handlers  map[oauth2.GrantType]grantHandler
	nowTime   func() time.Time
	newID     func() string
	logger    zerolog.Logger
	recorder  OutcomeRecorder
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// WithIDGenerator sets the generator for subjects, session client ids and refresh token ids.
func WithIDGenerator(newID func() string) ProviderOption {
	return func(p *Provider) {
		p.newID = newID
	}
}

// WithLogger sets the logger. The global zerolog logger is used otherwise.
func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithValidator replaces the default credential validator.
func WithValidator(v CredentialValidator) ProviderOption {
	return func(p *Provider) {
		p.validator = v
	}
}

// WithOutcomeRecorder registers a recorder for request outcomes.
func WithOutcomeRecorder(r OutcomeRecorder) ProviderOption {
	return func(p *Provider) {
		p.recorder = r
	}
}

// NewProvider creates the token pipeline over the given gateway.
func NewProvider(store credstore.Gateway, config Configuration, options ...ProviderOption) (*Provider, error) {
	if store == nil {
		return nil, errors.New("[NewProvider] credential store is required")
	}
	if config.AccessTokenLifetime <= 0 || config.RefreshTokenLifetime <= 0 {
		return nil, errors.New("[NewProvider] configuration must be built with NewConfiguration")
	}

	p := &Provider{
		store:     store,
		validator: NewValidator(),
		config:    config,
		nowTime:   time.Now,
		newID:     func() string { return uuid.New().String() },
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}

	p.refresh = refresh.NewManager(store, config.RefreshTokenLifetime, refresh.WithNowFunc(p.nowTime))
	p.handlers = map[oauth2.GrantType]grantHandler{
		oauth2.PasswordGrant:          p.handlePassword,
		oauth2.RefreshTokenGrant:      p.handleRefreshToken,
		oauth2.ClientCredentialsGrant: p.handleClientCredentials,
	}
	return p, nil
}

// Configuration returns the configuration the provider was built with.
func (p *Provider) Configuration() Configuration {
	return p.config
}

// Extract applies request defaults. The configured scope is injected when the
// request carries none.
func (p *Provider) Extract(req TokenRequest) TokenRequest {
	if req.Scope == "" {
		req.Scope = p.config.RequestScope
	}
	return req
}

// Validate authenticates the client for grant types that require it. Grant
// types without a client authentication step are Skipped.
func (p *Provider) Validate(ctx context.Context, req TokenRequest) (ValidationResult, error) {
	if !req.GrantType.Supported() {
		return Skipped, unsupportedGrantType()
	}
	if req.GrantType != oauth2.ClientCredentialsGrant {
		return Skipped, nil
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		return Skipped, invalidRequest(DescMissingClientCredentials)
	}

	q, ok := users.ByClientID(req.ClientID)
	if !ok {
		return Skipped, invalidClient(DescInvalidClientID)
	}
	client, err := p.store.FindUser(ctx, q)
	if err != nil {
		if credstore.IsNotFound(err) {
			return Skipped, invalidClient(DescInvalidClientID)
		}
		return Skipped, p.internalError(err, "[Provider.Validate] FindUser")
	}
	if !p.validator.ValidateClientCredentials(client, req.ClientID, req.ClientSecret) {
		return Skipped, invalidClient(DescInvalidClientCredentials)
	}
	return Validated, nil
}

// Handle dispatches the request to its grant handler and returns the
// authenticated ticket. A panicking handler is reported as server_error.
func (p *Provider) Handle(ctx context.Context, req TokenRequest) (ticket *Ticket, err error) {
	handler, ok := p.handlers[req.GrantType]
	if !ok {
		return nil, unsupportedGrantType()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("grant_type", string(req.GrantType)).
				Str("panic", fmt.Sprint(r)).
				Msg("grant handler panicked")
			ticket, err = nil, serverError()
		}
	}()
	return handler(ctx, req)
}

// SerializeRefreshToken persists a refresh token record for the ticket and
// stamps its issue and expiry times onto the ticket properties. A ticket
// without a TokenID is assigned a random one.
func (p *Provider) SerializeRefreshToken(ctx context.Context, ticket *Ticket) error {
	if ticket == nil {
		return errors.New("[Provider.SerializeRefreshToken] ticket is required")
	}
	if ticket.Properties == nil {
		ticket.Properties = &Properties{Items: map[string]string{}}
	}

	var userID int64
	if raw := ticket.Properties.Item(ItemUserID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			p.logger.Error().Err(err).Str("user_id", raw).Msg("refresh token serialization failed")
			return errors.Wrapf(err, "[Provider.SerializeRefreshToken] invalid %s item", ItemUserID)
		}
		userID = id
	}
	clientID := ticket.Properties.Item(ItemClientID)

	if ticket.TokenID == "" {
		ticket.TokenID = p.newID()
	}
	token, err := p.refresh.Issue(ctx, ticket.TokenID, userID, clientID)
	if err != nil {
		p.logger.Error().Err(err).Str("client_id", clientID).Msg("refresh token serialization failed")
		return errors.Wrap(err, "[Provider.SerializeRefreshToken] Issue")
	}

	issuedAt, expiresAt := token.IssuedAt, token.ExpiresAt
	ticket.Properties.IssuedAt = &issuedAt
	ticket.Properties.ExpiresAt = &expiresAt
	return nil
}

// Process runs the whole pipeline for one request. The returned error is
// always a *Rejection.
func (p *Provider) Process(ctx context.Context, req TokenRequest) (*Result, error) {
	req = p.Extract(req)

	res, err := p.process(ctx, req)
	if err != nil {
		rejection, _ := AsRejection(err)
		p.logger.Debug().
			Str("grant_type", string(req.GrantType)).
			Str("error", string(rejection.Code)).
			Str("error_description", rejection.Description).
			Msg("token request rejected")
		p.record(req.GrantType, string(rejection.Code))
		return nil, rejection
	}
	p.record(req.GrantType, OutcomeSuccess)
	return res, nil
}

func (p *Provider) process(ctx context.Context, req TokenRequest) (*Result, error) {
	if _, err := p.Validate(ctx, req); err != nil {
		return nil, err
	}
	ticket, err := p.Handle(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{Ticket: ticket, GrantType: req.GrantType, Scope: req.Scope}
	if req.GrantType == oauth2.RefreshTokenGrant && !p.config.RotateRefreshTokens {
		return res, nil
	}
	if err := p.SerializeRefreshToken(ctx, ticket); err != nil {
		return nil, serverError()
	}
	res.RefreshTokenIssued = true
	return res, nil
}

func (p *Provider) record(grantType oauth2.GrantType, outcome string) {
	if p.recorder == nil {
		return
	}
	if !grantType.Supported() {
		grantType = "unsupported"
	}
	p.recorder.RecordOutcome(string(grantType), outcome)
}

// internalError logs an unexpected store failure and hides it behind server_error.
func (p *Provider) internalError(err error, msg string) *Rejection {
	p.logger.Error().Err(errors.Wrap(err, msg)).Msg("credential store failure")
	return serverError()
}
