package auth

import (
	"context"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/token/refresh"
	"github.com/jrsteele09/go-token-server/users"
)

// handlePassword authenticates a user by username and password.
func (p *Provider) handlePassword(ctx context.Context, req TokenRequest) (*Ticket, error) {
	sessionClientID := p.newID()

	user, err := p.store.FindUser(ctx, users.ByUsername(req.Username))
	if err != nil {
		if credstore.IsNotFound(err) {
			return nil, invalidGrant(DescInvalidCredentials)
		}
		return nil, p.internalError(err, "[Provider.handlePassword] FindUser")
	}
	if !p.validator.ValidateUserCredentials(user, req.Username, req.Password) {
		return nil, invalidGrant(DescInvalidUserCredentials)
	}

	return &Ticket{
		Identity:   PasswordIdentity(user, p.newID(), p.newID()),
		Properties: PasswordProperties(user, sessionClientID),
	}, nil
}

// handleRefreshToken consumes the presented refresh token and re-issues the
// prior principal. The record is deleted before the ticket is returned, so a
// token can be redeemed at most once.
func (p *Provider) handleRefreshToken(ctx context.Context, req TokenRequest) (*Ticket, error) {
	prior := req.Ticket
	if prior == nil || prior.TokenID == "" {
		return nil, invalidGrant(DescRefreshTokenNoLongerValid)
	}

	q := refresh.Query{TokenID: prior.TokenID, ClientID: prior.Properties.Item(ItemClientID)}
	token, err := p.refresh.Find(ctx, q)
	if err != nil {
		if credstore.IsNotFound(err) {
			return nil, invalidGrant(DescRefreshTokenNoLongerValid)
		}
		return nil, p.internalError(err, "[Provider.handleRefreshToken] FindRefreshToken")
	}

	if err := p.refresh.Delete(ctx, token); err != nil {
		// Lost a race with a concurrent redemption of the same token.
		if credstore.IsNotFound(err) {
			return nil, invalidGrant(DescRefreshTokenNoLongerValid)
		}
		return nil, p.internalError(err, "[Provider.handleRefreshToken] DeleteRefreshToken")
	}

	return &Ticket{
		Identity:   prior.Identity.Clone(),
		Properties: prior.Properties.Clone(),
	}, nil
}

// handleClientCredentials authenticates a client by id and secret. Failures are
// invalid_grant here; Validate has already reported invalid_client for the
// same conditions when the pipeline runs in order.
func (p *Provider) handleClientCredentials(ctx context.Context, req TokenRequest) (*Ticket, error) {
	q, ok := users.ByClientID(req.ClientID)
	if !ok {
		return nil, invalidGrant(DescInvalidCredentials)
	}
	client, err := p.store.FindUser(ctx, q)
	if err != nil {
		if credstore.IsNotFound(err) {
			return nil, invalidGrant(DescInvalidCredentials)
		}
		return nil, p.internalError(err, "[Provider.handleClientCredentials] FindUser")
	}
	if !p.validator.ValidateClientCredentials(client, req.ClientID, req.ClientSecret) {
		return nil, invalidGrant(DescInvalidClientCredentials)
	}

	return &Ticket{
		Identity:   ClientIdentity(client, p.newID()),
		Properties: ClientProperties(client),
	}, nil
}
