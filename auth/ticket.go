package auth

import (
	"maps"
	"slices"
	"time"
)

// Destination names a token a claim is copied into.
type Destination string

const (
	AccessTokenDestination Destination = "access_token"
	IDTokenDestination     Destination = "id_token"
)

// Claim types emitted by the claims builder.
const (
	ClaimSubject  = "sub"
	ClaimClientID = "client_id"
	ClaimName     = "name"
	ClaimUsername = "username"
	ClaimRole     = "role"
)

// Property item keys used to correlate refresh tokens.
const (
	ItemUserID   = "UserId"
	ItemClientID = "ClientId"
)

// Claim is a single typed assertion about the principal.
type Claim struct {
	Type         string        `json:"type"`
	Value        string        `json:"value"`
	Destinations []Destination `json:"destinations,omitempty"`
}

// HasDestination reports whether the claim targets d.
func (c Claim) HasDestination(d Destination) bool {
	return slices.Contains(c.Destinations, d)
}

// Identity is the authenticated principal: an ordered set of claims.
type Identity struct {
	Claims []Claim `json:"claims"`
}

// FindFirst returns the first claim of the given type.
func (i *Identity) FindFirst(claimType string) (Claim, bool) {
	if i == nil {
		return Claim{}, false
	}
	for _, c := range i.Claims {
		if c.Type == claimType {
			return c, true
		}
	}
	return Claim{}, false
}

// ClaimsFor returns the claims targeted at d, keyed by type. Later claims of the
// same type are ignored.
func (i *Identity) ClaimsFor(d Destination) map[string]string {
	out := make(map[string]string)
	if i == nil {
		return out
	}
	for _, c := range i.Claims {
		if _, seen := out[c.Type]; seen || !c.HasDestination(d) {
			continue
		}
		out[c.Type] = c.Value
	}
	return out
}

// Clone returns a deep copy.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	claims := make([]Claim, len(i.Claims))
	for n, c := range i.Claims {
		c.Destinations = slices.Clone(c.Destinations)
		claims[n] = c
	}
	return &Identity{Claims: claims}
}

// Properties is the metadata attached to a ticket.
type Properties struct {
	IssuedAt  *time.Time        `json:"issued_at,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Items     map[string]string `json:"items,omitempty"`
}

// Item returns the value stored under key, or "" when absent.
func (p *Properties) Item(key string) string {
	if p == nil {
		return ""
	}
	return p.Items[key]
}

// Clone returns a deep copy.
func (p *Properties) Clone() *Properties {
	if p == nil {
		return nil
	}
	out := &Properties{Items: maps.Clone(p.Items)}
	if p.IssuedAt != nil {
		t := *p.IssuedAt
		out.IssuedAt = &t
	}
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		out.ExpiresAt = &t
	}
	if out.Items == nil {
		out.Items = make(map[string]string)
	}
	return out
}

// Ticket is an authenticated principal plus its properties: the unit the host
// encodes into tokens. TokenID is set once a refresh token has been persisted
// for the ticket, and on tickets decoded from a presented refresh token.
type Ticket struct {
	TokenID    string
	Identity   *Identity
	Properties *Properties
}
