package auth

import (
	"strconv"

	"github.com/jrsteele09/go-token-server/users"
)

var bothDestinations = []Destination{AccessTokenDestination, IDTokenDestination}

func claim(claimType, value string) Claim {
	return Claim{Type: claimType, Value: value, Destinations: append([]Destination(nil), bothDestinations...)}
}

// PasswordIdentity builds the identity for a user authenticated with the password grant.
// subject and clientID are per-login random identifiers.
func PasswordIdentity(user *users.User, subject, clientID string) *Identity {
	return &Identity{Claims: []Claim{
		claim(ClaimSubject, subject),
		claim(ClaimClientID, clientID),
		claim(ClaimName, strconv.FormatInt(user.ID, 10)),
		claim(ClaimUsername, user.Username),
		claim(ClaimRole, user.Role),
	}}
}

// ClientIdentity builds the identity for a client authenticated with the
// client_credentials grant. It carries no name or username claims.
func ClientIdentity(client *users.User, subject string) *Identity {
	return &Identity{Claims: []Claim{
		claim(ClaimSubject, subject),
		claim(ClaimClientID, client.ClientID()),
		claim(ClaimRole, client.Role),
	}}
}

// PasswordProperties ties a password ticket to its user and login session.
func PasswordProperties(user *users.User, sessionClientID string) *Properties {
	return &Properties{Items: map[string]string{
		ItemUserID:   strconv.FormatInt(user.ID, 10),
		ItemClientID: sessionClientID,
	}}
}

// ClientProperties ties a client_credentials ticket to its client.
func ClientProperties(client *users.User) *Properties {
	return &Properties{Items: map[string]string{
		ItemClientID: client.ClientID(),
	}}
}
