package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/auth"
	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/credstore/memory"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/jrsteele09/go-token-server/internal/metrics"
	"github.com/jrsteele09/go-token-server/server"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const seedYAML = `
users:
  - id: 7
    username: alice
    password: correct
    role: User
  - id: 100
    username: reporting-service
    password: "s3cret/+&"
    role: Service
`

type testConfig struct {
	config.EnvVars
	config.Cors
}

type testFixture struct {
	store   *memory.Store
	encoder *token.Encoder
	http    *httptest.Server
	down    atomic.Bool
}

func newTestFixture(t *testing.T, authConfig auth.Configuration) *testFixture {
	t.Helper()
	ctx := context.Background()

	f := &testFixture{store: memory.New()}
	_, err := credstore.Seed(ctx, f.store, strings.NewReader(seedYAML))
	require.NoError(t, err)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	provider, err := auth.NewProvider(f.store, authConfig, auth.WithOutcomeRecorder(m))
	require.NoError(t, err)

	signer, err := token.NewHMACSigner("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	f.encoder, err = token.NewEncoder(signer, authConfig.AccessTokenLifetime, token.WithIssuer("http://tokens.test"))
	require.NoError(t, err)

	cfg := testConfig{
		EnvVars: config.EnvVars{Env: "TEST"},
		Cors:    config.Cors{Origins: []string{"https://app.example"}},
	}
	srv, err := server.New(cfg, provider, f.encoder,
		server.WithMetrics(m),
		server.WithHealthCheck(func(context.Context) error {
			if f.down.Load() {
				return context.DeadlineExceeded
			}
			return nil
		}),
	)
	require.NoError(t, err)

	f.http = httptest.NewServer(srv)
	t.Cleanup(f.http.Close)
	return f
}

func (f *testFixture) tokenURL() string {
	return f.http.URL + server.RouteToken
}

func (f *testFixture) passwordClient(scopes ...string) *xoauth2.Config {
	return &xoauth2.Config{
		Endpoint: xoauth2.Endpoint{TokenURL: f.tokenURL(), AuthStyle: xoauth2.AuthStyleInParams},
		Scopes:   scopes,
	}
}

func (f *testFixture) postForm(t *testing.T, form url.Values, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.tokenURL(), strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func requireOAuthError(t *testing.T, err error, code string) *xoauth2.RetrieveError {
	t.Helper()
	require.Error(t, err)
	var re *xoauth2.RetrieveError
	require.ErrorAs(t, err, &re)
	require.Equal(t, code, re.ErrorCode)
	return re
}

func TestNew(t *testing.T) {
	_, err := server.New(nil, nil, nil)
	require.Error(t, err)
}

func TestPasswordGrant(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.NewConfiguration(15, 0, ""))

	tok, err := f.passwordClient("api").PasswordCredentialsToken(ctx, "alice", "correct")
	require.NoError(t, err)
	require.Equal(t, "bearer", strings.ToLower(tok.TokenType))
	require.NotEmpty(t, tok.RefreshToken)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Expiry, time.Minute)
	require.Equal(t, "api", tok.Extra("scope"))
	require.NotEmpty(t, tok.Extra("id_token"))

	claims, err := f.encoder.ParseAccessToken(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims["username"])
	require.Equal(t, "7", claims["name"])
	require.Equal(t, "User", claims["role"])
	require.Equal(t, "api", claims["scope"])
	require.Equal(t, 1, f.store.RefreshTokenCount())
}

func TestPasswordGrantRejections(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.DefaultConfiguration())

	_, err := f.passwordClient().PasswordCredentialsToken(ctx, "nobody", "x")
	re := requireOAuthError(t, err, "invalid_grant")
	require.Equal(t, http.StatusBadRequest, re.Response.StatusCode)
	require.Equal(t, auth.DescInvalidCredentials, re.ErrorDescription)

	_, err = f.passwordClient().PasswordCredentialsToken(ctx, "alice", "wrong")
	re = requireOAuthError(t, err, "invalid_grant")
	require.Equal(t, auth.DescInvalidUserCredentials, re.ErrorDescription)
	require.Zero(t, f.store.RefreshTokenCount())
}

func TestRefreshGrant(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.DefaultConfiguration())
	client := f.passwordClient()

	login, err := client.PasswordCredentialsToken(ctx, "alice", "correct")
	require.NoError(t, err)

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {login.RefreshToken}}
	resp, body := f.postForm(t, form, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.True(t, gjson.Get(body, "access_token").Exists())
	require.False(t, gjson.Get(body, "refresh_token").Exists())

	claims, err := f.encoder.ParseAccessToken(gjson.Get(body, "access_token").String())
	require.NoError(t, err)
	require.Equal(t, "alice", claims["username"])

	resp, body = f.postForm(t, form, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", gjson.Get(body, "error").String())
	require.Equal(t, auth.DescRefreshTokenNoLongerValid, gjson.Get(body, "error_description").String())
}

func TestRefreshGrantWithRotation(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.NewConfiguration(0, 0, "", auth.WithRefreshTokenRotation(true)))
	client := f.passwordClient()

	login, err := client.PasswordCredentialsToken(ctx, "alice", "correct")
	require.NoError(t, err)

	expired := &xoauth2.Token{RefreshToken: login.RefreshToken, Expiry: time.Now().Add(-time.Minute)}
	refreshed, err := client.TokenSource(ctx, expired).Token()
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, 1, f.store.RefreshTokenCount())

	_, err = client.TokenSource(ctx, expired).Token()
	requireOAuthError(t, err, "invalid_grant")
}

func TestRefreshGrantWithForgedToken(t *testing.T) {
	f := newTestFixture(t, auth.DefaultConfiguration())
	resp, body := f.postForm(t, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"forged"}}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", gjson.Get(body, "error").String())
}

func TestClientCredentialsGrant(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.DefaultConfiguration())

	for _, style := range []xoauth2.AuthStyle{xoauth2.AuthStyleInHeader, xoauth2.AuthStyleInParams} {
		cc := clientcredentials.Config{
			ClientID:     "100",
			ClientSecret: "s3cret/+&",
			TokenURL:     f.tokenURL(),
			AuthStyle:    style,
		}
		tok, err := cc.Token(ctx)
		require.NoError(t, err)

		claims, err := f.encoder.ParseAccessToken(tok.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "100", claims["client_id"])
		require.Equal(t, "Service", claims["role"])
		require.NotContains(t, claims, "username")
		require.NotContains(t, claims, "name")
	}
}

func TestClientCredentialsRejections(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.DefaultConfiguration())

	cc := clientcredentials.Config{ClientID: "100", ClientSecret: "nope", TokenURL: f.tokenURL(), AuthStyle: xoauth2.AuthStyleInHeader}
	_, err := cc.Token(ctx)
	re := requireOAuthError(t, err, "invalid_client")
	require.Equal(t, http.StatusUnauthorized, re.Response.StatusCode)
	require.NotEmpty(t, re.Response.Header.Get("WWW-Authenticate"))

	resp, body := f.postForm(t, url.Values{"grant_type": {"client_credentials"}, "client_id": {"100"}}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", gjson.Get(body, "error").String())
	require.Equal(t, auth.DescMissingClientCredentials, gjson.Get(body, "error_description").String())

	header := http.Header{}
	header.Set("Authorization", "Basic "+basic("100", "s3cret/+&"))
	resp, body = f.postForm(t, url.Values{"grant_type": {"client_credentials"}, "client_secret": {"s3cret/+&"}}, header)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	require.Equal(t, "invalid_request", gjson.Get(body, "error").String())
}

func TestMalformedRequests(t *testing.T) {
	f := newTestFixture(t, auth.DefaultConfiguration())

	tests := []struct {
		name string
		form url.Values
		code string
	}{
		{"missing grant type", url.Values{"username": {"alice"}}, "invalid_request"},
		{"unsupported grant type", url.Values{"grant_type": {"authorization_code"}, "code": {"x"}}, "unsupported_grant_type"},
		{"password without password", url.Values{"grant_type": {"password"}, "username": {"alice"}}, "invalid_request"},
		{"refresh without token", url.Values{"grant_type": {"refresh_token"}}, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.postForm(t, tt.form, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, tt.code, gjson.Get(body, "error").String())
			require.NotEmpty(t, gjson.Get(body, "error_description").String())
		})
	}

	resp, err := http.Get(f.tokenURL())
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCors(t *testing.T) {
	f := newTestFixture(t, auth.DefaultConfiguration())

	req, err := http.NewRequest(http.MethodOptions, f.tokenURL(), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	resp, _ = f.postForm(t, url.Values{"grant_type": {"password"}, "username": {"alice"}, "password": {"correct"}}, header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t, auth.DefaultConfiguration())

	resp, err := http.Get(f.http.URL + server.RouteHealth)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", gjson.GetBytes(body, "status").String())

	f.down.Store(true)
	resp, err = http.Get(f.http.URL + server.RouteHealth)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = f.passwordClient().PasswordCredentialsToken(ctx, "alice", "correct")
	require.NoError(t, err)
	_, err = f.passwordClient().PasswordCredentialsToken(ctx, "alice", "wrong")
	require.Error(t, err)

	resp, err = http.Get(f.http.URL + server.RouteMetrics)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `token_grant_outcomes_total{grant_type="password",outcome="success"} 1`)
	require.Contains(t, string(body), `token_grant_outcomes_total{grant_type="password",outcome="invalid_grant"} 1`)
	require.Contains(t, string(body), `http_requests_total{method="POST",path="/connect/token",status="400"} 1`)
}
