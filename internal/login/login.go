package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/onboard/internal/session"
	"github.com/wolfeidau/onboard/internal/store"
)

// IdentityKey is the cache key the token is stored under.
const IdentityKey = "identity"

var (
	ErrNotLoggedIn           = errors.New("not logged in")
	ErrDeviceFlowUnsupported = errors.New("device authorization not supported by issuer")
)

var _ session.IdentityProvider = (*Device)(nil)

// Config configures the OpenID Connect client.
type Config struct {
	Issuer   string
	ClientID string
	Scopes   []string

	// HTTPClient is used for discovery and token requests. Defaults to an instrumented client.
	HTTPClient *http.Client
}

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

// Discovery is the subset of the OpenID provider metadata the console needs.
type Discovery struct {
	Issuer                      string `json:"issuer"`
	TokenEndpoint               string `json:"token_endpoint"`
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	RevocationEndpoint          string `json:"revocation_endpoint,omitempty"`
	EndSessionEndpoint          string `json:"end_session_endpoint,omitempty"`
}

// Device logs users in with the OAuth 2.0 device authorization grant and serves the resulting
// identity to the session manager.
type Device struct {
	mu        sync.Mutex
	config    *oauth2.Config
	discovery Discovery
	cache     store.Cache
	http      *http.Client
}

// storedToken is the persisted form of an oauth2.Token, keeping the id token the extras drop.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	IDToken      string    `json:"id_token,omitempty"`
	RenewedFrom  string    `json:"renewed_from,omitempty"`
}

func (t storedToken) oauth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

func fromOAuth2(tok *oauth2.Token, previousIDToken string) storedToken {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		// Refresh responses may omit it.
		idToken = previousIDToken
	}
	return storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		IDToken:      idToken,
	}
}

// NewDevice discovers the issuer's endpoints and creates a provider storing tokens in cache.
func NewDevice(ctx context.Context, cfg Config, cache store.Cache) (*Device, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("issuer and client ID are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	discovery, err := discover(ctx, httpClient, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	if discovery.DeviceAuthorizationEndpoint == "" {
		return nil, ErrDeviceFlowUnsupported
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Device{
		config: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   scopes,
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: discovery.DeviceAuthorizationEndpoint,
				TokenURL:      discovery.TokenEndpoint,
				AuthStyle:     oauth2.AuthStyleInParams,
			},
		},
		discovery: discovery,
		cache:     cache,
		http:      httpClient,
	}, nil
}

func discover(ctx context.Context, httpClient *http.Client, issuer string) (Discovery, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	wellKnown := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return Discovery{}, fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Discovery{}, fmt.Errorf("failed to fetch provider metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Discovery{}, fmt.Errorf("issuer returned HTTP %d for provider metadata", resp.StatusCode)
	}

	var d Discovery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Discovery{}, fmt.Errorf("failed to decode provider metadata: %w", err)
	}

	log.Debug().Str("issuer", d.Issuer).Str("token_endpoint", d.TokenEndpoint).Msg("Discovered identity provider")

	return d, nil
}

// Discovery returns the provider metadata.
func (d *Device) Discovery() Discovery {
	return d.discovery
}

func (d *Device) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, d.http)
}

// Login runs the device authorization grant. prompt is called with the verification URL and user
// code, then Login polls until the user approves, denies or the code expires.
func (d *Device) Login(ctx context.Context, prompt func(*oauth2.DeviceAuthResponse)) (session.Identity, error) {
	ctx = d.oauthContext(ctx)

	auth, err := d.config.DeviceAuth(ctx)
	if err != nil {
		return session.Identity{}, fmt.Errorf("failed to start device authorization: %w", err)
	}

	prompt(auth)

	tok, err := d.config.DeviceAccessToken(ctx, auth)
	if err != nil {
		return session.Identity{}, fmt.Errorf("failed to obtain token: %w", err)
	}

	stored := fromOAuth2(tok, "")

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.cache.Set(IdentityKey, stored); err != nil {
		return session.Identity{}, fmt.Errorf("failed to store token: %w", err)
	}

	id, err := identityFrom(stored)
	if err != nil {
		return session.Identity{}, err
	}

	if id.User == nil {
		return session.Identity{}, fmt.Errorf("%w: issuer returned no id token", ErrNotLoggedIn)
	}

	log.Info().Str("user", id.User.Email).Msg("Logged in")

	return id, nil
}

// Current returns the stored identity, refreshing the access token when it expired. The zero
// Identity is returned when nobody is logged in or an expired token has no refresh token.
func (d *Device) Current(ctx context.Context) (session.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var stored storedToken
	err := d.cache.Get(IdentityKey, &stored)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return session.Identity{}, nil
	case err != nil:
		return session.Identity{}, fmt.Errorf("failed to read token: %w", err)
	}

	tok := stored.oauth2()
	if !tok.Valid() {
		if tok.RefreshToken == "" {
			log.Debug().Msg("Access token expired and no refresh token available")
			return session.Identity{}, nil
		}

		refreshed, err := d.config.TokenSource(d.oauthContext(ctx), tok).Token()
		if err != nil {
			return session.Identity{}, fmt.Errorf("failed to refresh token: %w", err)
		}

		previous := stored.AccessToken
		stored = fromOAuth2(refreshed, stored.IDToken)
		stored.RenewedFrom = previous
		if err := d.cache.Set(IdentityKey, stored); err != nil {
			return session.Identity{}, fmt.Errorf("failed to store token: %w", err)
		}

		log.Debug().Time("expiry", stored.Expiry).Msg("Access token refreshed")
	}

	return identityFrom(stored)
}

// SignOutSilent forgets the stored token and asks the issuer to revoke it. Revocation is best
// effort; only a failure to remove the local token is returned.
func (d *Device) SignOutSilent(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var stored storedToken
	if err := d.cache.Get(IdentityKey, &stored); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("Failed to read token before sign out")
	}

	if err := d.cache.Delete(IdentityKey); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	token := stored.RefreshToken
	hint := "refresh_token"
	if token == "" {
		token, hint = stored.AccessToken, "access_token"
	}

	if token == "" || d.discovery.RevocationEndpoint == "" {
		return nil
	}

	if err := d.revoke(ctx, token, hint); err != nil {
		log.Warn().Err(err).Msg("Token revocation failed")
	}

	return nil
}

func (d *Device) revoke(ctx context.Context, token, hint string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	form := url.Values{
		"token":           {token},
		"token_type_hint": {hint},
		"client_id":       {d.config.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.discovery.RevocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("issuer returned HTTP %d for revocation", resp.StatusCode)
	}

	return nil
}

// idClaims are the id token claims the console displays.
type idClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// identityFrom builds the session identity. The id token is not verified here: it was received
// directly from the token endpoint over TLS and only feeds display data.
func identityFrom(stored storedToken) (session.Identity, error) {
	id := session.Identity{
		AccessToken: stored.AccessToken,
		IDToken:     stored.IDToken,
		RenewedFrom: stored.RenewedFrom,
	}

	if stored.IDToken == "" {
		return id, nil
	}

	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(stored.IDToken, &claims); err != nil {
		return session.Identity{}, fmt.Errorf("failed to parse id token: %w", err)
	}

	id.User = &session.User{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		id.User.ExpiresAt = claims.ExpiresAt.Time
	}

	return id, nil
}
