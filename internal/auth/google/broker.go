package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/servicehub/backend/internal/logging"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

const (
	// Issuer is Google's OpenID issuer; the discovery document and signing
	// keys are fetched from it.
	Issuer = "https://accounts.google.com"

	// redirect_uri sentinel for browser-side authorization code flows.
	redirectSentinel = "postmessage"

	clockSkew          = 5 * time.Minute
	keyRefreshInterval = 12 * time.Hour
)

var (
	ErrEmptyCode    = errors.New("authorization code is empty")
	ErrMissingClaim = errors.New("required claim missing from id token")
)

// Profile is the identity extracted from a validated Google ID token. It is
// never persisted as-is, selected fields are copied into user claims.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Tokens is Google's response to the authorization-code exchange.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Broker exchanges authorization codes with Google, validates the returned
// ID tokens against Google's signing-key set and maps federated identities
// onto local user records.
type Broker struct {
	oauth    *oauth2.Config
	issuer   string
	clientID string
	users    *repo.GormRepo

	// discovery/key-set snapshot, swapped whole by the refresh loop so
	// concurrent validations never wait on a fetch
	provider atomic.Pointer[oidc.Provider]
}

func New(ctx context.Context, clientID, clientSecret string, users *repo.GormRepo) (*Broker, error) {
	return NewWithIssuer(ctx, Issuer, googleoauth.Endpoint, clientID, clientSecret, users)
}

// NewWithIssuer wires an alternative issuer and token endpoint. Production
// code goes through New, tests point this at a local server.
func NewWithIssuer(ctx context.Context, issuer string, endpoint oauth2.Endpoint, clientID, clientSecret string, users *repo.GormRepo) (*Broker, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google discovery: %w", err)
	}

	b := &Broker{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectSentinel,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		issuer:   issuer,
		clientID: clientID,
		users:    users,
	}
	b.provider.Store(provider)
	return b, nil
}

// StartKeyRefresh re-resolves the discovery document on an hours-scale
// ticker until ctx is cancelled. A failed refresh keeps the previous
// snapshot in place.
func (b *Broker) StartKeyRefresh(ctx context.Context) {
	go func() {
		t := time.NewTicker(keyRefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p, err := oidc.NewProvider(ctx, b.issuer)
				if err != nil {
					logging.FromContext(ctx).Warn("google discovery refresh failed", "error", err)
					continue
				}
				b.provider.Store(p)
			}
		}
	}()
}

// ExchangeCode posts the authorization code to Google's token endpoint.
// An empty code is rejected before any network call; a non-2xx response is
// a hard error.
func (b *Broker) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}

	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	return &Tokens{
		IDToken:      idToken,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// ValidateIDToken verifies signature, issuer, audience and expiry (with a
// small clock-skew allowance) and extracts the federated profile. Only the
// RS256 family is accepted; sub, email and name are required claims.
func (b *Broker) ValidateIDToken(ctx context.Context, rawIDToken string) (*Profile, error) {
	if rawIDToken == "" {
		return nil, errors.New("id token is empty")
	}

	verifier := b.provider.Load().Verifier(&oidc.Config{
		ClientID:             b.clientID,
		SupportedSigningAlgs: []string{oidc.RS256},
		Now:                  func() time.Time { return time.Now().Add(-clockSkew) },
	})

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification: %w", err)
	}

	var claims struct {
		Email         string    `json:"email"`
		EmailVerified looseBool `json:"email_verified"`
		Name          string    `json:"name"`
		Picture       string    `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("id token claims: %w", err)
	}

	if idToken.Subject == "" || claims.Email == "" || claims.Name == "" {
		return nil, ErrMissingClaim
	}

	return &Profile{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

// FindOrCreateUser resolves the federated profile to a local user by email.
// New accounts trust Google's verification (email confirmed, no password)
// and get the default role; when role assignment fails the fresh user is
// rolled back so no user-without-role state survives.
func (b *Broker) FindOrCreateUser(ctx context.Context, profile *Profile) (*models.User, error) {
	user, err := b.users.FindUserByEmail(ctx, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	user = &models.User{
		Username:       profile.Email,
		Email:          profile.Email,
		EmailConfirmed: true,
	}
	if err := b.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	if err := b.users.AddToRole(ctx, user, models.RoleCustomer); err != nil {
		if delErr := b.users.DeleteUser(ctx, user.ID); delErr != nil {
			logging.FromContext(ctx).Error("rollback of roleless google user failed",
				"user_id", user.ID, "error", delErr)
		}
		return nil, fmt.Errorf("assign default role: %w", err)
	}
	return user, nil
}

// ReconcileClaims refreshes the cached google_* claims on the user record,
// issuing writes only for keys whose value actually changed.
func (b *Broker) ReconcileClaims(ctx context.Context, user *models.User, profile *Profile) error {
	existing, err := b.users.GetClaims(ctx, user.ID)
	if err != nil {
		return err
	}

	desired := map[string]string{
		ClaimGoogleID:      profile.Subject,
		ClaimGooglePicture: profile.Picture,
		ClaimGoogleName:    profile.Name,
	}

	toRemove, toAdd := DiffClaims(existing, desired)
	if err := b.users.RemoveClaims(ctx, user.ID, toRemove); err != nil {
		return err
	}
	return b.users.AddClaims(ctx, user.ID, toAdd)
}

// looseBool tolerates Google sending email_verified as a bool or a string;
// anything unparsable counts as false.
type looseBool bool

func (lb *looseBool) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*lb = looseBool(asBool)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*lb = looseBool(strings.EqualFold(asString, "true"))
		return nil
	}
	*lb = false
	return nil
}
