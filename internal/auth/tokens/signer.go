package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/servicehub/backend/internal/models"
)

const refreshTokenBytes = 32

// Signer mints the short-lived HS256 access tokens and the opaque refresh
// token strings. It has no storage side effects.
type Signer struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// GenerateAccessToken signs a bearer token for the user. Every call gets a
// fresh jti, so two tokens for identical inputs are never byte-identical.
// displayName and picture are only set on the Google sign-in path.
func (s *Signer) GenerateAccessToken(user *models.User, roles []string, displayName, picture string) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		Email:       user.Email,
		Name:        user.Username,
		Roles:       roles,
		DisplayName: displayName,
		Picture:     picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken returns 256 bits from crypto/rand, base64url
// encoded. The value is opaque, validity lives in the store.
func (s *Signer) GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ParseAccessToken validates signature, expiry, issuer and audience of a
// token minted by GenerateAccessToken.
func (s *Signer) ParseAccessToken(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithAudience(s.Audience))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid access token")
	}
	return &claims, nil
}
