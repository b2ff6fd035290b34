package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servicehub/backend/internal/auth/google"
	"github.com/servicehub/backend/internal/auth/tokens"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

const testPassword = "Abcdef1!"

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.UserClaim{}, &models.RefreshToken{},
	))
	for _, name := range []string{models.RoleAdmin, models.RoleCustomer} {
		require.NoError(t, db.Create(&models.Role{Name: name}).Error)
	}

	return &Service{
		Repo: &repo.GormRepo{DB: db},
		Signer: &tokens.Signer{
			Secret:    []byte("test-secret-test-secret-test-sec"),
			Issuer:    "servicehub-test",
			Audience:  "servicehub-clients",
			AccessTTL: 15 * time.Minute,
		},
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// fakeBroker stands in for the Google broker without any network.
type fakeBroker struct {
	repo        *repo.GormRepo
	profile     *google.Profile
	exchangeErr error
	validateErr error
	reconciled  int
}

func (f *fakeBroker) ExchangeCode(ctx context.Context, code string) (*google.Tokens, error) {
	if strings.TrimSpace(code) == "" {
		return nil, google.ErrEmptyCode
	}
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &google.Tokens{IDToken: "stub-id-token", AccessToken: "stub-access"}, nil
}

func (f *fakeBroker) ValidateIDToken(ctx context.Context, raw string) (*google.Profile, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.profile, nil
}

func (f *fakeBroker) FindOrCreateUser(ctx context.Context, profile *google.Profile) (*models.User, error) {
	user, err := f.repo.FindUserByEmail(ctx, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}
	user = &models.User{Username: profile.Email, Email: profile.Email, EmailConfirmed: true}
	if err := f.repo.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	if err := f.repo.AddToRole(ctx, user, models.RoleCustomer); err != nil {
		return nil, err
	}
	return user, nil
}

func (f *fakeBroker) ReconcileClaims(ctx context.Context, user *models.User, profile *google.Profile) error {
	f.reconciled++
	return nil
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, []string{models.RoleCustomer}, res.Roles)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := svc.Signer.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, []string{models.RoleCustomer}, claims.Roles)

	// the refresh token is persisted as the session record
	record, err := svc.Repo.FindRefreshByToken(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.True(t, record.ExpiresAt.After(time.Now()))
}

func TestService_Register_Duplicate(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Register(ctx, "alice2", "alice@example.com", testPassword)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "rejections must be delayed")
	assert.Less(t, elapsed, time.Second)
}

func TestService_Register_WeakPassword(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	for _, password := range []string{"", "short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		_, err := svc.Register(context.Background(), "bob", "bob@example.com", password)
		require.ErrorIs(t, err, ErrUnauthorized, "password %q", password)
	}
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, []string{models.RoleCustomer}, res.Roles)
	assert.NotEmpty(t, res.Token)
}

func TestService_Login_Failures(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "Wrong123"},
		{"unknown email", "nobody@example.com", testPassword},
		{"blank email", "", testPassword},
		{"blank password", "alice@example.com", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			_, err := svc.Login(ctx, tc.email, tc.password)
			elapsed := time.Since(start)

			require.ErrorIs(t, err, ErrUnauthorized)
			assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
			assert.Less(t, elapsed, time.Second)
		})
	}
}

func TestService_RefreshToken_Rotates(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, []string{models.RoleCustomer}, rotated.Roles)

	// the consumed token is single-use
	_, err = svc.RefreshToken(ctx, reg.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// the replacement keeps working
	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestService_RefreshToken_Unknown(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.RefreshToken(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_RefreshToken_Expired(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	user, err := svc.Repo.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Repo.SaveRefreshToken(ctx, user.ID, reg.RefreshToken, -time.Minute))

	_, err = svc.RefreshToken(ctx, reg.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Login_ReplacesPreviousSession(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	second, err := svc.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "a user holds at most one refresh token")

	_, err = svc.RefreshToken(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized, "the replaced token must be dead")

	_, err = svc.RefreshToken(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestService_GoogleCallback(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	broker := &fakeBroker{
		repo: svc.Repo,
		profile: &google.Profile{
			Subject:       "google-sub-1",
			Email:         "alice@example.com",
			EmailVerified: true,
			Name:          "Alice G",
			Picture:       "https://example.com/p.png",
		},
	}
	svc.Google = broker

	res, err := svc.GoogleCallback(context.Background(), "4/authcode")
	require.NoError(t, err)

	assert.Equal(t, "Alice G", res.Username, "google results carry the display name")
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, []string{models.RoleCustomer}, res.Roles)
	assert.Equal(t, 1, broker.reconciled)

	claims, err := svc.Signer.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice G", claims.DisplayName)
	assert.Equal(t, "https://example.com/p.png", claims.Picture)
}

func TestService_GoogleCallback_NotConfigured(t *testing.T) {
	t.Parallel()

	svc := newTestService(t) // Google stays nil

	_, err := svc.GoogleCallback(context.Background(), "4/authcode")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_GoogleCallback_EmptyCode(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	svc.Google = &fakeBroker{repo: svc.Repo}

	_, err := svc.GoogleCallback(context.Background(), "")
	require.ErrorIs(t, err, google.ErrEmptyCode)
}

func TestService_GoogleCallback_ExchangeFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	svc.Google = &fakeBroker{repo: svc.Repo, exchangeErr: errors.New("invalid_grant")}

	start := time.Now()
	_, err := svc.GoogleCallback(context.Background(), "4/badcode")
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestService_GoogleCallback_InvalidIDToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	svc.Google = &fakeBroker{repo: svc.Repo, validateErr: errors.New("bad signature")}

	_, err := svc.GoogleCallback(context.Background(), "4/authcode")
	require.ErrorIs(t, err, ErrUnauthorized)
}
