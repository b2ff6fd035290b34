package auth

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/servicehub/backend/internal/auth/google"
	"github.com/servicehub/backend/internal/auth/tokens"
	"github.com/servicehub/backend/internal/logging"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/mykafka"
	"github.com/servicehub/backend/internal/repo"
)

// ErrUnauthorized is what every expected authentication failure collapses
// to at the boundary. The distinguishing reason stays in internal logs.
var ErrUnauthorized = errors.New("unauthorized")

const userEventsTopic = "user_events"

// GoogleBroker is the slice of the Google flow the orchestrator needs.
// Satisfied by *google.Broker, faked in tests.
type GoogleBroker interface {
	ExchangeCode(ctx context.Context, code string) (*google.Tokens, error)
	ValidateIDToken(ctx context.Context, rawIDToken string) (*google.Profile, error)
	FindOrCreateUser(ctx context.Context, profile *google.Profile) (*models.User, error)
	ReconcileClaims(ctx context.Context, user *models.User, profile *google.Profile) error
}

// Result is the uniform success contract of every auth operation.
type Result struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

// Service coordinates registration, local login, the Google callback and
// refresh-token rotation. Store writes are the last step of every flow.
type Service struct {
	Repo       *repo.GormRepo
	Signer     *tokens.Signer
	Google     GoogleBroker // nil when Google sign-in is not configured
	RefreshTTL time.Duration
	Producer   *mykafka.Producer // optional, events are best-effort
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "correlation_id", uuid.NewString())

	user, err := s.Repo.CreateUser(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) || errors.Is(err, repo.ErrPasswordPolicy) {
			l.Warn("registration rejected", "reason", err.Error())
			failDelay(ctx)
			return nil, ErrUnauthorized
		}
		l.Error("registration failed", "error", err)
		failDelay(ctx)
		return nil, err
	}

	if err := s.Repo.AddToRole(ctx, user, models.RoleCustomer); err != nil {
		if delErr := s.Repo.DeleteUser(ctx, user.ID); delErr != nil {
			l.Error("rollback of roleless user failed", "user_id", user.ID, "error", delErr)
		}
		l.Error("default role assignment failed", "error", err)
		failDelay(ctx)
		return nil, fmt.Errorf("assign default role: %w", err)
	}

	roles, err := s.Repo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.issueTokens(ctx, user, roles, "", "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user_registered", user)
	l.Info("registration successful", "user_id", user.ID, "roles", len(roles))
	return res, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "correlation_id", uuid.NewString())

	if email == "" || password == "" {
		l.Warn("login with empty credentials")
		failDelay(ctx)
		return nil, ErrUnauthorized
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login for unknown email")
			failDelay(ctx)
			return nil, ErrUnauthorized
		}
		l.Error("login lookup failed", "error", err)
		failDelay(ctx)
		return nil, err
	}

	// no lockout on repeated failures
	if !s.Repo.VerifyPassword(user, password) {
		l.Warn("login with invalid password", "user_id", user.ID)
		failDelay(ctx)
		return nil, ErrUnauthorized
	}

	roles, err := s.Repo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.issueTokens(ctx, user, roles, "", "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user_logged_in", user)
	l.Info("login successful", "user_id", user.ID, "roles", len(roles))
	return res, nil
}

func (s *Service) GoogleCallback(ctx context.Context, code string) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.google", "correlation_id", uuid.NewString())

	if s.Google == nil {
		l.Warn("google callback while google sign-in is not configured")
		return nil, ErrUnauthorized
	}

	exchanged, err := s.Google.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, google.ErrEmptyCode) {
			return nil, err
		}
		l.Warn("google code exchange failed", "error", err)
		failDelay(ctx)
		return nil, ErrUnauthorized
	}

	if exchanged.IDToken == "" {
		l.Warn("google token response missing id token")
		failDelay(ctx)
		return nil, ErrUnauthorized
	}

	profile, err := s.Google.ValidateIDToken(ctx, exchanged.IDToken)
	if err != nil {
		l.Warn("google id token rejected", "error", err)
		failDelay(ctx)
		return nil, ErrUnauthorized
	}

	user, err := s.Google.FindOrCreateUser(ctx, profile)
	if err != nil {
		l.Error("find or create google user failed", "error", err)
		failDelay(ctx)
		return nil, err
	}

	if err := s.Google.ReconcileClaims(ctx, user, profile); err != nil {
		l.Error("google claim reconciliation failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	roles, err := s.Repo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.issueTokens(ctx, user, roles, profile.Name, profile.Picture)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user_logged_in", user)
	l.Info("google sign-in successful", "user_id", user.ID, "roles", len(roles))
	return res, nil
}

// RefreshToken rotates a refresh token. Consumption is single-use: the
// presented token is revoked before new tokens are minted, even if a later
// step fails.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "correlation_id", uuid.NewString())

	record, err := s.Repo.FindRefreshByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrRefreshNotFound) {
			l.Warn("refresh with unknown token")
			return nil, ErrUnauthorized
		}
		l.Error("refresh lookup failed", "error", err)
		return nil, err
	}

	if record.ExpiresAt.Before(time.Now().UTC()) {
		l.Warn("refresh with expired token", "user_id", record.UserID)
		return nil, ErrUnauthorized
	}

	if err := s.Repo.RevokeRefreshToken(ctx, record.ID); err != nil {
		l.Error("refresh revocation failed", "error", err)
		return nil, err
	}

	user, err := s.Repo.FindUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("refresh for missing user", "user_id", record.UserID)
			return nil, ErrUnauthorized
		}
		l.Error("refresh user lookup failed", "error", err)
		return nil, err
	}

	roles, err := s.Repo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.issueTokens(ctx, user, roles, "", "")
	if err != nil {
		return nil, err
	}

	l.Info("token refreshed", "user_id", user.ID)
	return res, nil
}

// issueTokens mints the access/refresh pair and persists the refresh token,
// which is the last write of every flow.
func (s *Service) issueTokens(ctx context.Context, user *models.User, roles []string, displayName, picture string) (*Result, error) {
	access, err := s.Signer.GenerateAccessToken(user, roles, displayName, picture)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Signer.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SaveRefreshToken(ctx, user.ID, refresh, s.RefreshTTL); err != nil {
		return nil, err
	}

	username := user.Username
	if displayName != "" {
		username = displayName
	}

	return &Result{
		Token:        access,
		RefreshToken: refresh,
		Username:     username,
		Email:        user.Email,
		Roles:        roles,
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, user *models.User) {
	if s.Producer == nil {
		return
	}

	event := map[string]interface{}{
		"type":     eventType,
		"user_id":  user.ID.String(),
		"username": user.Username,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, userEventsTopic, user.ID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "type", eventType, "error", err)
	}
}

// failDelay sleeps a randomized 100-300ms before a failure returns, so the
// latency does not reveal which branch rejected the attempt.
func failDelay(ctx context.Context) {
	d := time.Duration(100+mathrand.N(200)) * time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
