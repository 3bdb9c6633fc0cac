// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Both sign-in modes converge here: the Google OAuth callback and the
// email/password endpoints all end in issueTokens, so cookie handling in
// the HTTP layer is identical regardless of how the user proved who they
// are.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/glucolog/internal/apperror"
	"github.com/sakif/glucolog/internal/auth"
	"github.com/sakif/glucolog/internal/model"
	"github.com/sakif/glucolog/internal/repository"
)

// Password length bounds for email/password registration. The upper bound
// is bcrypt's own 72-byte input limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MaxNameLength     = 100
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Called from server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user with a freshly issued token pair so the
// handler can set both cookies and respond in one step.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) issueTokens(user *model.User) (*AuthResult, error) {
	access, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for user %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating refresh token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// LoginOrRegisterGoogle handles the Google OAuth callback.
//
// Lookup order:
//  1. By Google subject id — the normal repeat-login path.
//  2. By email — the account exists (password signup, or Google changed the
//     subject id for this email). We log the provider-identity drift at
//     warn level but still attach the new subject id, because the verified
//     email is the stronger claim.
//  3. Neither — first login, create the account.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user, err := s.users.GetUserByGoogleID(ctx, gUser.Sub)
	switch {
	case err == nil:
		// Known Google identity — refresh the display name if it changed.
		if gUser.Name != "" && gUser.Name != user.Name {
			user.Name = gUser.Name
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
			}
		}

	case errorsIsNotFound(err):
		user, err = s.users.GetUserByEmail(ctx, gUser.Email)
		switch {
		case err == nil:
			if user.GoogleID != "" && user.GoogleID != gUser.Sub {
				s.logger.Warn("google subject id changed for existing email",
					slog.String("userID", user.ID),
					slog.String("oldGoogleID", user.GoogleID),
					slog.String("newGoogleID", gUser.Sub),
				)
			}
			user.GoogleID = gUser.Sub
			if gUser.Name != "" {
				user.Name = gUser.Name
			}
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: attaching google identity to user %s: %w", user.ID, err)
			}

		case errorsIsNotFound(err):
			user = &model.User{
				Email:    gUser.Email,
				Name:     gUser.Name,
				GoogleID: gUser.Sub,
			}
			if err := s.users.CreateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: creating user (email=%s): %w", gUser.Email, err)
			}

		default:
			return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
		}

	default:
		return nil, fmt.Errorf("service/auth: looking up user by google id: %w", err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueTokens(user)
}

// Register creates an email/password account and signs the user in.
// A duplicate email surfaces as apperror.ErrConflict (→ 409).
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordLength))
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err // Conflict or a wrapped store failure — both already typed
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueTokens(user)
}

// Login verifies an email/password pair and signs the user in.
//
// Unknown email, Google-only account (no password hash), and wrong password
// all return the same Unauthorized error — the response must not reveal
// which part of the credential failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized()
	}

	s.logger.Info("user authenticated via password",
		slog.String("userID", user.ID),
	)

	return s.issueTokens(user)
}

// Refresh validates a refresh token and issues a fresh pair.
// A refresh token for a deleted user is rejected the same way as an
// invalid one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.Validate(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, apperror.Unauthorized()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	return s.issueTokens(user)
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/auth/me handler after the middleware has resolved the identity.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateProfile changes the display name and/or language preference.
// Empty fields keep their current values; language is restricted to the
// supported set.
func (s *AuthService) UpdateProfile(ctx context.Context, id, name, language string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxNameLength))
		}
		user.Name = name
	}

	if language != "" {
		if language != model.LanguageEN && language != model.LanguageZH {
			return nil, apperror.ValidationFailed("language",
				fmt.Sprintf("language must be %q or %q", model.LanguageEN, model.LanguageZH))
		}
		user.Language = language
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile for user %s: %w", id, err)
	}

	return user, nil
}

// errorsIsNotFound reads better than the inline errors.Is chain in the
// lookup cascades above.
func errorsIsNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
