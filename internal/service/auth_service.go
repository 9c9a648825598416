package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
	"tourbook/internal/repository"
	"tourbook/internal/utils"
)

// AuthService provides the account credential lifecycle: signup, login,
// forgotten-password reset and password change.
type AuthService interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetSecret string, req model.ResetPasswordRequest) (*model.User, string, error)
	UpdatePassword(ctx context.Context, userID primitive.ObjectID, req model.UpdatePasswordRequest) (*model.User, string, error)
}

type authService struct {
	users   repository.UserRepository
	hasher  *utils.PasswordHasher
	tokens  *utils.TokenService
	mailer  Mailer
	baseURL string
	logger  zerolog.Logger
}

func NewAuthService(users repository.UserRepository, hasher *utils.PasswordHasher, tokens *utils.TokenService, mailer Mailer, baseURL string, logger zerolog.Logger) AuthService {
	return &authService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Signup creates a new account with the default role and logs it in.
func (s *authService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, string, error) {
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Role:         model.RoleUser,
		Active:       true,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if field, ok := repository.DuplicateKeyField(err); ok {
			return nil, "", apperror.Duplicate(field)
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	// the account stays created; only the delivery failure surfaces
	if err := s.mailer.SendWelcome(ctx, user, s.baseURL+"/me"); err != nil {
		s.logger.Warn().Err(err).Str("email", user.Email).Msg("failed to send welcome email")
		return nil, "", apperror.DeliveryFailed(err)
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("user created but failed to issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, "", apperror.Unauthorized("incorrect email or password")
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// ForgotPassword creates a one-time reset token, persists only its hash and
// expiry, and mails the secret. If the mail cannot be dispatched the pending
// reset state is rolled back and DeliveryFailed surfaces.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("user", email)
	}

	reset, err := s.tokens.CreateResetToken()
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, reset.Hash, reset.ExpiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := s.baseURL + "/api/v1/users/reset-password/" + reset.Secret
	if err := s.mailer.SendPasswordReset(ctx, user, resetURL); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error().Err(clearErr).Str("email", user.Email).Msg("failed to roll back reset token")
		}
		return apperror.DeliveryFailed(err)
	}
	return nil
}

// ResetPassword consumes a one-time reset secret. Expired or non-matching
// secrets are rejected; a successful reset invalidates all previously issued
// session tokens via the password-change timestamp.
func (s *authService) ResetPassword(ctx context.Context, resetSecret string, req model.ResetPasswordRequest) (*model.User, string, error) {
	hash := s.tokens.HashResetSecret(resetSecret)
	user, err := s.users.FindByResetTokenHash(ctx, hash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up reset token: %w", err)
	}
	if user == nil {
		return nil, "", apperror.BadRequest("password reset token is invalid or has expired")
	}

	token, err := s.setPassword(ctx, user, req.Password)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UpdatePassword changes the password of a logged-in user after verifying
// the current one.
func (s *authService) UpdatePassword(ctx context.Context, userID primitive.ObjectID, req model.UpdatePasswordRequest) (*model.User, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, "", apperror.Unauthorized("the user belonging to this token no longer exists")
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return nil, "", apperror.Unauthorized("your current password is wrong")
	}

	token, err := s.setPassword(ctx, user, req.Password)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// setPassword hashes and stores a new password, stamps the change one second
// in the past so the token issued right after is not considered stale, and
// issues that token.
func (s *authService) setPassword(ctx context.Context, user *model.User, plaintext string) (string, error) {
	passwordHash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	changedAt := time.Now().Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, changedAt); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}
