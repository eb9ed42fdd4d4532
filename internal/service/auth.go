// Package service holds the business rules of ClothConnect.
//
// Services sit between the HTTP handlers and the storage layer:
//
//	Handler (HTTP) → Service (business rules) → repository.Store (DB)
//	               ↘ auth / notify / metrics
//
// They return *apperror.AppError values for every failure a client can act
// on and plain wrapped errors for everything else, and they never see an
// http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/auth"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/notify"
	"github.com/sakif/clothconnect/internal/repository"
)

const minPasswordLength = 8

// ErrTwoFactorRequired is returned by Login when the account has 2FA enabled
// and no code was sent. The client should prompt for one and retry.
var ErrTwoFactorRequired = apperror.Forbidden("2FA code required")

// AuthConfig holds the settings the auth flows depend on.
type AuthConfig struct {
	RequireEmailVerification bool
	FrontendURL              string // base for links in emails
}

// AuthService handles registration, login and account recovery.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    notify.Mailer
	cfg       AuthConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer notify.Mailer,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can respond
// (or set the cookie) in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type RegisterInput struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	Role            model.Role `json:"role"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	NGORegistration string     `json:"ngoRegistration"`
}

// Register creates a donor or NGO account. Admin accounts cannot be
// self-registered. When email verification is required the account starts
// unverified and a verification link is mailed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Name == "" {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.ValidationFailed("email", "A valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password", "Password must be at least 8 characters")
	}
	if in.Role == "" {
		in.Role = model.RoleDonor
	}
	if in.Role != model.RoleDonor && in.Role != model.RoleNGO {
		return nil, apperror.ValidationFailed("role", "Role must be donor or ngo")
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("An account with this email already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	user := &model.User{
		Name:            in.Name,
		Email:           in.Email,
		Role:            in.Role,
		Phone:           in.Phone,
		Address:         in.Address,
		City:            in.City,
		NGORegistration: in.NGORegistration,
		PasswordHash:    hash,
		EmailVerified:   !s.cfg.RequireEmailVerification,
	}

	var rawToken string
	if s.cfg.RequireEmailVerification {
		raw, tokenHash, err := auth.NewOneTimeToken()
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		expires := s.now().Add(auth.EmailVerificationTTL)
		user.EmailTokenHash = tokenHash
		user.EmailTokenExpires = &expires
		rawToken = raw
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	if rawToken != "" {
		link := s.cfg.FrontendURL + "/verify-email/" + rawToken
		if err := s.mailer.Send(ctx, user.Email, "Verify your ClothConnect email",
			"Confirm your email address by opening this link within 24 hours:\n\n"+link); err != nil {
			s.logger.Warn("verification email not sent",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return user, nil
}

// VerifyEmail consumes an email-verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	invalid := apperror.ValidationFailed("token", "Invalid or expired verification token")

	user, err := s.userByToken(ctx, model.TokenEmailVerification, rawToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return invalid
		}
		return err
	}
	if user.EmailTokenExpires == nil || !s.now().Before(*user.EmailTokenExpires) {
		return invalid
	}

	user.EmailVerified = true
	user.EmailTokenHash = ""
	user.EmailTokenExpires = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: verifying email for %s: %w", user.ID, err)
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	return nil
}

type LoginInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"`
}

// Login checks credentials and, for 2FA accounts, the TOTP or backup code.
// Unknown emails and wrong passwords get the same message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	badCredentials := apperror.Unauthorized("Invalid email or password")

	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, badCredentials
		}
		return nil, fmt.Errorf("service/auth: loading user for login: %w", err)
	}
	// GitHub-only accounts have no password to compare against.
	if user.PasswordHash == "" {
		return nil, badCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, badCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	if s.cfg.RequireEmailVerification && !user.EmailVerified {
		return nil, apperror.Forbidden("Please verify your email first")
	}

	if user.TwoFactorEnabled {
		if err := s.checkSecondFactor(ctx, user, in.TwoFactorCode); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// checkSecondFactor accepts a current TOTP code or an unused backup code.
// A backup code is removed from the account once it has been used.
func (s *AuthService) checkSecondFactor(ctx context.Context, user *model.User, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrTwoFactorRequired
	}
	if auth.ValidateTOTP(user.TwoFactorSecret, code, s.now()) {
		return nil
	}

	remaining, ok := auth.ConsumeBackupCode(user.BackupCodeHashes, code)
	if !ok {
		return apperror.Unauthorized("Invalid 2FA code")
	}
	user.BackupCodeHashes = remaining
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: consuming backup code for %s: %w", user.ID, err)
	}

	s.logger.Info("backup code used",
		slog.String("user_id", user.ID),
		slog.Int("remaining", len(remaining)),
	)
	return nil
}

// ForgotPassword mails a reset link valid for 10 minutes.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &apperror.AppError{Err: apperror.ErrNotFound, Message: "No user found with this email"}
		}
		return fmt.Errorf("service/auth: loading user for reset: %w", err)
	}

	raw, hash, err := auth.NewOneTimeToken()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	expires := s.now().Add(auth.PasswordResetTTL)
	user.ResetTokenHash = hash
	user.ResetTokenExpires = &expires
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: storing reset token for %s: %w", user.ID, err)
	}

	link := s.cfg.FrontendURL + "/reset-password/" + raw
	if err := s.mailer.Send(ctx, user.Email, "Reset your ClothConnect password",
		"Reset your password by opening this link within 10 minutes:\n\n"+link); err != nil {
		return fmt.Errorf("service/auth: sending reset email: %w", err)
	}

	s.logger.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if len(password) < minPasswordLength {
		return apperror.ValidationFailed("password", "Password must be at least 8 characters")
	}
	invalid := apperror.ValidationFailed("token", "Invalid or expired reset token")

	user, err := s.userByToken(ctx, model.TokenPasswordReset, rawToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return invalid
		}
		return err
	}
	if user.ResetTokenExpires == nil || !s.now().Before(*user.ResetTokenExpires) {
		return invalid
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}
	now := s.now()
	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpires = nil
	user.LastPasswordChange = &now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: resetting password for %s: %w", user.ID, err)
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	return nil
}

func (s *AuthService) userByToken(ctx context.Context, kind model.TokenKind, rawToken string) (*model.User, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperror.NotFound("user", "token")
	}
	user, err := s.users.GetUserByTokenHash(ctx, kind, auth.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: looking up token: %w", err)
	}
	return user, nil
}

// RefreshToken issues a fresh JWT for an already authenticated user.
func (s *AuthService) RefreshToken(user *model.User) (string, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: refreshing token for %s: %w", user.ID, err)
	}
	return token, nil
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// SetupTwoFactor generates a TOTP secret and stores it. 2FA is not enforced
// until VerifyTwoFactor confirms the user's authenticator produces valid codes.
func (s *AuthService) SetupTwoFactor(ctx context.Context, user *model.User) (*auth.TOTPKey, error) {
	key, err := auth.GenerateTOTP(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	user.TwoFactorSecret = key.Secret
	user.TwoFactorEnabled = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: storing 2FA secret for %s: %w", user.ID, err)
	}
	return key, nil
}

// VerifyTwoFactor enables 2FA and returns the one-time backup codes. The
// plaintext codes are never stored and cannot be shown again.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, user *model.User, code string) ([]string, error) {
	if user.TwoFactorSecret == "" {
		return nil, apperror.ValidationFailed("token", "2FA has not been set up")
	}
	if !auth.ValidateTOTP(user.TwoFactorSecret, strings.TrimSpace(code), s.now()) {
		return nil, apperror.Unauthorized("Invalid verification code")
	}

	codes, hashes, err := auth.GenerateBackupCodes()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	user.TwoFactorEnabled = true
	user.BackupCodeHashes = hashes
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: enabling 2FA for %s: %w", user.ID, err)
	}

	s.logger.Info("2FA enabled", slog.String("user_id", user.ID))
	return codes, nil
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, user *model.User) error {
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.BackupCodeHashes = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: disabling 2FA for %s: %w", user.ID, err)
	}

	s.logger.Info("2FA disabled", slog.String("user_id", user.ID))
	return nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// The GitHub id is stable, so it is the lookup key. On first sign-in an
// existing account with the same email is linked; otherwise a new donor
// account is created. GitHub has already verified the email.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		user.AvatarURL = ghUser.AvatarURL
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: refreshing GitHub user %d: %w", ghUser.ID, err)
		}

	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrCreateGitHubUser(ctx, ghUser)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("service/auth: loading GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("user_id", user.ID),
		slog.String("login", ghUser.Login),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) linkOrCreateGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	if ghUser.Email != "" {
		existing, err := s.users.GetUserByEmail(ctx, ghUser.Email)
		if err == nil {
			existing.GitHubID = ghUser.ID
			existing.AvatarURL = ghUser.AvatarURL
			existing.EmailVerified = true
			if err := s.users.UpdateUser(ctx, existing); err != nil {
				return nil, fmt.Errorf("service/auth: linking GitHub account: %w", err)
			}
			return existing, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
	}

	email := ghUser.Email
	if email == "" {
		// Hidden emails still need a unique placeholder.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}
	user := &model.User{
		Name:          ghUser.DisplayName(),
		Email:         email,
		Role:          model.RoleDonor,
		GitHubID:      ghUser.ID,
		AvatarURL:     ghUser.AvatarURL,
		EmailVerified: true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", ghUser.ID, err)
	}
	return user, nil
}
