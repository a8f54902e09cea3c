package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/handmade_shop/internal/hash"
	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

const (
	VerificationTTL      = 24 * time.Hour
	PasswordResetTTL     = time.Hour
	VerificationCooldown = 60 * time.Second
)

type AccountService struct {
	Repo      *repo.GormRepo
	Issuer    *tokens.Issuer
	Notifier  notify.Sender
	Events    EventPublisher
	ClientURL string
	Now       func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return nowUTC()
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	City     string
	ZipCode  string
}

type RegisterResult struct {
	User      *models.User
	EmailSent bool
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	l := logger(ctx, "auth.register")

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	taken, err := s.Repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already in use", ErrConflict)
	}

	token, err := tokens.NewOpaque()
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(VerificationTTL)
	u := &models.User{
		Name:                     name,
		Email:                    email,
		PasswordHash:             pwHash,
		Phone:                    strings.TrimSpace(in.Phone),
		Address:                  strings.TrimSpace(in.Address),
		City:                     strings.TrimSpace(in.City),
		ZipCode:                  strings.TrimSpace(in.ZipCode),
		Role:                     models.RoleUser,
		IsActive:                 true,
		EmailVerificationToken:   token,
		EmailVerificationExpires: &expires,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if repo.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	sent := sendNotification(ctx, s.Notifier, notify.VerifyEmail(u.Email, u.Name, s.link("/verify-email", token)))
	if sent {
		u.LastVerificationEmailSentAt = &now
		if err := s.Repo.SaveUser(ctx, u); err != nil {
			l.Warn("register_save_sent_at_error", "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicUsers, "user_registered", u.ID, nil)
	l.Info("register_success", "user_id", u.ID, "email_sent", sent)
	return &RegisterResult{User: u, EmailSent: sent}, nil
}

type VerifyResult struct {
	AlreadyVerified bool
}

// VerifyEmail is idempotent for accounts that were already verified.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*VerifyResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: verification token required", ErrValidation)
	}
	u, err := s.Repo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: invalid verification token", ErrValidation)
		}
		return nil, err
	}
	if u.IsEmailVerified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	if u.EmailVerificationExpires == nil || !u.EmailVerificationExpires.After(s.now()) {
		return nil, fmt.Errorf("%w: verification token expired, request a new one", ErrValidation)
	}
	u.IsEmailVerified = true
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	return &VerifyResult{}, nil
}

func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}
	u, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return notFound(err, "account")
	}
	if u.IsEmailVerified {
		return fmt.Errorf("%w: email already verified", ErrValidation)
	}
	now := s.now()
	if u.LastVerificationEmailSentAt != nil {
		if wait := u.LastVerificationEmailSentAt.Add(VerificationCooldown).Sub(now); wait > 0 {
			return fmt.Errorf("%w: retry in %d seconds", ErrTooManyRequests, int(wait.Seconds()+0.999))
		}
	}

	token, err := tokens.NewOpaque()
	if err != nil {
		return err
	}
	expires := now.Add(VerificationTTL)
	u.EmailVerificationToken = token
	u.EmailVerificationExpires = &expires
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return err
	}
	if !sendNotification(ctx, s.Notifier, notify.VerifyEmail(u.Email, u.Name, s.link("/verify-email", token))) {
		return errors.New("could not send verification email")
	}
	u.LastVerificationEmailSentAt = &now
	return s.Repo.SaveUser(ctx, u)
}

// ForgotPassword answers the same way whether or not the account exists.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}
	u, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			logger(ctx, "auth.forgot_password").Info("forgot_password_unknown_email")
			return nil
		}
		return err
	}

	token, err := tokens.NewOpaque()
	if err != nil {
		return err
	}
	expires := s.now().Add(PasswordResetTTL)
	u.PasswordResetToken = token
	u.PasswordResetExpires = &expires
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return err
	}
	if !sendNotification(ctx, s.Notifier, notify.ResetPassword(u.Email, u.Name, s.link("/reset-password", token))) {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		if err := s.Repo.SaveUser(ctx, u); err != nil {
			logger(ctx, "auth.forgot_password").Warn("clear_reset_token_error", "error", err)
		}
		return errors.New("could not send password reset email")
	}
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and new password required", ErrValidation)
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return err
	}
	u, err := s.Repo.GetUserByResetToken(ctx, token, s.now())
	if err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("%w: reset token is invalid or expired", ErrValidation)
		}
		return err
	}
	u.PasswordHash = pwHash
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return err
	}
	return s.Repo.RevokeUserRefreshTokens(ctx, u.ID)
}

type Session struct {
	User   *models.User
	Tokens *tokens.Pair
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	l := logger(ctx, "auth.login")
	email = normalizeEmail(email)

	u, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, err
	}
	if !hash.CheckPassword(u.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", u.ID)
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: account is locked", ErrForbidden)
	}
	if !u.IsEmailVerified {
		return nil, fmt.Errorf("%w: verify your email before logging in", ErrForbidden)
	}

	pair, err := s.issue(ctx, u)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	return &Session{User: u, Tokens: pair}, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.Issuer.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	stored, err := s.Repo.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: refresh token not found", ErrUnauthorized)
		}
		return nil, err
	}
	if stored.Revoked || !stored.ExpiresAt.After(s.now()) || stored.TokenHash != tokens.Sha256Hex(refreshToken) {
		return nil, fmt.Errorf("%w: refresh token expired or revoked", ErrUnauthorized)
	}
	revoked, err := s.Repo.RevokeRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// lost a race with another rotation of the same token
		return nil, fmt.Errorf("%w: refresh token already used", ErrUnauthorized)
	}

	u, err := s.Repo.GetUser(ctx, stored.UserID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: account is locked", ErrForbidden)
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: pair}, nil
}

// Logout revokes the refresh token if it is still valid; it never fails on a bad token.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.Issuer.RefreshSecret)
	if err != nil {
		return nil
	}
	_, err = s.Repo.RevokeRefreshToken(ctx, claims.ID)
	return err
}

func (s *AccountService) issue(ctx context.Context, u *models.User) (*tokens.Pair, error) {
	pair, err := s.Issuer.Issue(u.ID, u.Role, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    u.ID,
		TokenHash: tokens.Sha256Hex(pair.RefreshToken),
		JTI:       pair.RefreshJTI,
		ExpiresAt: pair.RefreshExp,
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AccountService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

type ProfileInput struct {
	Name    *string
	Phone   *string
	Address *string
	City    *string
	ZipCode *string
}

// UpdateProfile ignores an empty name or phone; address fields may be cleared.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		u.Address = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		u.City = strings.TrimSpace(*in.City)
	}
	if in.ZipCode != nil {
		u.ZipCode = strings.TrimSpace(*in.ZipCode)
	}
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	u, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return notFound(err, "user")
	}
	if !hash.CheckPassword(u.PasswordHash, current) {
		return fmt.Errorf("%w: current password is incorrect", ErrValidation)
	}
	pwHash, err := hash.HashPassword(next)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return err
	}
	u.PasswordHash = pwHash
	return s.Repo.SaveUser(ctx, u)
}

func (s *AccountService) link(path, token string) string {
	return strings.TrimRight(s.ClientURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
