package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/email"
	"github.com/jaume768/splashmy/internal/infra"
)

const (
	verificationTTL  = 10 * time.Minute
	maxCodeAttempts  = 5
	resendCooldown   = 60 * time.Second
	maxResendsPerDay = 10
	minPasswordLen   = 8
)

var (
	// ErrCodeExpired covers both expired codes and attempt exhaustion; the
	// caller must request a fresh code either way.
	ErrCodeExpired = fmt.Errorf("verification code expired: %w", domain.ErrUnauthorized)
	// ErrCodeMismatch is a wrong code with attempts remaining.
	ErrCodeMismatch = fmt.Errorf("verification code mismatch: %w", domain.ErrUnauthorized)
	// ErrResendCooldown throttles repeated code requests.
	ErrResendCooldown = fmt.Errorf("verification code requested too soon: %w", domain.ErrQuotaExceeded)
	// ErrEmailTaken rejects duplicate registrations.
	ErrEmailTaken = fmt.Errorf("email already registered")
	// ErrEmailNotVerified blocks login before the address is confirmed.
	ErrEmailNotVerified = fmt.Errorf("email not verified: %w", domain.ErrUnauthorized)
)

// AuthService implements registration, login and the one-time-code flows for
// email verification and password reset. Codes are never stored in clear:
// only a salted SHA-256 digest is persisted.
type AuthService struct {
	users         domain.UserRepository
	verifications domain.VerificationRepository
	sender        email.Sender
	codeSecret    string
	logger        infra.Logger
	now           func() time.Time
}

// NewAuthService assembles an AuthService. codeSecret salts the stored code
// digests; it must stay stable across restarts.
func NewAuthService(users domain.UserRepository, verifications domain.VerificationRepository, sender email.Sender, codeSecret string, logger infra.Logger) *AuthService {
	return &AuthService{
		users:         users,
		verifications: verifications,
		sender:        sender,
		codeSecret:    codeSecret,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates an unverified account and emails the verification code.
func (s *AuthService) Register(ctx context.Context, emailAddr, username, password, locale string) (*domain.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	username = strings.TrimSpace(username)

	var fields []domain.FieldError
	if !strings.Contains(emailAddr, "@") {
		fields = append(fields, domain.FieldError{Field: "email", Message: "invalid email address"})
	}
	if username == "" {
		fields = append(fields, domain.FieldError{Field: "username", Message: "username is required"})
	}
	if len(password) < minPasswordLen {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return nil, ErrEmailTaken
	} else if !domain.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.issueVerification(ctx, user, locale, 0); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("auth: send verification code failed")
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: user registered")
	return user, nil
}

// Login checks the credentials and returns the account. Unverified addresses
// are rejected until the code flow completes.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

// VerifyEmail consumes a verification code. Wrong codes burn an attempt;
// expired codes or exhausted attempts require a resend.
func (s *AuthService) VerifyEmail(ctx context.Context, emailAddr, code string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	v, err := s.verifications.LatestVerification(ctx, user.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return ErrCodeExpired
		}
		return err
	}
	if s.now().After(v.ExpiresAt) || v.Attempts >= maxCodeAttempts {
		return ErrCodeExpired
	}
	if s.hashCode(code) != v.CodeHash {
		if err := s.verifications.IncrementVerificationAttempts(ctx, v.ID); err != nil {
			return err
		}
		return ErrCodeMismatch
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := s.verifications.DeleteVerifications(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("auth: cleanup verification failed")
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: email verified")
	return nil
}

// ResendVerification issues a fresh code, subject to the resend cooldown.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr, locale string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if domain.IsNotFound(err) {
			// Do not leak which addresses exist.
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	resendCount := 0
	if prev, err := s.verifications.LatestVerification(ctx, user.ID); err == nil {
		if s.now().Sub(prev.LastSentAt) < resendCooldown {
			return ErrResendCooldown
		}
		resendCount = prev.ResendCount + 1
		if resendCount > maxResendsPerDay {
			return ErrResendCooldown
		}
	} else if !domain.IsNotFound(err) {
		return err
	}

	return s.issueVerification(ctx, user, locale, resendCount)
}

// RequestPasswordReset emails a reset code. Unknown addresses succeed
// silently so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr, locale string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	reset := &domain.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CodeHash:  s.hashCode(code),
		ExpiresAt: s.now().Add(verificationTTL),
	}
	if err := s.verifications.ReplaceReset(ctx, reset); err != nil {
		return err
	}
	return s.sender.SendPasswordReset(ctx, user.Email, user.Username, code, locale)
}

// ConfirmPasswordReset consumes a reset code and stores the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, emailAddr, code, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "password", Message: "password must be at least 8 characters"}}}
	}
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.ErrUnauthorized
		}
		return err
	}

	reset, err := s.verifications.LatestReset(ctx, user.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return ErrCodeExpired
		}
		return err
	}
	if reset.UsedAt != nil || s.now().After(reset.ExpiresAt) || reset.Attempts >= maxCodeAttempts {
		return ErrCodeExpired
	}
	if s.hashCode(code) != reset.CodeHash {
		if err := s.verifications.IncrementResetAttempts(ctx, reset.ID); err != nil {
			return err
		}
		return ErrCodeMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.verifications.MarkResetUsed(ctx, reset.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("auth: mark reset used failed")
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: password reset")
	return nil
}

// ChangePassword replaces the password of a logged-in account after
// re-checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "new_password", Message: "password must be at least 8 characters"}}}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "old_password", Message: "old password is incorrect"}}}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: password changed")
	return nil
}

func (s *AuthService) issueVerification(ctx context.Context, user *domain.User, locale string, resendCount int) error {
	code, err := s.newCode()
	if err != nil {
		return err
	}
	v := &domain.EmailVerification{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		CodeHash:    s.hashCode(code),
		ExpiresAt:   s.now().Add(verificationTTL),
		LastSentAt:  s.now(),
		ResendCount: resendCount,
	}
	if err := s.verifications.ReplaceVerification(ctx, v); err != nil {
		return err
	}
	return s.sender.SendVerificationCode(ctx, user.Email, user.Username, code, locale)
}

// newCode returns a 6-digit one-time code with uniform distribution.
func (s *AuthService) newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *AuthService) hashCode(code string) string {
	sum := sha256.Sum256([]byte(code + s.codeSecret))
	return hex.EncodeToString(sum[:])
}
