package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"medical-booking-server/internal/cache"
	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
)

const (
	resetCodeKey     = "pwreset:code:"
	resetAttemptsKey = "pwreset:attempts:"
	resetCooldownKey = "pwreset:cooldown:"

	resetCooldown    = time.Minute
	maxResetAttempts = 5
)

// ErrInvalidResetCode is returned for a wrong, expired or exhausted code.
var ErrInvalidResetCode = errors.New("invalid or expired reset code")

// PasswordResetService issues one-time codes by email and exchanges them for a new password.
type PasswordResetService struct {
	users    UserStore
	kv       cache.KV
	notifier Notifier
	ttl      time.Duration
	logger   *zap.Logger
}

// NewPasswordResetService creates the service; codes live for ttl.
func NewPasswordResetService(users UserStore, kv cache.KV, notifier Notifier, ttl time.Duration, logger *zap.Logger) *PasswordResetService {
	return &PasswordResetService{users: users, kv: kv, notifier: notifier, ttl: ttl, logger: logger}
}

// RequestReset emails a six digit code. Unknown emails and repeated requests
// within the cooldown succeed silently.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	first, err := s.kv.SetNX(ctx, resetCooldownKey+email, "1", resetCooldown)
	if err != nil {
		return fmt.Errorf("reset cooldown: %w", err)
	}
	if !first {
		return nil
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	code, err := resetCode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, resetCodeKey+email, code, s.ttl); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	if err := s.kv.Delete(ctx, resetAttemptsKey+email); err != nil {
		return fmt.Errorf("clear reset attempts: %w", err)
	}

	minutes := int(s.ttl / time.Minute)
	if err := s.notifier.Notify(ctx, mailer.Recipient{UserID: user.ID, Email: user.Email, Name: user.FirstName}, mailer.Message{
		Kind:    models.NotifyPasswordReset,
		Subject: "Password reset code",
		Body:    fmt.Sprintf("Your password reset code is %s.\n\nIt expires in %d minutes. If you did not ask for it, ignore this message.", code, minutes),
	}); err != nil {
		s.logger.Warn("password reset notification failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// Reset sets a new password when code matches, and revokes every refresh token.
// Every guess counts against the attempt limit before it is compared.
func (s *PasswordResetService) Reset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	attempts, err := s.kv.Incr(ctx, resetAttemptsKey+email, s.ttl)
	if err != nil {
		return fmt.Errorf("count reset attempt: %w", err)
	}
	if attempts > maxResetAttempts {
		return ErrInvalidResetCode
	}

	stored, err := s.kv.Get(ctx, resetCodeKey+email)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("load reset code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		if attempts == maxResetAttempts {
			if err := s.kv.Delete(ctx, resetCodeKey+email); err != nil {
				return fmt.Errorf("discard reset code: %w", err)
			}
		}
		return ErrInvalidResetCode
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("load user: %w", err)
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if err := s.users.RevokeUserTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if err := s.kv.Delete(ctx, resetCodeKey+email, resetAttemptsKey+email); err != nil {
		s.logger.Warn("clear reset code", zap.Error(err))
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
