package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/himlearning/storyhub/internal/pkg/mail"
)

const (
	minPasswordLen  = 6
	resendCooldown  = 2 * time.Minute
	cooldownKeyBase = "auth:cooldown:"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(to string, data mail.LinkData) error
	SendPasswordReset(to string, data mail.LinkData) error
}

// Limiter grants a key at most once per ttl.
type Limiter interface {
	Cooldown(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error)
}

// Options configures token lifetimes and link targets.
type Options struct {
	SiteURL             string
	DefaultAvatar       string
	JWTExpire           time.Duration
	VerificationExpire  time.Duration
	ResetPasswordExpire time.Duration
	// ForgotCooldown spaces out password reset emails per account.
	ForgotCooldown time.Duration
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailDTO struct {
	Email string `json:"email"`
}

type ResetPasswordDTO struct {
	NewPassword     string `json:"newPassword"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// password accepts either field name for the new password.
func (d ResetPasswordDTO) password() string {
	if d.NewPassword != "" {
		return d.NewPassword
	}
	return d.Password
}

type loginResponse struct {
	Token string `json:"token"`
}

// RegisterResult tells the caller whether an account was created or an
// existing unverified one was sent a fresh link.
type RegisterResult struct {
	Created bool
}
