package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/jwt"
	"github.com/himlearning/storyhub/internal/pkg/mail"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	users   user.Store
	mailer  Mailer
	limiter Limiter
	opts    Options
	log     *zap.Logger
	now     func() time.Time
}

func NewService(users user.Store, mailer Mailer, limiter Limiter, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, mailer: mailer, limiter: limiter, opts: opts, log: log.Named("auth"), now: time.Now}
}

// Register creates an account and mails a verification link. Registering an
// email that exists but is unverified sends a fresh link instead.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (RegisterResult, error) {
	username := strings.TrimSpace(dto.Username)
	email := normalizeEmail(dto.Email)
	if username == "" {
		return RegisterResult{}, apperr.Validation("Please provide a username")
	}
	if !emailPattern.MatchString(email) {
		return RegisterResult{}, apperr.Validation("Please provide a valid email address")
	}
	if len(dto.Password) < minPasswordLen {
		return RegisterResult{}, apperr.Validation("Password must be at least 6 characters long")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	if existing != nil {
		if existing.IsEmailVerified {
			return RegisterResult{}, apperr.Conflict("An account with this email already exists. Please login instead.")
		}
		if err := s.sendVerification(ctx, existing); err != nil {
			return RegisterResult{}, apperr.Wrap(apperr.KindInternal, "Failed to send verification email. Please try again.", err)
		}
		return RegisterResult{}, nil
	}

	hash, err := user.HashPassword(dto.Password)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	u := &models.User{Username: username, Email: email, Password: hash, Photo: s.opts.DefaultAvatar, Role: models.RoleUser}
	u.Touch(s.now())
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return RegisterResult{}, apperr.Conflict("An account with this email already exists.")
		}
		return RegisterResult{}, apperr.Internal(err)
	}

	if err := s.sendVerification(ctx, u); err != nil {
		return RegisterResult{Created: true}, apperr.Wrap(apperr.KindInternal,
			"Account created but verification email could not be sent. Please use the resend option on the login page.", err)
	}
	return RegisterResult{Created: true}, nil
}

// Login checks credentials and returns a signed token. Accounts must have a
// verified email unless they hold the admin role.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (string, error) {
	email := normalizeEmail(dto.Email)
	if email == "" || dto.Password == "" {
		return "", apperr.Validation("Please check your inputs")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.Password)) != nil {
		return "", apperr.Unauthenticated("Invalid credentials")
	}
	if !u.IsEmailVerified && u.Role != models.RoleAdmin {
		return "", apperr.Unauthenticated("Please verify your email before logging in. Check your inbox for verification link.")
	}
	token, err := jwt.Sign(u.ID.Hex(), u.Username, s.opts.JWTExpire)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// ForgotPassword mails a reset link. Unknown emails get the same answer as
// known ones.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Please provide an email address")
	}
	if !emailPattern.MatchString(email) {
		return apperr.Validation("Please provide a valid email address")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if u == nil {
		return nil
	}
	if !u.IsEmailVerified && u.Role != models.RoleAdmin {
		return apperr.Validation("Please verify your email address first before resetting password")
	}
	if err := s.cooldown(ctx, "reset:"+u.ID.Hex(), s.opts.ForgotCooldown, "password reset"); err != nil {
		return err
	}

	raw, hash, err := newToken()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, hash, s.now().Add(s.opts.ResetPasswordExpire)); err != nil {
		return apperr.Internal(err)
	}
	err = s.mailer.SendPasswordReset(u.Email, mail.LinkData{
		Username: u.Username,
		URL:      s.link("/resetpassword", "resetPasswordToken", raw),
		ValidFor: humanize(s.opts.ResetPasswordExpire),
	})
	if err != nil {
		s.log.Warn("send reset email", zap.String("user", u.ID.Hex()), zap.Error(err))
		if clearErr := s.users.SetResetToken(ctx, u.ID, "", time.Time{}); clearErr != nil {
			s.log.Error("clear reset token", zap.Error(clearErr))
		}
		return apperr.Wrap(apperr.KindInternal, "Password reset email could not be sent. Please try again later.", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a reset token.
func (s *Service) ResetPassword(ctx context.Context, token string, dto ResetPasswordDTO) error {
	password := dto.password()
	switch {
	case token == "":
		return apperr.Validation("Please provide a valid reset token")
	case password == "":
		return apperr.Validation("Please provide a new password")
	case len(password) < minPasswordLen:
		return apperr.Validation("Password must be at least 6 characters long")
	case dto.ConfirmPassword != "" && dto.ConfirmPassword != password:
		return apperr.Validation("Passwords do not match")
	}

	u, err := s.users.FindByResetToken(ctx, hashToken(token))
	if err != nil {
		return apperr.Internal(err)
	}
	if u == nil {
		return apperr.Validation("Invalid reset token. Please request a new password reset.")
	}
	if u.ResetPasswordExpire == nil || !u.ResetPasswordExpire.After(s.now()) {
		return apperr.Validation("Reset token has expired. Please request a new password reset.")
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// VerifyEmail consumes a verification token. alreadyVerified is true when the
// account had been verified before.
func (s *Service) VerifyEmail(ctx context.Context, token string) (alreadyVerified bool, err error) {
	if token == "" {
		return false, apperr.Validation("Please provide a valid verification token")
	}
	u, err := s.users.FindByVerificationToken(ctx, hashToken(token))
	if err != nil {
		return false, apperr.Internal(err)
	}
	if u == nil {
		return false, apperr.Validation("Invalid verification token. Please check your email for the correct link.")
	}
	if u.IsEmailVerified {
		return true, nil
	}
	if u.EmailVerificationExpire == nil || !u.EmailVerificationExpire.After(s.now()) {
		return false, apperr.Validation("Verification link has expired. Please request a new verification email.")
	}
	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return false, apperr.Internal(err)
	}
	return false, nil
}

// ResendVerification mails a new verification link to an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Please provide an email address")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if u == nil {
		return apperr.NotFound("No user found with this email address")
	}
	if u.IsEmailVerified {
		return apperr.Validation("Email is already verified")
	}
	if err := s.cooldown(ctx, "verify:"+u.ID.Hex(), resendCooldown, "verification"); err != nil {
		return err
	}
	if err := s.sendVerification(ctx, u); err != nil {
		return apperr.Wrap(apperr.KindInternal, "Email could not be sent", err)
	}
	return nil
}

// Me returns the signed-in account.
func (s *Service) Me(ctx context.Context, viewer models.Viewer) (*models.User, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	u, err := s.users.FindByID(ctx, viewer.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

// sendVerification stores a fresh token and mails it. The token is cleared
// again when the mail cannot be delivered.
func (s *Service) sendVerification(ctx context.Context, u *models.User) error {
	raw, hash, err := newToken()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationToken(ctx, u.ID, hash, s.now().Add(s.opts.VerificationExpire)); err != nil {
		return err
	}
	err = s.mailer.SendVerification(u.Email, mail.LinkData{
		Username: u.Username,
		URL:      s.link("/verify-email", "token", raw),
		ValidFor: humanize(s.opts.VerificationExpire),
	})
	if err != nil {
		s.log.Warn("send verification email", zap.String("user", u.ID.Hex()), zap.Error(err))
		if clearErr := s.users.SetVerificationToken(ctx, u.ID, "", time.Time{}); clearErr != nil {
			s.log.Error("clear verification token", zap.Error(clearErr))
		}
		return err
	}
	return nil
}

func (s *Service) cooldown(ctx context.Context, key string, ttl time.Duration, what string) error {
	if s.limiter == nil || ttl <= 0 {
		return nil
	}
	ok, left, err := s.limiter.Cooldown(ctx, cooldownKeyBase+key, ttl)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.RateLimited(fmt.Sprintf("Please wait %d minute(s) before requesting another %s email", minutesLeft(left), what), left)
	}
	return nil
}

func (s *Service) link(path, param, token string) string {
	return s.opts.SiteURL + path + "?" + url.Values{param: {token}}.Encode()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
