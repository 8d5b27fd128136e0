package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inkpost/apperror"
	"inkpost/auth"
	"inkpost/database"
	"inkpost/models"
)

type AuthDeps struct {
	Users  UserStore
	Mailer Mailer
	Hasher *auth.Hasher
	OTPs   OTPSource
	Tokens *auth.TokenService

	// OTPTTL bounds how long a code stays valid; zero means forever.
	OTPTTL        time.Duration
	DefaultAvatar string
}

// AuthService drives the account lifecycle: signup, email verification,
// login and password reset.
type AuthService struct {
	users         UserStore
	mailer        Mailer
	hasher        *auth.Hasher
	otps          OTPSource
	tokens        *auth.TokenService
	otpTTL        time.Duration
	defaultAvatar string
	now           func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	otps := d.OTPs
	if otps == nil {
		otps = auth.OTPGenerator{}
	}
	return &AuthService{
		users:         d.Users,
		mailer:        d.Mailer,
		hasher:        d.Hasher,
		otps:          otps,
		tokens:        d.Tokens,
		otpTTL:        d.OTPTTL,
		defaultAvatar: d.DefaultAvatar,
		now:           time.Now,
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Location string
	Password string
}

// Session is the result of a successful verification or login.
type Session struct {
	Token string
	User  *models.User
}

// Signup creates an unverified user and emails it a code. If the email
// cannot be sent the user is removed again, so a failed signup can be
// retried with the same address.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" || in.Email == "" || in.Location == "" || in.Password == "" {
		return nil, apperror.NewValidation("name, email, location and password are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashErr(err)
	}
	code, err := s.otps.Generate()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Location:     in.Location,
		PasswordHash: hash,
		Avatar:       s.defaultAvatar,
		OTP:          &code,
		OTPExpiresAt: s.otpExpiry(),
		CreatedAt:    s.now().Unix(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken.Wrap(err)
		}
		return nil, apperror.NewInternal(err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		if delErr := s.users.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			slog.ErrorContext(ctx, "signup rollback failed", "userId", user.ID.Hex(), "error", delErr)
		}
		return nil, apperror.NewUpstream("failed to send otp email", err)
	}
	return user, nil
}

// VerifyOTP confirms the pending code of email, marks the account
// verified and opens a session.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}

	if user.OTP == nil || subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(code)) != 1 {
		return nil, ErrInvalidOTP
	}
	if user.OTPExpiresAt != nil && s.now().After(*user.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}

	if err := s.users.ConsumeOTP(ctx, user.ID, code); err != nil {
		// The code was replaced between the read and the write.
		return nil, storeErr(err, ErrInvalidOTP)
	}
	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil

	return s.session(user)
}

// Login checks the password of email. Unverified accounts may log in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// ForgotPassword emails a fresh code to email, replacing any code that
// was still pending for the account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return storeErr(err, ErrUserNotFound)
	}

	code, err := s.otps.Generate()
	if err != nil {
		return apperror.NewInternal(err)
	}
	if err := s.users.SetOTP(ctx, user.ID, code, s.otpExpiry()); err != nil {
		return storeErr(err, ErrUserNotFound)
	}
	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		return apperror.NewUpstream("failed to send otp email", err)
	}
	return nil
}

// SetNewPassword replaces the password of the caller.
func (s *AuthService) SetNewPassword(ctx context.Context, caller Caller, password string) error {
	if password == "" {
		return apperror.NewValidation("password is required")
	}
	if _, err := s.users.FindByID(ctx, caller.ID); err != nil {
		return storeErr(err, ErrUserNotFound)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return hashErr(err)
	}
	if err := s.users.UpdatePassword(ctx, caller.ID, hash); err != nil {
		return storeErr(err, ErrUserNotFound)
	}
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *AuthService) otpExpiry() *time.Time {
	if s.otpTTL <= 0 {
		return nil
	}
	at := s.now().Add(s.otpTTL)
	return &at
}
