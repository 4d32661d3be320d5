package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sentrolokal/barangay/internal/auth"
	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/ledger"
	"github.com/sentrolokal/barangay/internal/mailer"
	"github.com/sentrolokal/barangay/internal/repo"
)

var (
	// ErrEmailTaken means the email already belongs to an account.
	ErrEmailTaken = errors.New("email already in use")
	// ErrNameTaken means the name already belongs to an account. Reported
	// separately from ErrEmailTaken; existing clients depend on the
	// distinct code.
	ErrNameTaken = errors.New("name already in use")
	// ErrUserNotFound means no account matches the email.
	ErrUserNotFound = errors.New("no account for that email")
	// ErrInvalidCredentials means the password check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled means the account was deactivated by staff.
	ErrAccountDisabled = errors.New("account deactivated")
	// ErrBarangayUnknown means signup referenced an unregistered barangay.
	ErrBarangayUnknown = errors.New("unknown barangay")
	// ErrEmailDispatch means the verification email could not be sent.
	ErrEmailDispatch = errors.New("could not send verification email")

	// ErrOTPMissing means no reset code exists: already used or expired.
	ErrOTPMissing = errors.New("code already used or expired")
	// ErrOTPMismatch means the submitted code does not match.
	ErrOTPMismatch = errors.New("incorrect code")
	// ErrOTPExpired means the code's 5-minute window has passed.
	ErrOTPExpired = errors.New("code expired, request another")
)

// VerifyOutcome describes the result of an email verification attempt.
type VerifyOutcome string

const (
	VerifyOK               VerifyOutcome = "verified"
	VerifyAlreadyOrExpired VerifyOutcome = "already-verified-or-expired"
	VerifyExpiredLink      VerifyOutcome = "expired"
)

type identityRepository interface {
	InsertUser(ctx context.Context, arg repo.InsertUserParams) (repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	GetUserByName(ctx context.Context, name string) (repo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	SetUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type verificationLedger interface {
	PutEmailToken(ctx context.Context, userID uuid.UUID, tokenHash string) error
	GetEmailToken(ctx context.Context, userID uuid.UUID) (*ledger.EmailVerification, error)
	DeleteEmailToken(ctx context.Context, userID uuid.UUID) error
	PutOTP(ctx context.Context, userID uuid.UUID, code string) error
	GetOTP(ctx context.Context, userID uuid.UUID) (*ledger.OTPRecord, error)
	DeleteOTP(ctx context.Context, userID uuid.UUID) error
}

type barangayResolver interface {
	Resolve(ctx context.Context, slug string) (*barangay.Barangay, error)
}

// IdentityService orchestrates signup, verification, login and the OTP
// password reset protocol.
type IdentityService struct {
	repo       identityRepository
	ledger     verificationLedger
	barangays  barangayResolver
	mailer     mailer.Mailer
	jwt        *auth.JWTManager
	appBaseURL string
}

// NewIdentityService wires the service's collaborators explicitly.
func NewIdentityService(r identityRepository, l verificationLedger, b barangayResolver, m mailer.Mailer, jwtMgr *auth.JWTManager, appBaseURL string) *IdentityService {
	return &IdentityService{
		repo:       r,
		ledger:     l,
		barangays:  b,
		mailer:     m,
		jwt:        jwtMgr,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// JWT exposes the token manager for middleware wiring.
func (s *IdentityService) JWT() *auth.JWTManager {
	return s.jwt
}

// SignupInput carries a registration submission.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Barangay string
}

// Signup registers a new unverified account. It only succeeds once the
// verification email is confirmed dispatched; on dispatch failure the
// ledger record is rolled back and the signup fails.
func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (*repo.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if _, err := s.repo.GetUserByName(ctx, name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	brgy, err := s.barangays.Resolve(ctx, input.Barangay)
	if err != nil {
		if errors.Is(err, barangay.ErrNotFound) {
			return nil, ErrBarangayUnknown
		}
		return nil, err
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.InsertUser(ctx, repo.InsertUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Barangay:     brgy.Slug,
		Role:         repo.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return nil, err
	}

	return &user, nil
}

// ResendVerification issues a fresh link, superseding the previous record.
func (s *IdentityService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Verified {
		return nil
	}
	return s.sendVerification(ctx, user)
}

func (s *IdentityService) sendVerification(ctx context.Context, user repo.User) error {
	rawToken, tokenHash, err := auth.GenerateLinkToken()
	if err != nil {
		return err
	}

	if err := s.ledger.PutEmailToken(ctx, user.ID, tokenHash); err != nil {
		return err
	}

	verifyURL := fmt.Sprintf("%s/verify/%s/%s", s.appBaseURL, rawToken, user.ID)
	if err := s.mailer.Send(ctx, mailer.VerificationEmail(user.Email, verifyURL)); err != nil {
		// compensating delete: signup is only complete once the email
		// is confirmed dispatched
		if delErr := s.ledger.DeleteEmailToken(ctx, user.ID); delErr != nil {
			log.Warn().Err(delErr).Str("user_id", user.ID.String()).Msg("verification rollback failed")
		}
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("verification email dispatch failed")
		return ErrEmailDispatch
	}

	return nil
}

// VerifyEmail consumes a verification link. A second attempt after success
// lands on the absent-record path, which is the intended idempotent failure.
func (s *IdentityService) VerifyEmail(ctx context.Context, userID uuid.UUID, rawToken string) (VerifyOutcome, error) {
	record, err := s.ledger.GetEmailToken(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoRecord) {
			return VerifyAlreadyOrExpired, nil
		}
		return "", err
	}

	if record.Expired(time.Now().UTC()) {
		return VerifyExpiredLink, nil
	}

	if subtle.ConstantTimeCompare([]byte(auth.HashLinkToken(rawToken)), []byte(record.TokenHash)) != 1 {
		return VerifyExpiredLink, nil
	}

	if err := s.repo.SetUserVerified(ctx, userID, true); err != nil {
		return "", err
	}
	if err := s.ledger.DeleteEmailToken(ctx, userID); err != nil {
		return "", err
	}

	return VerifyOK, nil
}

// LoginResult bundles the issued token with the public projection.
type LoginResult struct {
	Token string
	User  repo.PublicUser
}

// Login checks credentials and issues a 1-day session token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !auth.Verify(password, user.PasswordHash) {
		log.Warn().Str("user_id", user.ID.String()).Msg("login: password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user.Public()}, nil
}

func (s *IdentityService) issueSession(user repo.User) (string, error) {
	claims := auth.SessionClaims{
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Barangay:  user.Barangay,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
	claims.Subject = user.ID.String()
	return s.jwt.GenerateSessionToken(claims)
}

// RequestOTP starts the password reset protocol: any prior code for the
// user is superseded, a fresh 6-digit code is mailed, and a short-lived
// token is returned as a correlation handle for the client.
func (s *IdentityService) RequestOTP(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if err := s.ledger.DeleteOTP(ctx, user.ID); err != nil {
		return "", err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := s.ledger.PutOTP(ctx, user.ID, code); err != nil {
		return "", err
	}

	if err := s.mailer.Send(ctx, mailer.OTPEmail(user.Email, code)); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("otp email dispatch failed")
		return "", ErrEmailDispatch
	}

	return s.jwt.GenerateResetToken(user.ID.String())
}

// VerifyOTP checks a submitted code. The record is consumed on success and
// on expiry; a missing record reports the used-or-expired outcome.
func (s *IdentityService) VerifyOTP(ctx context.Context, email, code string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	record, err := s.ledger.GetOTP(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoRecord) {
			return ErrOTPMissing
		}
		return err
	}

	if record.Expired(time.Now().UTC()) {
		if err := s.ledger.DeleteOTP(ctx, user.ID); err != nil {
			return err
		}
		return ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(strings.TrimSpace(code))) != 1 {
		return ErrOTPMismatch
	}

	return s.ledger.DeleteOTP(ctx, user.ID)
}

// ResetPassword hashes and persists the new password. It does not
// re-verify that VerifyOTP succeeded for this email; the reset surface is
// only reachable behind the OTP flow on the client side.
func (s *IdentityService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := auth.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	// fire and forget
	if err := s.mailer.Send(ctx, mailer.PasswordChangedEmail(user.Email)); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("password change notice failed")
	}

	return nil
}

// GetProfile fetches the public projection for the session subject.
func (s *IdentityService) GetProfile(ctx context.Context, userID uuid.UUID) (*repo.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	public := user.Public()
	return &public, nil
}
