package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sentrolokal/barangay/internal/auth"
	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/mailer"
	"github.com/sentrolokal/barangay/internal/repo"
)

type usersRepository interface {
	InsertUser(ctx context.Context, arg repo.InsertUserParams) (repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	GetUserByName(ctx context.Context, name string) (repo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	ListUsersByBarangay(ctx context.Context, barangay string) ([]repo.User, error)
	SetUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UsersService covers the staff-side account actions: creation,
// verification decisions and activation toggles.
type UsersService struct {
	repo      usersRepository
	barangays barangayResolver
	mailer    mailer.Mailer
}

// NewUsersService creates the staff account service.
func NewUsersService(r usersRepository, b barangayResolver, m mailer.Mailer) *UsersService {
	return &UsersService{repo: r, barangays: b, mailer: m}
}

// CreateAccountInput holds a staff-initiated account creation. CallerRole
// bounds the roles the caller may hand out.
type CreateAccountInput struct {
	Name       string
	Email      string
	Password   string
	Barangay   string
	Role       string
	CallerRole string
}

// CreateAccount registers a pre-verified account on behalf of a resident or
// a new staff member.
func (s *UsersService) CreateAccount(ctx context.Context, input CreateAccountInput) (*repo.User, error) {
	role := repo.NormalizeRole(input.Role)
	if !repo.IsValidRole(role) {
		return nil, errors.New("invalid role")
	}
	if !CanCreateRole(input.CallerRole, role) {
		return nil, ErrForbidden
	}

	if len(strings.TrimSpace(input.Password)) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	brgy, err := s.barangays.Resolve(ctx, input.Barangay)
	if err != nil {
		if errors.Is(err, barangay.ErrNotFound) {
			return nil, ErrBarangayUnknown
		}
		return nil, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetUserByName(ctx, input.Name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.InsertUser(ctx, repo.InsertUserParams{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Barangay:     brgy.Slug,
		Role:         role,
		Verified:     true,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns the caller's barangay roster.
func (s *UsersService) ListUsers(ctx context.Context, barangay string) ([]repo.PublicUser, error) {
	users, err := s.repo.ListUsersByBarangay(ctx, barangay)
	if err != nil {
		return nil, err
	}
	public := make([]repo.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}

// VerifyUser marks a pending account as verified and notifies the owner.
func (s *UsersService) VerifyUser(ctx context.Context, callerBarangay string, userID uuid.UUID) error {
	user, err := s.scopedUser(ctx, callerBarangay, userID)
	if err != nil {
		return err
	}

	if err := s.repo.SetUserVerified(ctx, userID, true); err != nil {
		return err
	}

	s.notify(ctx, mailer.AccountVerifiedEmail(user.Email, user.Barangay))
	return nil
}

// RejectUser clears the verification flag on an account.
func (s *UsersService) RejectUser(ctx context.Context, callerBarangay string, userID uuid.UUID) error {
	if _, err := s.scopedUser(ctx, callerBarangay, userID); err != nil {
		return err
	}
	return s.repo.SetUserVerified(ctx, userID, false)
}

// DeactivateUser disables an account. The reason is mandatory and is
// emailed to the owner.
func (s *UsersService) DeactivateUser(ctx context.Context, callerBarangay string, userID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errors.New("deactivation reason is required")
	}

	user, err := s.scopedUser(ctx, callerBarangay, userID)
	if err != nil {
		return err
	}

	if err := s.repo.SetUserActive(ctx, userID, false); err != nil {
		return err
	}

	s.notify(ctx, mailer.DeactivationEmail(user.Email, reason))
	return nil
}

// ActivateUser re-enables an account and notifies the owner.
func (s *UsersService) ActivateUser(ctx context.Context, callerBarangay string, userID uuid.UUID) error {
	user, err := s.scopedUser(ctx, callerBarangay, userID)
	if err != nil {
		return err
	}

	if err := s.repo.SetUserActive(ctx, userID, true); err != nil {
		return err
	}

	s.notify(ctx, mailer.ActivationEmail(user.Email))
	return nil
}

// scopedUser loads the target and enforces the caller's barangay boundary.
// Out-of-barangay targets read as not found.
func (s *UsersService) scopedUser(ctx context.Context, callerBarangay string, userID uuid.UUID) (*repo.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Barangay != callerBarangay {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *UsersService) notify(ctx context.Context, msg mailer.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Warn().Err(err).Str("to", msg.To).Msg("account notice dispatch failed")
	}
}
