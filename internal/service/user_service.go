package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"selfmanager/internal/models"
	"selfmanager/internal/repository"
	"selfmanager/internal/validation"
)

// UserService manages the signed-in user's own account
type UserService struct {
	users      *repository.UserRepository
	families   *repository.FamilyRepository
	purgeAfter time.Duration
	now        func() time.Time
}

// NewUserService creates a new user service. Soft deleted accounts are purged after purgeAfter.
func NewUserService(users *repository.UserRepository, families *repository.FamilyRepository, purgeAfter time.Duration) *UserService {
	return &UserService{
		users:      users,
		families:   families,
		purgeAfter: purgeAfter,
		now:        time.Now,
	}
}

// GetUser returns a user by ID
func (s *UserService) GetUser(userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ProfilePatch holds the fields of a partial profile update. Nil fields are left alone.
type ProfilePatch struct {
	Username    *string `json:"username" validate:"omitempty,max=150"`
	Email       *string `json:"email" validate:"omitempty,email"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

// UpdateProfile applies a partial update to the user's account
func (s *UserService) UpdateProfile(userID int64, patch ProfilePatch) (*models.User, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, validation.FieldError("username", "This field may not be blank.")
		}
		taken, err := s.users.UsernameExists(username, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, validation.FieldError("username", "A user with that username already exists.")
		}
		user.Username = username
	}
	if patch.Email != nil && !strings.EqualFold(*patch.Email, user.Email) {
		exists, err := s.users.EmailExists(*patch.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, validation.FieldError("email", "Email already registered.")
		}
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		if err := validation.ValidateFirstName(*patch.FirstName); err != nil {
			return nil, err
		}
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.PhoneNumber != nil {
		if *patch.PhoneNumber == "" {
			user.Profile.PhoneNumber = nil
		} else {
			phone := *patch.PhoneNumber
			user.Profile.PhoneNumber = &phone
		}
	}

	if err := s.users.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateFCMToken registers the device that receives the user's push notifications
func (s *UserService) UpdateFCMToken(userID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return badRequest("Token is required")
	}
	return s.users.UpdateFCMToken(userID, token)
}

// DeleteAccount soft deletes the account. Family owners must transfer or delete
// their families first.
func (s *UserService) DeleteAccount(userID int64) error {
	owns, err := s.families.OwnsAnyFamily(userID)
	if err != nil {
		return err
	}
	if owns {
		return badRequest("You are the owner of a family. Please transfer ownership or delete the family before deleting your account.")
	}

	if err := s.users.SoftDeleteUser(userID, s.now().UTC()); err != nil {
		return err
	}
	log.Printf("User %d scheduled for deletion", userID)
	return nil
}

// PurgeDeletedAccounts permanently removes accounts that stayed deleted past the grace period
func (s *UserService) PurgeDeletedAccounts() (int64, error) {
	n, err := s.users.PurgeDeletedUsers(s.now().UTC().Add(-s.purgeAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to purge accounts: %w", err)
	}
	return n, nil
}
