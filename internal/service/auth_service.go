package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"selfmanager/internal/credentials"
	"selfmanager/internal/models"
	"selfmanager/internal/repository"
	"selfmanager/internal/security"
	"selfmanager/internal/validation"
)

// googleRegistrationOTP lets accounts created through Google sign-in skip OTP verification
const googleRegistrationOTP = "google"

// GoogleProfileFetcher resolves a Google access token to the account's email address
type GoogleProfileFetcher interface {
	FetchEmail(ctx context.Context, accessToken string) (string, error)
}

// GoogleUserInfoClient reads the email from Google's userinfo endpoint
type GoogleUserInfoClient struct {
	UserInfoURL string
}

// FetchEmail calls the userinfo endpoint authorized with accessToken
func (c *GoogleUserInfoClient) FetchEmail(ctx context.Context, accessToken string) (string, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	resp, err := client.Get(c.UserInfoURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse Google user info: %w", err)
	}
	if payload.Email == "" {
		return "", errors.New("google user info has no email")
	}
	return payload.Email, nil
}

// AuthService handles OTP verification, registration, login and tokens
type AuthService struct {
	users  *repository.UserRepository
	otps   *repository.OTPRepository
	tokens *security.TokenManager
	mailer OTPMailer
	google GoogleProfileFetcher
	now    func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, otps *repository.OTPRepository, tokens *security.TokenManager,
	mailer OTPMailer, google GoogleProfileFetcher) *AuthService {
	return &AuthService{
		users:  users,
		otps:   otps,
		tokens: tokens,
		mailer: mailer,
		google: google,
		now:    time.Now,
	}
}

// SendOTP generates and emails a one-time password. For registration the email
// must be new; for a password reset it must belong to an account.
func (s *AuthService) SendOTP(ctx context.Context, email string, forgot bool) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	exists, err := s.users.EmailExists(email)
	if err != nil {
		return err
	}
	purpose := OTPForRegistration
	if forgot {
		if !exists {
			return ErrUserNotFound
		}
		purpose = OTPForPasswordReset
	} else if exists {
		return validation.FieldError("email", "Email already registered.")
	}

	otp, err := credentials.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if _, err := s.otps.Create(email, otp, s.now().UTC()); err != nil {
		return err
	}

	if err := s.mailer.SendOTPEmail(ctx, email, purpose, otp); err != nil {
		log.Printf("Failed to send OTP email to %s: %v", email, err)
	}
	return nil
}

// VerifyOTP marks the newest matching OTP as verified when it is still valid
func (s *AuthService) VerifyOTP(email, otp string) error {
	req, err := s.otps.GetLatest(email, otp, false)
	if err != nil {
		return err
	}
	if req == nil || !req.IsValid(s.now()) {
		return validation.FieldError("otp", "Invalid or expired OTP.")
	}
	return s.otps.MarkVerified(req.ID)
}

func (s *AuthService) checkVerifiedOTP(email, otp string) error {
	req, err := s.otps.GetLatest(email, otp, true)
	if err != nil {
		return err
	}
	if req == nil || !req.IsValid(s.now()) {
		return validation.FieldError("otp", "Invalid or expired verified OTP. Please verify OTP first.")
	}
	return nil
}

// RegisterInput is a new account request
type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strongpassword"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	OTP       string `json:"otp" validate:"required"`
}

// Register creates an account after the email was verified by OTP
func (s *AuthService) Register(in RegisterInput) (*models.User, *security.TokenPair, error) {
	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return nil, nil, err
		}
		errs = fieldErrs
	}
	if _, bad := errs["first_name"]; !bad {
		if nameErrs, ok := validation.AsErrors(validation.ValidateFirstName(in.FirstName)); ok {
			errs["first_name"] = nameErrs["first_name"]
		}
	}
	if err := errs.Err(); err != nil {
		return nil, nil, err
	}

	if in.OTP != googleRegistrationOTP {
		if err := s.checkVerifiedOTP(in.Email, in.OTP); err != nil {
			return nil, nil, err
		}
	}

	exists, err := s.users.EmailExists(in.Email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, validation.FieldError("email", "Email already registered.")
	}
	taken, err := s.users.UsernameExists(in.Username, 0)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, validation.FieldError("username", "A user with that username already exists.")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := s.users.CreateUser(in.Username, in.Email, hash, in.FirstName, in.LastName)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("User %d registered", user.ID)
	return user, pair, nil
}

// Login checks a username and password. Logging in to an account pending
// deletion restores it, reported by recovered.
func (s *AuthService) Login(username, password string) (pair *security.TokenPair, recovered bool, err error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, false, err
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, false, ErrInvalidCredentials
	}

	if recovered, err = s.users.RestoreUser(user.ID); err != nil {
		return nil, false, err
	}
	if pair, err = s.tokens.IssuePair(user.ID); err != nil {
		return nil, false, err
	}
	return pair, recovered, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	access, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	return access, nil
}

// GoogleLogin signs in the account whose email matches the Google profile
func (s *AuthService) GoogleLogin(ctx context.Context, accessToken string) (*models.User, *security.TokenPair, bool, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, nil, false, validation.FieldError("access_token", "This field is required.")
	}

	email, err := s.google.FetchEmail(ctx, accessToken)
	if err != nil {
		log.Printf("Google login failed: %v", err)
		return nil, nil, false, badRequest("Invalid Google token.")
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, nil, false, err
	}
	if user == nil {
		return nil, nil, false, badRequest("User not found.")
	}
	if !user.HasUsablePassword() {
		return nil, nil, false, &RequestError{Detail: "Password not set.", Code: "password_not_set"}
	}

	recovered, err := s.users.RestoreUser(user.ID)
	if err != nil {
		return nil, nil, false, err
	}
	user.Profile.IsDeleted = false
	user.Profile.DeletedAt = nil

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return user, pair, recovered, nil
}

// ResetPasswordInput is a forgotten-password reset request
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,max=7"`
	NewPassword string `json:"new_password" validate:"required,strongpassword"`
}

// ResetPassword sets a new password once the email's OTP was verified. Verified OTPs are consumed.
func (s *AuthService) ResetPassword(in ResetPasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(in.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return validation.FieldError("email", "User with this email does not exist.")
	}
	if err := s.checkVerifiedOTP(in.Email, in.OTP); err != nil {
		return err
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(user.ID, hash); err != nil {
		return err
	}
	return s.otps.DeleteVerified(in.Email)
}

// Authenticate resolves an access token to its user
func (s *AuthService) Authenticate(accessToken string) (*models.User, error) {
	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// CleanupExpiredOTPs removes OTP requests that can no longer be used
func (s *AuthService) CleanupExpiredOTPs() (int64, error) {
	return s.otps.DeleteExpired(s.now().UTC().Add(-models.OTPValidity))
}
