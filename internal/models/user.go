package models

import "time"

// User represents an account holder
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsStaff      bool
	DateJoined   time.Time
	Profile      Profile
}

// DisplayName is the first name when set, otherwise the username
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// HasUsablePassword reports whether password login is possible for the account
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// UserSummary is the compact user shape embedded in other resources
type UserSummary struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Profile holds per-user settings. Every user has exactly one.
type Profile struct {
	UserID      int64
	PhoneNumber *string
	FCMToken    *string
	IsDeleted   bool
	DeletedAt   *time.Time
}

// OTPValidity is how long a one-time password stays usable
const OTPValidity = 10 * time.Minute

// OTPRequest is a one-time password sent to an email address
type OTPRequest struct {
	ID         int64
	Email      string
	OTP        string
	CreatedAt  time.Time
	IsVerified bool
}

// IsValid checks the OTP is still inside its validity window
func (o *OTPRequest) IsValid(now time.Time) bool {
	return now.Sub(o.CreatedAt) < OTPValidity
}
