package repository

import (
	"database/sql"
	"fmt"
	"time"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// UserRepository handles database operations for users and their profiles
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.is_staff, u.date_joined,
	p.phone_number, p.fcm_token, p.is_deleted, p.deleted_at
`

const userFrom = `
	FROM users u
	INNER JOIN profiles p ON p.user_id = u.id
`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.IsStaff,
		&user.DateJoined,
		&user.Profile.PhoneNumber,
		&user.Profile.FCMToken,
		&user.Profile.IsDeleted,
		&user.Profile.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Profile.UserID = user.ID
	return user, nil
}

// CreateUser inserts a new user and its profile in one transaction
func (r *UserRepository) CreateUser(username, email, passwordHash, firstName, lastName string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		DateJoined:   now,
	}

	err := r.db.WithTx(func(tx *database.Tx) error {
		id, err := tx.ExecReturningID(`
			INSERT INTO users (username, email, password_hash, first_name, last_name, date_joined)
			VALUES (?, ?, ?, ?, ?, ?)
		`, username, email, passwordHash, firstName, lastName, now)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO profiles (user_id) VALUES (?)", id); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		user.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Profile.UserID = user.ID
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow("SELECT "+userColumns+userFrom+"WHERE u.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(username string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow("SELECT "+userColumns+userFrom+"WHERE u.username = ?", username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, ignoring case
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := "SELECT " + userColumns + userFrom + "WHERE LOWER(u.email) = LOWER(?) ORDER BY u.id LIMIT 1"
	user, err := scanUser(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EmailExists reports whether any account uses the email address
func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)", email).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// UsernameExists reports whether the username is taken by another account
func (r *UserRepository) UsernameExists(username string, exceptID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?", username, exceptID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// UpdateUser updates a user's editable fields and phone number together
func (r *UserRepository) UpdateUser(user *models.User) error {
	return r.db.WithTx(func(tx *database.Tx) error {
		_, err := tx.Exec(`
			UPDATE users
			SET username = ?, email = ?, first_name = ?, last_name = ?
			WHERE id = ?
		`, user.Username, user.Email, user.FirstName, user.LastName, user.ID)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if _, err := tx.Exec("UPDATE profiles SET phone_number = ? WHERE user_id = ?", user.Profile.PhoneNumber, user.ID); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return nil
	})
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(userID int64, passwordHash string) error {
	if _, err := r.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateFCMToken stores the device token used for push notifications
func (r *UserRepository) UpdateFCMToken(userID int64, token string) error {
	if _, err := r.db.Exec("UPDATE profiles SET fcm_token = ? WHERE user_id = ?", token, userID); err != nil {
		return fmt.Errorf("failed to update fcm token: %w", err)
	}
	return nil
}

// GetFCMToken returns the user's device token, or "" when none is registered
func (r *UserRepository) GetFCMToken(userID int64) (string, error) {
	var token sql.NullString
	err := r.db.QueryRow("SELECT fcm_token FROM profiles WHERE user_id = ?", userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get fcm token: %w", err)
	}
	return token.String, nil
}

// SoftDeleteUser flags the profile as deleted. The account is purged later.
func (r *UserRepository) SoftDeleteUser(userID int64, at time.Time) error {
	if _, err := r.db.Exec("UPDATE profiles SET is_deleted = ?, deleted_at = ? WHERE user_id = ?", true, at, userID); err != nil {
		return fmt.Errorf("failed to soft delete user: %w", err)
	}
	return nil
}

// RestoreUser clears the soft delete flag. It reports whether the account was deleted.
func (r *UserRepository) RestoreUser(userID int64) (bool, error) {
	result, err := r.db.Exec("UPDATE profiles SET is_deleted = ?, deleted_at = NULL WHERE user_id = ? AND is_deleted = ?", false, userID, true)
	if err != nil {
		return false, fmt.Errorf("failed to restore user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read restore result: %w", err)
	}
	return rows > 0, nil
}

// PurgeDeletedUsers permanently removes accounts soft deleted before the cutoff
func (r *UserRepository) PurgeDeletedUsers(before time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM users
		WHERE id IN (SELECT user_id FROM profiles WHERE is_deleted = ? AND deleted_at < ?)
	`, true, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted users: %w", err)
	}
	return result.RowsAffected()
}
