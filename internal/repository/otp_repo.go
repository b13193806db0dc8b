package repository

import (
	"database/sql"
	"fmt"
	"time"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// OTPRepository handles database operations for one-time passwords
type OTPRepository struct {
	db *database.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create stores a freshly generated OTP
func (r *OTPRepository) Create(email, otp string, createdAt time.Time) (*models.OTPRequest, error) {
	id, err := r.db.ExecReturningID("INSERT INTO otp_requests (email, otp, created_at) VALUES (?, ?, ?)", email, otp, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create otp request: %w", err)
	}
	return &models.OTPRequest{ID: id, Email: email, OTP: otp, CreatedAt: createdAt}, nil
}

// GetLatest returns the newest OTP row for the email and code.
// When verifiedOnly is set, unverified rows are ignored.
func (r *OTPRepository) GetLatest(email, otp string, verifiedOnly bool) (*models.OTPRequest, error) {
	query := "SELECT id, email, otp, created_at, is_verified FROM otp_requests WHERE email = ? AND otp = ?"
	args := []interface{}{email, otp}
	if verifiedOnly {
		query += " AND is_verified = ?"
		args = append(args, true)
	}
	query += " ORDER BY id DESC LIMIT 1"

	req := &models.OTPRequest{}
	err := r.db.QueryRow(query, args...).Scan(&req.ID, &req.Email, &req.OTP, &req.CreatedAt, &req.IsVerified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp request: %w", err)
	}
	return req, nil
}

// MarkVerified flags an OTP as verified
func (r *OTPRepository) MarkVerified(id int64) error {
	if _, err := r.db.Exec("UPDATE otp_requests SET is_verified = ? WHERE id = ?", true, id); err != nil {
		return fmt.Errorf("failed to verify otp request: %w", err)
	}
	return nil
}

// DeleteVerified consumes every verified OTP for the email
func (r *OTPRepository) DeleteVerified(email string) error {
	if _, err := r.db.Exec("DELETE FROM otp_requests WHERE email = ? AND is_verified = ?", email, true); err != nil {
		return fmt.Errorf("failed to delete otp requests: %w", err)
	}
	return nil
}

// DeleteExpired removes OTP rows created before the cutoff
func (r *OTPRepository) DeleteExpired(before time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM otp_requests WHERE created_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp requests: %w", err)
	}
	return result.RowsAffected()
}
