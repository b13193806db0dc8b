package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// AttendanceRepository handles database operations for attendance entries
type AttendanceRepository struct {
	db *database.DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ErrDuplicateAttendance is returned when the user already has an entry for the date
var ErrDuplicateAttendance = errors.New("attendance already recorded for this date")

// CreateAttendance inserts an entry. A second entry for the same user and date fails with ErrDuplicateAttendance.
func (r *AttendanceRepository) CreateAttendance(a *models.Attendance) (*models.Attendance, error) {
	id, err := r.db.ExecReturningID("INSERT INTO attendance (user_id, date, status, remark) VALUES (?, ?, ?, ?)",
		a.UserID, a.Date, a.Status, a.Remark)
	if r.db.Dialect.IsUniqueViolation(err) {
		return nil, ErrDuplicateAttendance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create attendance: %w", err)
	}
	a.ID = id
	return a, nil
}

// GetAttendance retrieves one of the user's entries
func (r *AttendanceRepository) GetAttendance(id, userID int64) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := r.db.QueryRow("SELECT id, user_id, date, status, remark FROM attendance WHERE id = ? AND user_id = ?", id, userID).
		Scan(&a.ID, &a.UserID, &a.Date, &a.Status, &a.Remark)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// ListAttendance returns the user's entries, newest date first. A zero from or to leaves that side open.
func (r *AttendanceRepository) ListAttendance(userID int64, from, to time.Time) ([]models.Attendance, error) {
	query := "SELECT id, user_id, date, status, remark FROM attendance WHERE user_id = ?"
	args := []interface{}{userID}
	if !from.IsZero() {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	entries := []models.Attendance{}
	for rows.Next() {
		var a models.Attendance
		if err := rows.Scan(&a.ID, &a.UserID, &a.Date, &a.Status, &a.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// UpdateAttendance saves an entry's date, status and remark
func (r *AttendanceRepository) UpdateAttendance(a *models.Attendance) error {
	_, err := r.db.Exec("UPDATE attendance SET date = ?, status = ?, remark = ? WHERE id = ? AND user_id = ?",
		a.Date, a.Status, a.Remark, a.ID, a.UserID)
	if r.db.Dialect.IsUniqueViolation(err) {
		return ErrDuplicateAttendance
	}
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	return nil
}

// DeleteAttendance deletes one of the user's entries
func (r *AttendanceRepository) DeleteAttendance(id, userID int64) error {
	if _, err := r.db.Exec("DELETE FROM attendance WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	return nil
}
