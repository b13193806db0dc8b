package models

import "time"

// Attendance is one day's attendance entry; at most one per user per date
type Attendance struct {
	ID     int64
	UserID int64
	Date   time.Time
	Status string // e.g. FULL-DAY, HALF-DAY
	Remark *string
}

// Note is a personal note
type Note struct {
	ID        int64
	UserID    int64
	Title     string
	Content   string
	ColorID   int
	IsPinned  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
