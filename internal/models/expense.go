package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a spend entry, shared with the creator's family when they have one
type Expense struct {
	ID          int64
	FamilyID    *int64
	UserID      int64
	Username    string
	Amount      decimal.Decimal
	Category    string
	Date        time.Time
	Description string
	UUID        *string
	Items       []string
	Image       *string
	CreatedAt   time.Time
}
