package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Udhar directions
const (
	UdharGive = "GIVE"
	UdharTake = "TAKE"
)

// Udhar is an informal loan: money given to or taken from a person
type Udhar struct {
	ID         int64
	UserID     int64
	PersonName string
	Amount     decimal.Decimal
	Rate       *decimal.Decimal // percent per month
	Date       time.Time
	DueDate    *time.Time
	Reason     string
	Type       string
	IsClosed   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Repayments []Repayment
}

// TotalPaid sums all repayments
func (u *Udhar) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, r := range u.Repayments {
		total = total.Add(r.Amount)
	}
	return total
}

// Balance is the principal still outstanding, ignoring interest
func (u *Udhar) Balance() decimal.Decimal {
	return u.Amount.Sub(u.TotalPaid())
}

// Repayment is a partial or full payback of an udhar
type Repayment struct {
	ID        int64
	UdharID   int64
	Amount    decimal.Decimal
	Date      time.Time
	Note      string
	CreatedAt time.Time
}
