package models

import "time"

// Family is a group of users sharing chat and expenses
type Family struct {
	ID               int64
	Name             string
	FamilyCode       string
	OwnerID          int64
	OwnerUsername    string
	AllowJoinViaLink bool
	MemberIDs        []int64
	CreatedAt        time.Time
}

// FamilyMember represents the relationship between a user and a family
type FamilyMember struct {
	ID        int64
	FamilyID  int64
	UserID    int64
	Username  string
	FirstName string
	JoinedAt  time.Time
}

// Join request states
const (
	JoinRequestPending  = "pending"
	JoinRequestAccepted = "accepted"
	JoinRequestRejected = "rejected"
)

// JoinRequest is a pending or decided request to join a family by code
type JoinRequest struct {
	ID         int64
	FamilyID   int64
	FamilyName string
	UserID     int64
	Username   string
	FirstName  string
	LastName   string
	Status     string
	CreatedAt  time.Time
}
