package models

import "time"

// MessageKind distinguishes text, image and system chat messages
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindImage  MessageKind = "image"
	MessageKindSystem MessageKind = "system"
)

// Valid reports whether k is a known message kind
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindSystem:
		return true
	}
	return false
}

// EditWindow is how long after sending a message its sender may still edit it
const EditWindow = 15 * time.Minute

// Message is one entry in a family's chat log.
// FamilyID and SenderID never change after creation.
type Message struct {
	ID        int64
	FamilyID  int64
	SenderID  int64
	Sender    UserSummary
	Content   string
	Image     *string
	CreatedAt time.Time
	Kind      MessageKind
	IsDeleted bool
	IsEdited  bool
	ReplyToID *int64

	ReplyTo      *RepliedMessage
	ReadReceipts []ReadReceipt
}

// HasText reports whether the message carries any text content
func (m *Message) HasText() bool {
	return m.Content != ""
}

// WithinEditWindow reports whether now is still inside the edit window
func (m *Message) WithinEditWindow(now time.Time) bool {
	return now.Sub(m.CreatedAt) <= EditWindow
}

// RepliedMessage is the summary of a message another message replies to
type RepliedMessage struct {
	ID        int64
	Content   string
	Sender    UserSummary
	CreatedAt time.Time
	Kind      MessageKind
}

// ReadReceipt records that a user has seen a message
type ReadReceipt struct {
	MessageID int64
	User      UserSummary
	ReadAt    time.Time
}
