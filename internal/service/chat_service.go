package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"selfmanager/internal/models"
	"selfmanager/internal/notify"
	"selfmanager/internal/repository"
	"selfmanager/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Notifier fans a notification out to users without blocking the caller
type Notifier interface {
	Dispatch(recipients []int64, n notify.Notification)
}

// ChatService handles family chat: membership checks, the message log,
// read receipts and new-message notifications
type ChatService struct {
	messages *repository.MessageRepository
	families *repository.FamilyRepository
	notifier Notifier
	now      func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(messages *repository.MessageRepository, families *repository.FamilyRepository, notifier Notifier) *ChatService {
	return &ChatService{
		messages: messages,
		families: families,
		notifier: notifier,
		now:      time.Now,
	}
}

// IsMember reports whether the user owns the family or is one of its members
func (s *ChatService) IsMember(userID, familyID int64) (bool, error) {
	ok, err := s.families.IsMember(userID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to verify family access: %w", err)
	}
	return ok, nil
}

func (s *ChatService) getFamily(familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// MessagePage is one page of a family's messages, newest first
type MessagePage struct {
	Count    int
	Page     int
	PageSize int
	Messages []models.Message
}

// HasNext reports whether a later page exists
func (p *MessagePage) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

// HasPrevious reports whether an earlier page exists
func (p *MessagePage) HasPrevious() bool {
	return p.Page > 1
}

// NormalizePageSize applies the default and the upper bound to a requested page size
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// ListMessages returns a page of the family's messages. Non-members get an empty page.
func (s *ChatService) ListMessages(userID, familyID int64, page, pageSize int) (*MessagePage, error) {
	if _, err := s.getFamily(familyID); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, ErrPageNotFound
	}
	pageSize = NormalizePageSize(pageSize)
	result := &MessagePage{Page: page, PageSize: pageSize, Messages: []models.Message{}}

	member, err := s.IsMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if member {
		if result.Count, err = s.messages.CountFamilyMessages(familyID); err != nil {
			return nil, err
		}
	}

	// An empty first page is valid, anything past the last page is not
	if page > 1 && (page-1)*pageSize >= result.Count {
		return nil, ErrPageNotFound
	}
	if result.Count == 0 {
		return result, nil
	}

	result.Messages, err = s.messages.ListFamilyMessages(familyID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NewMessage is the content of a message being sent
type NewMessage struct {
	Content   string
	Kind      models.MessageKind
	Image     *string
	ReplyToID *int64
}

// SendMessage appends a message to the family chat and notifies the other members
func (s *ChatService) SendMessage(userID, familyID int64, in NewMessage) (*models.Message, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	member, err := s.IsMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, deny(ReasonNotMember, "You are not a member of this family.")
	}

	if err := s.validateNewMessage(familyID, &in); err != nil {
		return nil, err
	}

	msg, err := s.messages.CreateMessage(&models.Message{
		FamilyID:  familyID,
		SenderID:  userID,
		Content:   in.Content,
		Image:     in.Image,
		Kind:      in.Kind,
		ReplyToID: in.ReplyToID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.notifyNewMessage(family, msg)
	return msg, nil
}

func (s *ChatService) validateNewMessage(familyID int64, in *NewMessage) error {
	errs := validation.Errors{}

	if in.Kind == "" {
		in.Kind = models.MessageKindText
		if in.Image != nil && in.Content == "" {
			in.Kind = models.MessageKindImage
		}
	}
	if !in.Kind.Valid() {
		errs.Add("message_type", fmt.Sprintf("\"%s\" is not a valid choice.", in.Kind))
	}
	if strings.TrimSpace(in.Content) == "" && in.Image == nil {
		errs.Add("content", "A message needs text or an image.")
	}

	if in.ReplyToID != nil {
		replyFamily, err := s.messages.GetMessageFamilyID(*in.ReplyToID)
		if err != nil {
			return err
		}
		if replyFamily != familyID {
			errs.Add("reply_to", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *in.ReplyToID))
		}
	}
	return errs.Err()
}

// PostSystemMessage appends a system announcement to the family chat
func (s *ChatService) PostSystemMessage(familyID, senderID int64, content string) (*models.Message, error) {
	msg, err := s.messages.CreateMessage(&models.Message{
		FamilyID:  familyID,
		SenderID:  senderID,
		Content:   content,
		Kind:      models.MessageKindSystem,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post system message: %w", err)
	}
	return msg, nil
}

// notifyNewMessage pushes msg to every member except its sender
func (s *ChatService) notifyNewMessage(family *models.Family, msg *models.Message) {
	recipients := lo.Without(lo.Uniq(append([]int64{family.OwnerID}, family.MemberIDs...)), msg.SenderID)
	if len(recipients) == 0 {
		return
	}

	s.notifier.Dispatch(recipients, NewMessageNotification(family, msg))
}

// NewMessageNotification builds the push payload announcing msg
func NewMessageNotification(family *models.Family, msg *models.Message) notify.Notification {
	senderName := msg.Sender.FirstName
	if senderName == "" {
		senderName = msg.Sender.Username
	}
	body := msg.Content
	if !msg.HasText() {
		body = "Sent an image"
	}

	return notify.Notification{
		Title: fmt.Sprintf("%s in %s", senderName, family.Name),
		Body:  body,
		Data: map[string]string{
			"type":       "chat_message",
			"family_id":  strconv.FormatInt(family.ID, 10),
			"message_id": strconv.FormatInt(msg.ID, 10),
			"sender_id":  strconv.FormatInt(msg.SenderID, 10),
		},
	}
}

// GetMessage returns a message the caller may see: its sender or a member of its family
func (s *ChatService) GetMessage(userID, messageID int64) (*models.Message, error) {
	msg, err := s.messages.GetMessageByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID == userID {
		return msg, nil
	}

	member, err := s.IsMember(userID, msg.FamilyID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// CheckEditable decides whether callerID may edit msg at now
func CheckEditable(msg *models.Message, callerID int64, now time.Time) error {
	if msg.SenderID != callerID {
		return deny(ReasonNotSender, "You can only edit your own messages.")
	}
	if msg.IsDeleted {
		return deny(ReasonMessageDeleted, "Cannot edit a deleted message.")
	}
	if !msg.WithinEditWindow(now) {
		return deny(ReasonEditWindowExpired, "You can only edit messages within 15 minutes of sending.")
	}
	return nil
}

// EditMessage replaces the content of the caller's own recent message
func (s *ChatService) EditMessage(userID, messageID int64, content string) (*models.Message, error) {
	msg, err := s.messages.GetMessageByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	if err := CheckEditable(msg, userID, s.now()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" && msg.Image == nil {
		return nil, validation.FieldError("content", "A message needs text or an image.")
	}

	if err := s.messages.UpdateMessageContent(messageID, content); err != nil {
		return nil, err
	}
	return s.messages.GetMessageByID(messageID)
}

// DeleteMessage hard deletes the caller's own message
func (s *ChatService) DeleteMessage(userID, messageID int64) error {
	msg, err := s.messages.GetMessageByID(messageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return deny(ReasonNotSender, "You can only delete your own messages.")
	}

	deleted, err := s.messages.DeleteMessage(messageID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMessageNotFound
	}
	log.Printf("Message %d deleted by user %d", messageID, userID)
	return nil
}

// MarkRead records that the user has read every message in the family.
// It returns the number of messages newly marked.
func (s *ChatService) MarkRead(userID, familyID int64) (int64, error) {
	if _, err := s.getFamily(familyID); err != nil {
		return 0, err
	}
	member, err := s.IsMember(userID, familyID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, deny(ReasonNotMember, "You are not a member of this family.")
	}

	return s.messages.MarkAllRead(familyID, userID)
}
