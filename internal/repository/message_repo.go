package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// MessageRepository handles database operations for chat messages and read receipts
type MessageRepository struct {
	db *database.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageSelect = `
	SELECT m.id, m.family_id, m.sender_id, s.username, s.first_name, s.last_name,
	       m.content, m.image, m.created_at, m.message_type, m.is_deleted, m.is_edited, m.reply_to_id,
	       r.id, r.content, r.created_at, r.message_type,
	       rs.id, rs.username, rs.first_name, rs.last_name
	FROM messages m
	INNER JOIN users s ON s.id = m.sender_id
	LEFT JOIN messages r ON r.id = m.reply_to_id
	LEFT JOIN users rs ON rs.id = r.sender_id
`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	msg := &models.Message{}
	var (
		image                                sql.NullString
		replyToID                            sql.NullInt64
		replyID, replySenderID               sql.NullInt64
		replyContent, replyKind              sql.NullString
		replyCreated                         sql.NullTime
		replyUsername, replyFirst, replyLast sql.NullString
	)

	err := row.Scan(
		&msg.ID, &msg.FamilyID, &msg.SenderID, &msg.Sender.Username, &msg.Sender.FirstName, &msg.Sender.LastName,
		&msg.Content, &image, &msg.CreatedAt, &msg.Kind, &msg.IsDeleted, &msg.IsEdited, &replyToID,
		&replyID, &replyContent, &replyCreated, &replyKind,
		&replySenderID, &replyUsername, &replyFirst, &replyLast,
	)
	if err != nil {
		return nil, err
	}

	msg.Sender.ID = msg.SenderID
	if image.Valid {
		msg.Image = &image.String
	}
	if replyToID.Valid {
		msg.ReplyToID = &replyToID.Int64
	}
	if replyID.Valid {
		msg.ReplyTo = &models.RepliedMessage{
			ID:        replyID.Int64,
			Content:   replyContent.String,
			CreatedAt: replyCreated.Time,
			Kind:      models.MessageKind(replyKind.String),
			Sender: models.UserSummary{
				ID:        replySenderID.Int64,
				Username:  replyUsername.String,
				FirstName: replyFirst.String,
				LastName:  replyLast.String,
			},
		}
	}
	return msg, nil
}

// CreateMessage appends a message to its family's log
func (r *MessageRepository) CreateMessage(msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (family_id, sender_id, content, image, created_at, message_type, is_deleted, is_edited, reply_to_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, msg.FamilyID, msg.SenderID, msg.Content, msg.Image,
		msg.CreatedAt, string(msg.Kind), false, false, msg.ReplyToID)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return r.GetMessageByID(id)
}

// GetMessageByID retrieves a message with its sender, reply summary and read receipts
func (r *MessageRepository) GetMessageByID(id int64) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRow(messageSelect+"WHERE m.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	receipts, err := r.receiptsFor([]int64{msg.ID})
	if err != nil {
		return nil, err
	}
	msg.ReadReceipts = receipts[msg.ID]
	return msg, nil
}

// GetMessageFamilyID returns the family a message belongs to, or 0 when it does not exist
func (r *MessageRepository) GetMessageFamilyID(id int64) (int64, error) {
	var familyID int64
	err := r.db.QueryRow("SELECT family_id FROM messages WHERE id = ?", id).Scan(&familyID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get message family: %w", err)
	}
	return familyID, nil
}

// CountFamilyMessages counts the messages in a family
func (r *MessageRepository) CountFamilyMessages(familyID int64) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM messages WHERE family_id = ?", familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// ListFamilyMessages returns one page of a family's messages, newest first
func (r *MessageRepository) ListFamilyMessages(familyID int64, limit, offset int) ([]models.Message, error) {
	query := messageSelect + `
		WHERE m.family_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, familyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	ids := lo.Map(messages, func(m models.Message, _ int) int64 { return m.ID })
	receipts, err := r.receiptsFor(ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ReadReceipts = receipts[messages[i].ID]
	}
	return messages, nil
}

func (r *MessageRepository) receiptsFor(messageIDs []int64) (map[int64][]models.ReadReceipt, error) {
	result := make(map[int64][]models.ReadReceipt, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(messageIDs)), ", ")
	query := `
		SELECT rr.message_id, u.id, u.username, u.first_name, u.last_name, rr.read_at
		FROM message_read_receipts rr
		INNER JOIN users u ON u.id = rr.user_id
		WHERE rr.message_id IN (` + placeholders + `)
		ORDER BY rr.read_at ASC, rr.id ASC
	`
	args := lo.Map(messageIDs, func(id int64, _ int) interface{} { return id })

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query read receipts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rr models.ReadReceipt
		if err := rows.Scan(&rr.MessageID, &rr.User.ID, &rr.User.Username, &rr.User.FirstName, &rr.User.LastName, &rr.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan read receipt: %w", err)
		}
		result[rr.MessageID] = append(result[rr.MessageID], rr)
	}
	return result, rows.Err()
}

// UpdateMessageContent replaces the content and marks the message edited
func (r *MessageRepository) UpdateMessageContent(id int64, content string) error {
	if _, err := r.db.Exec("UPDATE messages SET content = ?, is_edited = ? WHERE id = ?", content, true, id); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// DeleteMessage hard deletes a message. Replies keep existing with reply_to cleared
// and read receipts go with the message. Returns false when nothing was deleted.
func (r *MessageRepository) DeleteMessage(id int64) (bool, error) {
	var deleted bool
	err := r.db.WithTx(func(tx *database.Tx) error {
		if _, err := tx.Exec("UPDATE messages SET reply_to_id = NULL WHERE reply_to_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear replies: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM message_read_receipts WHERE message_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete read receipts: %w", err)
		}
		result, err := tx.Exec("DELETE FROM messages WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read delete result: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// MarkAllRead creates a receipt for every family message the user has not read
// yet and returns how many were created. Existing receipts are skipped by the
// unique (message_id, user_id) key, so concurrent calls never duplicate a receipt.
func (r *MessageRepository) MarkAllRead(familyID, userID int64) (int64, error) {
	query := r.db.Dialect.InsertIgnore(`
		INSERT INTO message_read_receipts (message_id, user_id)
		SELECT m.id, u.id FROM messages m
		INNER JOIN users u ON u.id = ?
		WHERE m.family_id = ?
	`, "message_id", "user_id")

	result, err := r.db.Exec(query, userID, familyID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read mark-read result: %w", err)
	}
	return n, nil
}
