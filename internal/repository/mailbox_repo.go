package repository

import (
	"context"
	"fmt"

	"familia/internal/database"
	"familia/internal/models"
)

// MailboxRepository handles database operations for mailbox message copies
type MailboxRepository struct {
	db database.Querier
}

// NewMailboxRepository creates a new mailbox repository
func NewMailboxRepository(db database.Querier) *MailboxRepository {
	return &MailboxRepository{db: db}
}

// WithTx returns a repository that runs every statement inside tx
func (r *MailboxRepository) WithTx(tx *database.Tx) *MailboxRepository {
	return &MailboxRepository{db: tx}
}

// InsertMessage stores one copy of a message in msg.Owner's mailbox for msg.Peer
func (r *MailboxRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO mailbox_messages (id, owner_id, peer_id, sender_id, message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.Owner, msg.Peer, msg.Sender, msg.Message, msg.Time)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessages returns owner's mailbox for peer ordered by time ascending.
// Messages with equal timestamps are ordered by id.
func (r *MailboxRepository) GetMessages(ctx context.Context, ownerID, peerID string) ([]models.Message, error) {
	query := `
		SELECT id, owner_id, peer_id, sender_id, message, sent_at
		FROM mailbox_messages
		WHERE owner_id = ? AND peer_id = ?
		ORDER BY sent_at ASC, id ASC
	`
	return r.queryMessages(ctx, query, ownerID, peerID)
}

// GetAllMessages returns every stored copy, for backups
func (r *MailboxRepository) GetAllMessages(ctx context.Context) ([]models.Message, error) {
	query := `
		SELECT id, owner_id, peer_id, sender_id, message, sent_at
		FROM mailbox_messages
		ORDER BY sent_at ASC, id ASC
	`
	return r.queryMessages(ctx, query)
}

func (r *MailboxRepository) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Owner, &msg.Peer, &msg.Sender, &msg.Message, &msg.Time); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
