package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"familia/internal/chat"
	"familia/internal/database"
	"familia/internal/metrics"
	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/validation"
)

// ChatService exchanges direct messages. Each message is stored once in the
// sender's mailbox and once in the recipient's.
type ChatService struct {
	db          *database.DB
	mailboxRepo *repository.MailboxRepository
	notifier    chat.Notifier
	now         func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(db *database.DB, mailboxRepo *repository.MailboxRepository, notifier chat.Notifier) *ChatService {
	return &ChatService{
		db:          db,
		mailboxRepo: mailboxRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Send writes both copies of a message in one transaction and notifies
// both mailboxes. The caller may only send as itself.
func (s *ChatService) Send(ctx context.Context, caller, senderID, recipientID, text string) (*models.Message, error) {
	if caller == "" || caller != senderID {
		return nil, ErrNotAuthenticated
	}
	if recipientID == "" {
		return nil, validation.Error{Field: "recipient", Message: "recipient is required"}
	}
	if recipientID == senderID {
		return nil, validation.Error{Field: "recipient", Message: "cannot send a message to yourself"}
	}
	if err := validation.ValidateMessage(text); err != nil {
		return nil, err
	}

	sentAt := repository.Timestamp(s.now())
	outgoing := &models.Message{
		ID:      uuid.NewString(),
		Owner:   senderID,
		Peer:    recipientID,
		Sender:  senderID,
		Message: text,
		Time:    sentAt,
	}
	incoming := &models.Message{
		ID:      uuid.NewString(),
		Owner:   recipientID,
		Peer:    senderID,
		Sender:  senderID,
		Message: text,
		Time:    sentAt,
	}

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		mailbox := s.mailboxRepo.WithTx(tx)
		if err := mailbox.InsertMessage(ctx, outgoing); err != nil {
			return err
		}
		return mailbox.InsertMessage(ctx, incoming)
	})
	metrics.ChatSends.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChatWrite, err)
	}

	for _, key := range []chat.MailboxKey{
		{Owner: senderID, Peer: recipientID},
		{Owner: recipientID, Peer: senderID},
	} {
		if err := s.notifier.Publish(ctx, key); err != nil {
			slog.Warn("Failed to notify mailbox", "owner", key.Owner, "peer", key.Peer, "error", err)
		}
	}

	return outgoing, nil
}

// Subscribe watches selfID's mailbox for otherID. onUpdate receives the
// full ordered message list on the initial load and after every change.
// The returned subscription must be closed when no longer needed.
func (s *ChatService) Subscribe(ctx context.Context, selfID, otherID string, onUpdate func(chat.Snapshot)) (*chat.Subscription, error) {
	if selfID == "" {
		return nil, ErrNotAuthenticated
	}
	if otherID == "" {
		return nil, validation.Error{Field: "peer", Message: "peer is required"}
	}

	load := func(ctx context.Context) ([]models.Message, error) {
		return s.mailboxRepo.GetMessages(ctx, selfID, otherID)
	}
	return chat.Watch(ctx, s.notifier, chat.MailboxKey{Owner: selfID, Peer: otherID}, load, onUpdate)
}

// History returns selfID's mailbox for otherID ordered by time
func (s *ChatService) History(ctx context.Context, selfID, otherID string) ([]models.Message, error) {
	if selfID == "" {
		return nil, ErrNotAuthenticated
	}
	messages, err := s.mailboxRepo.GetMessages(ctx, selfID, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
