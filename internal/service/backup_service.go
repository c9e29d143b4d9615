package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"familia/internal/database"
	"familia/internal/models"
	"familia/internal/repository"
)

// BackupVersion identifies the backup format
const BackupVersion = "2.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version       string                 `json:"version"`
	ExportedAt    time.Time              `json:"exported_at"`
	DatabaseType  string                 `json:"database_type"`
	Users         []UserBackup           `json:"users"`
	Families      []models.Family        `json:"families"`
	FamilyMembers []models.Membership    `json:"family_members"`
	UserFamilies  []models.Membership    `json:"user_families"`
	Messages      []MessageBackup        `json:"messages"`
	Events        []models.CalendarEvent `json:"events"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	ProfilePicture string    `json:"profile_picture"`
	CurrentFamily  string    `json:"current_family"`
	OAuthProvider  string    `json:"oauth_provider"`
	OAuthSubject   string    `json:"oauth_subject"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MessageBackup represents one mailbox copy for backup
type MessageBackup struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	Peer    string    `json:"peer"`
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the database as JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	slog.Info("Starting database export")

	users := repository.NewUserRepository(s.db)
	families := repository.NewFamilyRepository(s.db)
	mailbox := repository.NewMailboxRepository(s.db)
	calendar := repository.NewCalendarRepository(s.db)

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	allUsers, err := users.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range allUsers {
		backup.Users = append(backup.Users, UserBackup{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			PasswordHash:   u.PasswordHash,
			ProfilePicture: u.ProfilePicture,
			CurrentFamily:  u.CurrentFamily,
			OAuthProvider:  u.OAuthProvider,
			OAuthSubject:   u.OAuthSubject,
			CreatedAt:      u.CreatedAt,
			UpdatedAt:      u.UpdatedAt,
		})
	}

	if backup.Families, err = families.GetAllFamilies(ctx); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if backup.FamilyMembers, err = families.GetAllMembers(ctx); err != nil {
		return fmt.Errorf("failed to export family members: %w", err)
	}
	if backup.UserFamilies, err = users.GetAllFamilyRefs(ctx); err != nil {
		return fmt.Errorf("failed to export user families: %w", err)
	}

	messages, err := mailbox.GetAllMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to export messages: %w", err)
	}
	for _, m := range messages {
		backup.Messages = append(backup.Messages, MessageBackup{
			ID: m.ID, Owner: m.Owner, Peer: m.Peer, Sender: m.Sender, Message: m.Message, Time: m.Time,
		})
	}

	if backup.Events, err = calendar.GetAllEvents(ctx); err != nil {
		return fmt.Errorf("failed to export events: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("Database export completed",
		"users", len(backup.Users),
		"families", len(backup.Families),
		"messages", len(backup.Messages),
		"events", len(backup.Events))
	return nil
}

// clearOrder lists tables in the order they are emptied before an import
var clearOrder = []string{"calendar_events", "mailbox_messages", "user_families", "family_members", "families", "users"}

// Import restores a backup in one transaction. With clear set, existing
// rows are deleted first; otherwise conflicting rows abort the import.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	slog.Info("Starting database import", "version", backup.Version, "exported_at", backup.ExportedAt, "clear", clear)

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if clear {
			for _, table := range clearOrder {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
		}

		users := repository.NewUserRepository(tx)
		families := repository.NewFamilyRepository(tx)
		mailbox := repository.NewMailboxRepository(tx)
		calendar := repository.NewCalendarRepository(tx)

		for _, u := range backup.Users {
			user := &models.User{
				ID:             u.ID,
				Username:       u.Username,
				Email:          u.Email,
				PasswordHash:   u.PasswordHash,
				ProfilePicture: u.ProfilePicture,
				OAuthProvider:  u.OAuthProvider,
				OAuthSubject:   u.OAuthSubject,
				CreatedAt:      u.CreatedAt,
				UpdatedAt:      u.UpdatedAt,
			}
			if err := users.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to import user %s: %w", u.ID, err)
			}
			if u.CurrentFamily != "" {
				if err := users.SetCurrentFamily(ctx, u.ID, u.CurrentFamily); err != nil {
					return err
				}
			}
		}

		for i := range backup.Families {
			if err := families.CreateFamily(ctx, &backup.Families[i]); err != nil {
				return fmt.Errorf("failed to import family %s: %w", backup.Families[i].ID, err)
			}
		}
		for _, m := range backup.FamilyMembers {
			if err := families.AddMember(ctx, m.FamilyID, m.UserID, m.JoinedAt); err != nil {
				return err
			}
		}
		for _, m := range backup.UserFamilies {
			if err := users.AddFamilyRef(ctx, m.UserID, m.FamilyID, m.JoinedAt); err != nil {
				return err
			}
		}

		for _, m := range backup.Messages {
			msg := &models.Message{ID: m.ID, Owner: m.Owner, Peer: m.Peer, Sender: m.Sender, Message: m.Message, Time: m.Time}
			if err := mailbox.InsertMessage(ctx, msg); err != nil {
				return fmt.Errorf("failed to import message %s: %w", m.ID, err)
			}
		}

		for i := range backup.Events {
			if err := calendar.CreateEvent(ctx, &backup.Events[i]); err != nil {
				return fmt.Errorf("failed to import event %s: %w", backup.Events[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Database import completed successfully")
	return nil
}
