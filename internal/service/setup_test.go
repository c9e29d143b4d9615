package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"familia/internal/chat"
	"familia/internal/database"
	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/security"
	"familia/internal/storage"
	"familia/migrations"
)

type testEnv struct {
	db         *database.DB
	users      *repository.UserRepository
	families   *repository.FamilyRepository
	mailbox    *repository.MailboxRepository
	auth       *AuthService
	membership *MembershipService
	roster     *RosterService
	chat       *ChatService
	calendar   *CalendarService
	profile    *ProfileService
	reconciler *Reconciler
	backup     *BackupService
	uploadDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), migrations.FS))

	users := repository.NewUserRepository(db)
	families := repository.NewFamilyRepository(db)
	mailbox := repository.NewMailboxRepository(db)
	calendar := repository.NewCalendarRepository(db)
	consistency := repository.NewConsistencyRepository(db)

	uploadDir := t.TempDir()
	pictures, err := storage.NewLocalStore(uploadDir, "/uploads")
	require.NoError(t, err)

	membership := NewMembershipService(db, users, families)
	return &testEnv{
		db:         db,
		users:      users,
		families:   families,
		mailbox:    mailbox,
		auth:       NewAuthService(users, security.NewJWTManager("test-secret", time.Hour)),
		membership: membership,
		roster:     NewRosterService(users, families),
		chat:       NewChatService(db, mailbox, chat.NewLocalNotifier()),
		calendar:   NewCalendarService(calendar, membership),
		profile:    NewProfileService(users, pictures, 1024),
		reconciler: NewReconciler(db, users, families, consistency),
		backup:     NewBackupService(db),
		uploadDir:  uploadDir,
	}
}

// register creates a user with a unique email and returns it
func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), username, username+"@example.com", "password123", "")
	require.NoError(t, err)
	return user
}

// exec runs raw SQL, used to break invariants on purpose
func (e *testEnv) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := e.db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
