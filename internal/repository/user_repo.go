package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familia/internal/database"
	"familia/internal/models"
)

// UserRepository handles database operations for users and their
// family back-references (user_families).
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository that runs every statement inside tx
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, username, email, password_hash, COALESCE(profile_picture, ''),
	COALESCE(current_family, ''), COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''),
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePicture,
		&user.CurrentFamily,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.FamilyIDs = []string{}
	return user, nil
}

// CreateUser inserts a new user. FamilyIDs and CurrentFamily are not written;
// membership only changes through the family back-reference methods.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, profile_picture, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullString(user.ProfilePicture),
		nullString(user.OAuthProvider),
		nullString(user.OAuthSubject),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID, including the family set.
// Returns nil, nil when the user does not exist.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	return r.getUser(ctx, query, id)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	return r.getUser(ctx, query, email)
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE oauth_provider = ? AND oauth_subject = ?"
	return r.getUser(ctx, query, provider, subject)
}

func (r *UserRepository) getUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	familyIDs, err := r.GetFamilyIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.FamilyIDs = familyIDs
	return user, nil
}

// GetUsersByIDs resolves a set of user IDs with one batched query for the
// users and one for their family sets. Unknown IDs are skipped; the result
// is unordered.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	args := stringArgs(ids)

	query := "SELECT " + userColumns + " FROM users WHERE id IN (" + database.Placeholders(len(ids)) + ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	index := make(map[string]int)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		index[user.ID] = len(users)
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	query = "SELECT user_id, family_id FROM user_families WHERE user_id IN (" + database.Placeholders(len(ids)) + ") ORDER BY joined_at ASC"
	refRows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user families: %w", err)
	}
	defer refRows.Close()

	for refRows.Next() {
		var userID, familyID string
		if err := refRows.Scan(&userID, &familyID); err != nil {
			return nil, fmt.Errorf("failed to scan user family: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].FamilyIDs = append(users[i].FamilyIDs, familyID)
		}
	}
	if err := refRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user families: %w", err)
	}

	return users, nil
}

// GetAllUsers retrieves every user ordered by creation time, without family sets
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile updates the username and email of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, id, username, email string) error {
	query := "UPDATE users SET username = ?, email = ?, updated_at = ? WHERE id = ?"
	return r.exec(ctx, "update user", query, username, email, now(), id)
}

// SetProfilePicture stores the public URL of the user's picture
func (r *UserRepository) SetProfilePicture(ctx context.Context, id, url string) error {
	query := "UPDATE users SET profile_picture = ?, updated_at = ? WHERE id = ?"
	return r.exec(ctx, "set profile picture", query, nullString(url), now(), id)
}

// SetCurrentFamily selects the user's current family. An empty familyID clears it.
func (r *UserRepository) SetCurrentFamily(ctx context.Context, id, familyID string) error {
	query := "UPDATE users SET current_family = ?, updated_at = ? WHERE id = ?"
	return r.exec(ctx, "set current family", query, nullString(familyID), now(), id)
}

// LinkOAuthProvider links an OAuth identity to an existing user
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, id, provider, subject string) error {
	query := "UPDATE users SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?"
	return r.exec(ctx, "link oauth provider", query, provider, subject, now(), id)
}

// GetFamilyIDs returns the user's back-reference set in join order
func (r *UserRepository) GetFamilyIDs(ctx context.Context, userID string) ([]string, error) {
	query := "SELECT family_id FROM user_families WHERE user_id = ? ORDER BY joined_at ASC"
	return queryStrings(ctx, r.db, "user families", query, userID)
}

// AddFamilyRef adds familyID to the user's back-reference set.
// Adding an existing entry is a no-op.
func (r *UserRepository) AddFamilyRef(ctx context.Context, userID, familyID string, joinedAt time.Time) error {
	query := r.db.GetDialect().InsertIgnoreQuery("user_families", "user_id", "family_id", "joined_at")
	return r.exec(ctx, "add user family", query, userID, familyID, joinedAt)
}

// RemoveFamilyRef deletes familyID from the user's back-reference set
func (r *UserRepository) RemoveFamilyRef(ctx context.Context, userID, familyID string) error {
	query := "DELETE FROM user_families WHERE user_id = ? AND family_id = ?"
	return r.exec(ctx, "remove user family", query, userID, familyID)
}

// GetAllFamilyRefs retrieves every back-reference row
func (r *UserRepository) GetAllFamilyRefs(ctx context.Context) ([]models.Membership, error) {
	query := "SELECT family_id, user_id, joined_at FROM user_families ORDER BY joined_at ASC"
	return queryMemberships(ctx, r.db, query)
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}
