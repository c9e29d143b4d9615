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

// FamilyRepository handles database operations for families and their
// rosters (family_members).
type FamilyRepository struct {
	db database.Querier
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.Querier) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository that runs every statement inside tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily inserts the family row. Members are added separately.
func (r *FamilyRepository) CreateFamily(ctx context.Context, family *models.Family) error {
	query := "INSERT INTO families (id, family_name, created_at) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, family.ID, family.FamilyName, family.CreatedAt); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// GetFamilyByID retrieves a family with its roster.
// Returns nil, nil when the family does not exist.
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID string) (*models.Family, error) {
	query := "SELECT id, family_name, created_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&family.ID,
		&family.FamilyName,
		&family.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	members, err := r.GetMemberIDs(ctx, familyID)
	if err != nil {
		return nil, err
	}
	family.Members = members
	return family, nil
}

// GetAllFamilies retrieves every family without rosters
func (r *FamilyRepository) GetAllFamilies(ctx context.Context) ([]models.Family, error) {
	query := "SELECT id, family_name, created_at FROM families ORDER BY created_at ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		family := models.Family{Members: []string{}}
		if err := rows.Scan(&family.ID, &family.FamilyName, &family.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

// AddMember adds userID to the family roster. Adding an existing member is a no-op.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID string, joinedAt time.Time) error {
	query := r.db.GetDialect().InsertIgnoreQuery("family_members", "family_id", "user_id", "joined_at")
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, joinedAt); err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// GetMemberIDs returns the roster of a family in join order
func (r *FamilyRepository) GetMemberIDs(ctx context.Context, familyID string) ([]string, error) {
	query := "SELECT user_id FROM family_members WHERE family_id = ? ORDER BY joined_at ASC"
	return queryStrings(ctx, r.db, "family members", query, familyID)
}

// IsFamilyMember checks if a user is on a family's roster
func (r *FamilyRepository) IsFamilyMember(ctx context.Context, userID, familyID string) (bool, error) {
	query := "SELECT COUNT(*) FROM family_members WHERE user_id = ? AND family_id = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// GetAllMembers retrieves every roster row
func (r *FamilyRepository) GetAllMembers(ctx context.Context) ([]models.Membership, error) {
	query := "SELECT family_id, user_id, joined_at FROM family_members ORDER BY joined_at ASC"
	return queryMemberships(ctx, r.db, query)
}
