package repository

import (
	"context"
	"fmt"

	"familia/internal/database"
	"familia/internal/models"
)

// ConsistencyRepository finds rows where the two sides of a membership
// disagree. Membership is written on both sides in one transaction, so
// these queries normally return nothing.
type ConsistencyRepository struct {
	db database.Querier
}

// NewConsistencyRepository creates a new consistency repository
func NewConsistencyRepository(db database.Querier) *ConsistencyRepository {
	return &ConsistencyRepository{db: db}
}

// WithTx returns a repository that runs every statement inside tx
func (r *ConsistencyRepository) WithTx(tx *database.Tx) *ConsistencyRepository {
	return &ConsistencyRepository{db: tx}
}

// RosterWithoutBackRef returns roster rows of existing users whose
// user_families entry is missing.
func (r *ConsistencyRepository) RosterWithoutBackRef(ctx context.Context) ([]models.Membership, error) {
	query := `
		SELECT fm.family_id, fm.user_id, fm.joined_at
		FROM family_members fm
		INNER JOIN users u ON u.id = fm.user_id
		LEFT JOIN user_families uf ON uf.user_id = fm.user_id AND uf.family_id = fm.family_id
		WHERE uf.user_id IS NULL
	`
	return queryMemberships(ctx, r.db, query)
}

// BackRefWithoutRoster returns back-references to existing families whose
// roster row is missing.
func (r *ConsistencyRepository) BackRefWithoutRoster(ctx context.Context) ([]models.Membership, error) {
	query := `
		SELECT uf.family_id, uf.user_id, uf.joined_at
		FROM user_families uf
		INNER JOIN families f ON f.id = uf.family_id
		LEFT JOIN family_members fm ON fm.family_id = uf.family_id AND fm.user_id = uf.user_id
		WHERE fm.family_id IS NULL
	`
	return queryMemberships(ctx, r.db, query)
}

// DanglingBackRefs returns back-references to families that do not exist
func (r *ConsistencyRepository) DanglingBackRefs(ctx context.Context) ([]models.Membership, error) {
	query := `
		SELECT uf.family_id, uf.user_id, uf.joined_at
		FROM user_families uf
		LEFT JOIN families f ON f.id = uf.family_id
		WHERE f.id IS NULL
	`
	return queryMemberships(ctx, r.db, query)
}

// StaleCurrentFamilies returns users whose current family is not in their family set
func (r *ConsistencyRepository) StaleCurrentFamilies(ctx context.Context) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		WHERE u.current_family IS NOT NULL
		AND NOT EXISTS (
			SELECT 1 FROM user_families uf
			WHERE uf.user_id = u.id AND uf.family_id = u.current_family
		)
	`
	ids, err := queryStrings(ctx, r.db, "stale current families", query)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale current families: %w", err)
	}
	return ids, nil
}
