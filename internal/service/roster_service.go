package service

import (
	"context"
	"fmt"

	"familia/internal/models"
	"familia/internal/repository"
)

// RosterService resolves family rosters into user profiles
type RosterService struct {
	userRepo   *repository.UserRepository
	familyRepo *repository.FamilyRepository
}

// NewRosterService creates a new roster service
func NewRosterService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository) *RosterService {
	return &RosterService{
		userRepo:   userRepo,
		familyRepo: familyRepo,
	}
}

// FetchFamilyMembers returns the profiles of every roster member, in no
// particular order. An empty roster is an error, never an empty result.
func (s *RosterService) FetchFamilyMembers(ctx context.Context, familyID string) ([]models.User, error) {
	family, err := s.familyRepo.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to read family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	if len(family.Members) == 0 {
		return nil, ErrEmptyRoster
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, family.Members)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterResolution, err)
	}
	if len(users) == 0 {
		return nil, ErrNoUsersResolved
	}
	return users, nil
}

// ChatPartners returns the members of the caller's current family other
// than the caller.
func (s *RosterService) ChatPartners(ctx context.Context, caller string) ([]models.User, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.userRepo.GetUserByID(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.HasCurrentFamily() {
		return nil, ErrNoCurrentFamily
	}

	members, err := s.FetchFamilyMembers(ctx, user.CurrentFamily)
	if err != nil {
		return nil, err
	}

	partners := make([]models.User, 0, len(members))
	for _, member := range members {
		if member.ID != caller {
			partners = append(partners, member)
		}
	}
	return partners, nil
}
