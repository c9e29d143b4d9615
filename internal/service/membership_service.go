package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"familia/internal/database"
	"familia/internal/metrics"
	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/validation"
)

// MembershipService creates and joins families. Membership is recorded on
// both sides (the family roster and the user's family set) and both sides
// are always written in one transaction.
type MembershipService struct {
	db         *database.DB
	userRepo   *repository.UserRepository
	familyRepo *repository.FamilyRepository
	now        func() time.Time
}

// NewMembershipService creates a new membership service
func NewMembershipService(db *database.DB, userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository) *MembershipService {
	return &MembershipService{
		db:         db,
		userRepo:   userRepo,
		familyRepo: familyRepo,
		now:        time.Now,
	}
}

// CreateFamily creates a family whose only member is the caller and makes
// it the caller's current family.
func (s *MembershipService) CreateFamily(ctx context.Context, caller, familyName string) (*models.Family, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	familyName = strings.TrimSpace(familyName)
	if err := validation.ValidateName(familyName); err != nil {
		return nil, err
	}

	createdAt := repository.Timestamp(s.now())
	family := &models.Family{
		ID:         uuid.NewString(),
		FamilyName: familyName,
		Members:    []string{caller},
		CreatedAt:  createdAt,
	}

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		users := s.userRepo.WithTx(tx)
		families := s.familyRepo.WithTx(tx)

		user, err := users.GetUserByID(ctx, caller)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if err := families.CreateFamily(ctx, family); err != nil {
			return err
		}
		if err := families.AddMember(ctx, family.ID, caller, createdAt); err != nil {
			return err
		}
		if err := users.AddFamilyRef(ctx, caller, family.ID, createdAt); err != nil {
			return err
		}
		return users.SetCurrentFamily(ctx, caller, family.ID)
	})
	metrics.MembershipOps.WithLabelValues("create_family", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%w: create family: %w", ErrTransaction, err)
	}

	slog.Info("Family created", "family_id", family.ID, "user_id", caller)
	return family, nil
}

// JoinFamily adds the caller to a family's roster and the family to the
// caller's family set, then makes it the current family. Joining a family
// twice changes nothing but the current family.
func (s *MembershipService) JoinFamily(ctx context.Context, caller, familyID string) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	if familyID == "" {
		return ErrFamilyNotFound
	}

	joinedAt := repository.Timestamp(s.now())
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		users := s.userRepo.WithTx(tx)
		families := s.familyRepo.WithTx(tx)

		family, err := families.GetFamilyByID(ctx, familyID)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrFamilyNotFound
		}

		user, err := users.GetUserByID(ctx, caller)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if err := families.AddMember(ctx, familyID, caller, joinedAt); err != nil {
			return err
		}
		if err := users.AddFamilyRef(ctx, caller, familyID, joinedAt); err != nil {
			return err
		}
		return users.SetCurrentFamily(ctx, caller, familyID)
	})
	metrics.MembershipOps.WithLabelValues("join_family", metrics.Result(err)).Inc()
	if errors.Is(err, ErrFamilyNotFound) {
		return ErrFamilyNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: join family: %w", ErrTransaction, err)
	}

	slog.Info("Family joined", "family_id", familyID, "user_id", caller)
	return nil
}

// SwitchFamily selects one of the caller's families as current
func (s *MembershipService) SwitchFamily(ctx context.Context, caller, familyID string) error {
	if caller == "" {
		return ErrNotAuthenticated
	}

	user, err := s.GetUser(ctx, caller)
	if err != nil {
		return err
	}
	if !user.HasFamily(familyID) {
		return ErrNotFamilyMember
	}

	err = s.userRepo.SetCurrentFamily(ctx, caller, familyID)
	metrics.MembershipOps.WithLabelValues("switch_family", metrics.Result(err)).Inc()
	return err
}

// GetUser retrieves a user with their family set
func (s *MembershipService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetFamily retrieves a family with its roster
func (s *MembershipService) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// VerifyFamilyAccess checks that a user is on a family's roster
func (s *MembershipService) VerifyFamilyAccess(ctx context.Context, userID, familyID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	isMember, err := s.familyRepo.IsFamilyMember(ctx, userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify family access: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}
