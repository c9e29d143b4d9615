package service

import (
	"context"
	"fmt"
	"strings"

	"familia/internal/validation"
)

// InvitationSender delivers family invitations
type InvitationSender interface {
	SendFamilyInvitation(ctx context.Context, toEmail, inviterName, familyName, familyID string) error
}

// InvitationService invites people to the caller's current family
type InvitationService struct {
	membership *MembershipService
	sender     InvitationSender
}

// NewInvitationService creates a new invitation service
func NewInvitationService(membership *MembershipService, sender InvitationSender) *InvitationService {
	return &InvitationService{membership: membership, sender: sender}
}

// InviteByEmail sends the join link of the caller's current family to email
func (s *InvitationService) InviteByEmail(ctx context.Context, caller, email string) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := s.membership.GetUser(ctx, caller)
	if err != nil {
		return err
	}
	if !user.HasCurrentFamily() {
		return ErrNoCurrentFamily
	}
	family, err := s.membership.GetFamily(ctx, user.CurrentFamily)
	if err != nil {
		return err
	}

	if err := s.sender.SendFamilyInvitation(ctx, email, user.Username, family.FamilyName, family.ID); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}
	return nil
}
