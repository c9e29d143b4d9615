package service

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTransaction      = errors.New("transaction failed")
	ErrFamilyNotFound   = errors.New("family not found")
	ErrEmptyRoster      = errors.New("family has no members")
	ErrRosterResolution = errors.New("failed to resolve family members")
	ErrNoUsersResolved  = errors.New("no users resolved for family members")
	ErrChatWrite        = errors.New("failed to write chat message")

	ErrUserNotFound       = errors.New("user not found")
	ErrNotFamilyMember    = errors.New("user is not a member of this family")
	ErrNoCurrentFamily    = errors.New("no current family selected")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
