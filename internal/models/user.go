package models

import (
	"slices"
	"time"
)

// User represents an account in the system
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	FamilyIDs      []string  `json:"familyIds"`
	CurrentFamily  string    `json:"currentFamily,omitempty"`
	OAuthProvider  string    `json:"-"`
	OAuthSubject   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasFamily reports whether familyID is in the user's family set
func (u *User) HasFamily(familyID string) bool {
	return slices.Contains(u.FamilyIDs, familyID)
}

// HasCurrentFamily reports whether a current family is selected
func (u *User) HasCurrentFamily() bool {
	return u.CurrentFamily != ""
}
