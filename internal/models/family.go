package models

import (
	"slices"
	"time"
)

// Family represents a group of users sharing a roster, chat partners and a calendar
type Family struct {
	ID         string    `json:"id"`
	FamilyName string    `json:"familyName"`
	Members    []string  `json:"members"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasMember reports whether userID is on the roster
func (f *Family) HasMember(userID string) bool {
	return slices.Contains(f.Members, userID)
}

// Membership is one row of either membership table
type Membership struct {
	FamilyID string    `json:"familyId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}
