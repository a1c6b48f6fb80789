package models

import "time"

// Group is a registration cohort gated by a secret code. A group can be
// claimed by exactly one team: IsAssigned flips false->true once, only
// through a successful allocation, and never back.
type Group struct {
	Number     string    `json:"number"`
	SecretCode string    `json:"-"` // Never serialize
	IsAssigned bool      `json:"is_assigned"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewGroup creates an unassigned group
func NewGroup(number, secret string) *Group {
	return &Group{
		Number:     number,
		SecretCode: secret,
		IsAssigned: false,
		CreatedAt:  time.Now().UTC(),
	}
}
