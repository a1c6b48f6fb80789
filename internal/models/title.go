package models

import "time"

// Title is a project topic claimable by exactly one team. The title text
// itself is the key; keys are exact pre-deduplicated strings, no case
// folding happens at match time.
type Title struct {
	Title     string    `json:"title"`
	Assigned  bool      `json:"assigned"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTitle creates an unassigned title
func NewTitle(title string) *Title {
	return &Title{
		Title:     title,
		Assigned:  false,
		CreatedAt: time.Now().UTC(),
	}
}
