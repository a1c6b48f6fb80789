package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxMembers bounds the member list excluding the leader.
const MaxMembers = 5

// Member is one non-leader participant on a team.
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Team is the registration record created for an authorized leader and the
// (group, title) pair they claimed. Teams are created exactly once by a
// successful allocation and never mutated or deleted afterwards.
type Team struct {
	ID           string    `json:"id"`
	LeaderEmail  string    `json:"leader_email"`
	LeaderName   string    `json:"leader_name,omitempty"`
	College      string    `json:"college,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	TeamName     string    `json:"team_name,omitempty"`
	Members      []Member  `json:"members"`
	GroupNumber  string    `json:"group_number"`
	ProjectTitle string    `json:"project_title"`
	LocationMode string    `json:"location_mode,omitempty"`
	Confirmation string    `json:"confirmation_code"`
	RegisteredAt time.Time `json:"registered_at"`
}

// TeamKey derives the team identifier from the leader's email address.
// Dots are replaced with commas so the key stays path- and map-safe while
// remaining reversible ("a.b@x.com" -> "a,b@x,com").
func TeamKey(leaderEmail string) string {
	return strings.ReplaceAll(strings.TrimSpace(leaderEmail), ".", ",")
}

// NewConfirmationCode generates the short reference code stamped on a team
// at registration time.
func NewConfirmationCode() string {
	return uuid.New().String()[:12]
}
