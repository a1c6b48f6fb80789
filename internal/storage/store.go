package storage

import (
	"context"
	"errors"

	"github.com/hackfest-platform/registration-engine/internal/models"
)

// Common errors
var (
	// ErrDuplicate is returned when seeding a group or title whose key
	// already exists.
	ErrDuplicate = errors.New("record already exists")

	// ErrContention is returned by Allocate when the bounded retries for
	// concurrent-writer conflicts are exhausted.
	ErrContention = errors.New("allocation aborted: store contention")
)

// AllocationTx is the store as seen from inside one atomic allocation cycle.
// Every read observes the snapshot the cycle started from; every write is
// staged and becomes visible only if the cycle commits. Returning an error
// from the cycle discards all staged writes.
//
// Lookups return (nil, nil) when the record does not exist.
type AllocationTx interface {
	GetGroup(ctx context.Context, number string) (*models.Group, error)
	GetTitle(ctx context.Context, title string) (*models.Title, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)

	MarkGroupAssigned(ctx context.Context, number string) error
	MarkTitleAssigned(ctx context.Context, title string) error
	CreateTeam(ctx context.Context, team *models.Team) error
}

// Store is the single authoritative ledger of groups, titles and teams.
// Allocate is the only primitive allowed to mutate more than one entity:
// it runs fn as an all-or-nothing unit and re-runs the whole cycle from a
// fresh snapshot when a concurrent writer committed mid-flight, up to a
// bounded number of attempts, after which it reports ErrContention.
type Store interface {
	Allocate(ctx context.Context, fn func(tx AllocationTx) error) error

	// Single-entity reads; return (nil, nil) when absent.
	GetGroup(ctx context.Context, number string) (*models.Group, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)

	ListGroups(ctx context.Context) ([]*models.Group, error)
	ListTitles(ctx context.Context) ([]*models.Title, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)

	// Seeding writes, used by the admin surface and the seed loader.
	// Both return ErrDuplicate when the key is already present.
	CreateGroup(ctx context.Context, group *models.Group) error
	CreateTitle(ctx context.Context, title *models.Title) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
