package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hackfest-platform/registration-engine/internal/models"
	"github.com/hackfest-platform/registration-engine/internal/storage"
	"github.com/hackfest-platform/registration-engine/internal/watch"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid registration request")
	ErrGroupNotFound  = errors.New("group not found")
	ErrInvalidSecret  = errors.New("invalid secret code")
	ErrGroupAssigned  = errors.New("group already assigned")
	ErrTitleNotFound  = errors.New("project title not found")
	ErrTitleAssigned  = errors.New("project title already taken")
	ErrDuplicateTeam  = errors.New("leader already registered a team")
	ErrTeamNotFound   = errors.New("team not found")
	ErrGroupExists    = errors.New("group already exists")
	ErrTitleExists    = errors.New("title already exists")
)

// Engine decides admit/reject for registration requests and, on admit,
// claims the (group, title) pair while creating the team, as one atomic
// unit against the store.
type Engine interface {
	// ValidateSecret is the read-only pre-check used by the client form.
	// It does not reserve the group; Register re-validates everything.
	ValidateSecret(ctx context.Context, groupNumber, secretCode string) error

	// Register performs the atomic allocation.
	Register(ctx context.Context, req models.RegistrationRequest) (*models.Team, error)

	// Registration returns the team owned by a leader email, or
	// ErrTeamNotFound.
	Registration(ctx context.Context, leaderEmail string) (*models.Team, error)

	// Admin seeding and listings.
	AddGroup(ctx context.Context, number, secret string) (*models.Group, error)
	AddTitle(ctx context.Context, title string) (*models.Title, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	ListTitles(ctx context.Context) ([]*models.Title, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)

	Ping(ctx context.Context) error
	Close() error
}

// Invalidator is the slice of the title cache the engine needs: dropping
// the cached catalog after a title's availability changed.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// StoreEngine implements Engine on top of a transactional Store
type StoreEngine struct {
	store storage.Store
	hub   *watch.Hub
	cache Invalidator
}

// NewEngine creates a new StoreEngine. hub and cache may be nil.
func NewEngine(store storage.Store, hub *watch.Hub, cache Invalidator) *StoreEngine {
	return &StoreEngine{
		store: store,
		hub:   hub,
		cache: cache,
	}
}

// ValidateSecret checks that a group exists, the secret matches and the
// group is still available. Purely advisory: a concurrent Register can
// claim the group right after this returns nil.
func (e *StoreEngine) ValidateSecret(ctx context.Context, groupNumber, secretCode string) error {
	if groupNumber == "" || secretCode == "" {
		return fmt.Errorf("%w: group number and secret code are required", ErrInvalidRequest)
	}

	group, err := e.store.GetGroup(ctx, groupNumber)
	if err != nil {
		return fmt.Errorf("failed to look up group: %w", err)
	}

	switch {
	case group == nil:
		return ErrGroupNotFound
	case group.SecretCode != secretCode:
		return ErrInvalidSecret
	case group.IsAssigned:
		return ErrGroupAssigned
	}

	return nil
}

// Register runs the allocation cycle: read the current state, validate
// group and title, and claim both while creating the team. The store
// re-runs the cycle from a fresh snapshot when a concurrent registration
// commits mid-flight, so among all concurrent calls touching the same
// group or title exactly one succeeds.
func (e *StoreEngine) Register(ctx context.Context, req models.RegistrationRequest) (*models.Team, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	teamID := models.TeamKey(req.LeaderEmail)
	var team *models.Team

	err := e.store.Allocate(ctx, func(tx storage.AllocationTx) error {
		existing, err := tx.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateTeam
		}

		group, err := tx.GetGroup(ctx, req.GroupNumber)
		if err != nil {
			return err
		}
		switch {
		case group == nil:
			return ErrGroupNotFound
		case group.SecretCode != req.SecretCode:
			return ErrInvalidSecret
		case group.IsAssigned:
			return ErrGroupAssigned
		}

		title, err := tx.GetTitle(ctx, req.ProjectTitle)
		if err != nil {
			return err
		}
		switch {
		case title == nil:
			return ErrTitleNotFound
		case title.Assigned:
			return ErrTitleAssigned
		}

		if err := tx.MarkGroupAssigned(ctx, req.GroupNumber); err != nil {
			return err
		}
		if err := tx.MarkTitleAssigned(ctx, req.ProjectTitle); err != nil {
			return err
		}

		team = &models.Team{
			ID:           teamID,
			LeaderEmail:  req.LeaderEmail,
			LeaderName:   req.LeaderName,
			College:      req.College,
			Contact:      req.Contact,
			TeamName:     req.TeamName,
			Members:      req.Members,
			GroupNumber:  req.GroupNumber,
			ProjectTitle: req.ProjectTitle,
			LocationMode: req.LocationMode,
			Confirmation: models.NewConfirmationCode(),
			RegisteredAt: time.Now().UTC(),
		}
		if team.Members == nil {
			team.Members = []models.Member{}
		}

		return tx.CreateTeam(ctx, team)
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
	if e.hub != nil {
		e.hub.Publish(watch.EventTeamRegistered, team)
	}

	slog.Info("team registered",
		"team", teamID,
		"group", req.GroupNumber,
		"title", req.ProjectTitle,
		"confirmation", team.Confirmation,
	)

	return team, nil
}

// validateRequest rejects malformed input before any store access.
func validateRequest(req models.RegistrationRequest) error {
	if req.LeaderEmail == "" || req.GroupNumber == "" || req.SecretCode == "" || req.ProjectTitle == "" {
		return fmt.Errorf("%w: leaderEmail, groupNumber, secretCode and projectTitle are required", ErrInvalidRequest)
	}
	if len(req.Members) > models.MaxMembers {
		return fmt.Errorf("%w: at most %d members allowed", ErrInvalidRequest, models.MaxMembers)
	}
	return nil
}

// Registration returns the team registered under a leader email
func (e *StoreEngine) Registration(ctx context.Context, leaderEmail string) (*models.Team, error) {
	if leaderEmail == "" {
		return nil, fmt.Errorf("%w: leader email is required", ErrInvalidRequest)
	}

	team, err := e.store.GetTeam(ctx, models.TeamKey(leaderEmail))
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}

	return team, nil
}

// AddGroup seeds a new available group
func (e *StoreEngine) AddGroup(ctx context.Context, number, secret string) (*models.Group, error) {
	if number == "" || secret == "" {
		return nil, fmt.Errorf("%w: group number and secret are required", ErrInvalidRequest)
	}

	group := models.NewGroup(number, secret)
	if err := e.store.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrGroupExists
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	if e.hub != nil {
		e.hub.Publish(watch.EventGroupAdded, group)
	}

	slog.Info("group added", "group", number)
	return group, nil
}

// AddTitle seeds a new available project title
func (e *StoreEngine) AddTitle(ctx context.Context, title string) (*models.Title, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}

	t := models.NewTitle(title)
	if err := e.store.CreateTitle(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrTitleExists
		}
		return nil, fmt.Errorf("failed to create title: %w", err)
	}

	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
	if e.hub != nil {
		e.hub.Publish(watch.EventTitleAdded, t)
	}

	slog.Info("title added", "title", title)
	return t, nil
}

// ListGroups returns all groups
func (e *StoreEngine) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := e.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// ListTitles returns all titles with their availability
func (e *StoreEngine) ListTitles(ctx context.Context) ([]*models.Title, error) {
	titles, err := e.store.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, nil
}

// ListTeams returns all registered teams
func (e *StoreEngine) ListTeams(ctx context.Context) ([]*models.Team, error) {
	teams, err := e.store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// Ping checks the backing store
func (e *StoreEngine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// Close releases the backing store
func (e *StoreEngine) Close() error {
	return e.store.Close()
}
