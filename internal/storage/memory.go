package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hackfest-platform/registration-engine/internal/models"
)

// MemoryStore implements Store with mutex-guarded maps. An allocation
// cycle stages its writes on a copy of the state and swaps the copy in
// only when the cycle returns nil, so an abort leaves no trace even if
// some staged writes already happened.
//
// The store lives in a single process; it serves tests and local
// development, not multi-instance deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[string]models.Group
	titles map[string]models.Title
	teams  map[string]models.Team
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups: make(map[string]models.Group),
		titles: make(map[string]models.Title),
		teams:  make(map[string]models.Team),
	}
}

// Allocate runs fn against a staged copy of the whole state under the
// write lock. Holding the lock for the full cycle serializes concurrent
// allocations, so no retry loop is needed here: the second caller simply
// observes the first caller's committed state.
func (s *MemoryStore) Allocate(ctx context.Context, fn func(tx AllocationTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stage := &memoryAllocationTx{
		groups: cloneMap(s.groups),
		titles: cloneMap(s.titles),
		teams:  cloneMap(s.teams),
	}

	if err := fn(stage); err != nil {
		return err
	}

	s.groups = stage.groups
	s.titles = stage.titles
	s.teams = stage.teams
	return nil
}

func cloneMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memoryAllocationTx struct {
	groups map[string]models.Group
	titles map[string]models.Title
	teams  map[string]models.Team
}

func (t *memoryAllocationTx) GetGroup(_ context.Context, number string) (*models.Group, error) {
	g, ok := t.groups[number]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (t *memoryAllocationTx) GetTitle(_ context.Context, title string) (*models.Title, error) {
	tt, ok := t.titles[title]
	if !ok {
		return nil, nil
	}
	return &tt, nil
}

func (t *memoryAllocationTx) GetTeam(_ context.Context, id string) (*models.Team, error) {
	tm, ok := t.teams[id]
	if !ok {
		return nil, nil
	}
	return &tm, nil
}

func (t *memoryAllocationTx) MarkGroupAssigned(_ context.Context, number string) error {
	g, ok := t.groups[number]
	if !ok {
		return fmt.Errorf("group not found: %s", number)
	}
	g.IsAssigned = true
	t.groups[number] = g
	return nil
}

func (t *memoryAllocationTx) MarkTitleAssigned(_ context.Context, title string) error {
	tt, ok := t.titles[title]
	if !ok {
		return fmt.Errorf("title not found: %s", title)
	}
	tt.Assigned = true
	t.titles[title] = tt
	return nil
}

func (t *memoryAllocationTx) CreateTeam(_ context.Context, team *models.Team) error {
	if _, exists := t.teams[team.ID]; exists {
		return ErrDuplicate
	}
	t.teams[team.ID] = *team
	return nil
}

// --- Plain reads and seeding writes ---

func (s *MemoryStore) GetGroup(_ context.Context, number string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[number]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) ListGroups(_ context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		g := g
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Number < groups[j].Number })
	return groups, nil
}

func (s *MemoryStore) ListTitles(_ context.Context) ([]*models.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]*models.Title, 0, len(s.titles))
	for _, t := range s.titles {
		t := t
		titles = append(titles, &t)
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i].Title < titles[j].Title })
	return titles, nil
}

func (s *MemoryStore) ListTeams(_ context.Context) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]*models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		t := t
		teams = append(teams, &t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].RegisteredAt.After(teams[j].RegisteredAt) })
	return teams, nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[group.Number]; exists {
		return ErrDuplicate
	}
	s.groups[group.Number] = *group
	return nil
}

func (s *MemoryStore) CreateTitle(_ context.Context, title *models.Title) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.titles[title.Title]; exists {
		return ErrDuplicate
	}
	s.titles[title.Title] = *title
	return nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
