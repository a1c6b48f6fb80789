package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hackfest-platform/registration-engine/internal/models"
	"github.com/hackfest-platform/registration-engine/internal/storage"
	"github.com/hackfest-platform/registration-engine/internal/watch"
)

func newTestEngine(t *testing.T) (*StoreEngine, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateGroup(ctx, models.NewGroup("101", "S1")); err != nil {
		t.Fatalf("seed group 101: %v", err)
	}
	if err := store.CreateGroup(ctx, models.NewGroup("102", "S2")); err != nil {
		t.Fatalf("seed group 102: %v", err)
	}
	if err := store.CreateTitle(ctx, models.NewTitle("AI Chatbot")); err != nil {
		t.Fatalf("seed title: %v", err)
	}
	if err := store.CreateTitle(ctx, models.NewTitle("Smart Parking")); err != nil {
		t.Fatalf("seed title: %v", err)
	}

	return NewEngine(store, nil, nil), store
}

func registerReq(email, group, secret, title string) models.RegistrationRequest {
	return models.RegistrationRequest{
		LeaderEmail:  email,
		LeaderName:   "Leader",
		College:      "Test College",
		Contact:      "1234567890",
		TeamName:     "Testers",
		GroupNumber:  group,
		SecretCode:   secret,
		ProjectTitle: title,
		LocationMode: "onsite",
	}
}

func TestRegisterSuccess(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	team, err := engine.Register(ctx, registerReq("x@y.com", "101", "S1", "AI Chatbot"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if team.ID != "x@y,com" {
		t.Errorf("expected team id 'x@y,com', got %q", team.ID)
	}
	if team.Confirmation == "" {
		t.Error("expected a confirmation code")
	}
	if team.Members == nil {
		t.Error("members should be an empty slice, not nil")
	}

	group, _ := store.GetGroup(ctx, "101")
	if group == nil || !group.IsAssigned {
		t.Error("group 101 should be assigned after registration")
	}

	titles, _ := store.ListTitles(ctx)
	for _, title := range titles {
		if title.Title == "AI Chatbot" && !title.Assigned {
			t.Error("title 'AI Chatbot' should be assigned after registration")
		}
	}

	stored, _ := store.GetTeam(ctx, "x@y,com")
	if stored == nil {
		t.Fatal("team record not found after registration")
	}
	if stored.ProjectTitle != "AI Chatbot" || stored.GroupNumber != "101" {
		t.Errorf("unexpected team record: %+v", stored)
	}
}

func TestRegisterWrongSecret(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Register(ctx, registerReq("x@y.com", "101", "wrong", "AI Chatbot"))
	if !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}

	group, _ := store.GetGroup(ctx, "101")
	if group.IsAssigned {
		t.Error("failed registration must not assign the group")
	}
	if team, _ := store.GetTeam(ctx, "x@y,com"); team != nil {
		t.Error("failed registration must not create a team")
	}
}

func TestRegisterTitleTakenLeavesGroupUntouched(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, registerReq("a@y.com", "101", "S1", "AI Chatbot")); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// Second leader wants a different group but the already-claimed title.
	_, err := engine.Register(ctx, registerReq("b@y.com", "102", "S2", "AI Chatbot"))
	if !errors.Is(err, ErrTitleAssigned) {
		t.Fatalf("expected ErrTitleAssigned, got %v", err)
	}

	group, _ := store.GetGroup(ctx, "102")
	if group.IsAssigned {
		t.Error("group 102 must stay unassigned when the title claim fails")
	}
}

func TestRegisterUnknownGroupAndTitle(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, registerReq("x@y.com", "999", "S1", "AI Chatbot")); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if _, err := engine.Register(ctx, registerReq("x@y.com", "101", "S1", "No Such Title")); !errors.Is(err, ErrTitleNotFound) {
		t.Errorf("expected ErrTitleNotFound, got %v", err)
	}
}

func TestRegisterAssignedGroup(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, registerReq("a@y.com", "101", "S1", "AI Chatbot")); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := engine.Register(ctx, registerReq("b@y.com", "101", "S1", "Smart Parking"))
	if !errors.Is(err, ErrGroupAssigned) {
		t.Fatalf("expected ErrGroupAssigned, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req := registerReq("", "101", "S1", "AI Chatbot")
	if _, err := engine.Register(ctx, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing leader email: expected ErrInvalidRequest, got %v", err)
	}

	req = registerReq("x@y.com", "101", "S1", "AI Chatbot")
	req.Members = make([]models.Member, models.MaxMembers+1)
	if _, err := engine.Register(ctx, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("too many members: expected ErrInvalidRequest, got %v", err)
	}
}

func TestRegisterIdempotence(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Register(ctx, registerReq("a.b@x.com", "101", "S1", "AI Chatbot"))
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if first.ID != "a,b@x,com" {
		t.Errorf("expected normalized id 'a,b@x,com', got %q", first.ID)
	}

	// Second attempt by the same leader, even for a fresh group and
	// title, must not touch anything.
	_, err = engine.Register(ctx, registerReq("a.b@x.com", "102", "S2", "Smart Parking"))
	if !errors.Is(err, ErrDuplicateTeam) {
		t.Fatalf("expected ErrDuplicateTeam, got %v", err)
	}

	group, _ := store.GetGroup(ctx, "102")
	if group.IsAssigned {
		t.Error("second attempt must not assign a different group")
	}

	team, _ := store.GetTeam(ctx, "a,b@x,com")
	if team.GroupNumber != "101" || team.ProjectTitle != "AI Chatbot" {
		t.Errorf("existing team was altered: %+v", team)
	}
}

func TestConcurrentSameGroupAndTitle(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	const callers = 16

	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := string(rune('a'+i)) + "@y.com"
			_, errs[i] = engine.Register(ctx, registerReq(email, "101", "S1", "AI Chatbot"))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, ErrGroupAssigned) && !errors.Is(err, ErrTitleAssigned) {
			t.Errorf("unexpected rejection reason: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d", successes)
	}

	teams, _ := store.ListTeams(ctx)
	if len(teams) != 1 {
		t.Errorf("expected exactly one team, got %d", len(teams))
	}
}

func TestConcurrentDisjointGroups(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var errA, errB error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = engine.Register(ctx, registerReq("a@y.com", "101", "S1", "AI Chatbot"))
	}()
	go func() {
		defer wg.Done()
		_, errB = engine.Register(ctx, registerReq("b@y.com", "102", "S2", "Smart Parking"))
	}()
	wg.Wait()

	if errA != nil || errB != nil {
		t.Errorf("disjoint registrations must both succeed: %v / %v", errA, errB)
	}
}

func TestValidateSecret(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.ValidateSecret(ctx, "101", "S1"); err != nil {
		t.Errorf("valid secret rejected: %v", err)
	}
	if err := engine.ValidateSecret(ctx, "", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if err := engine.ValidateSecret(ctx, "999", "S1"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if err := engine.ValidateSecret(ctx, "101", "nope"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected ErrInvalidSecret, got %v", err)
	}

	if _, err := engine.Register(ctx, registerReq("a@y.com", "101", "S1", "AI Chatbot")); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if err := engine.ValidateSecret(ctx, "101", "S1"); !errors.Is(err, ErrGroupAssigned) {
		t.Errorf("expected ErrGroupAssigned, got %v", err)
	}
}

func TestRegistrationLookup(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Registration(ctx, "x@y.com"); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("expected ErrTeamNotFound, got %v", err)
	}

	if _, err := engine.Register(ctx, registerReq("x@y.com", "101", "S1", "AI Chatbot")); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	team, err := engine.Registration(ctx, "x@y.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if team.LeaderEmail != "x@y.com" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestAddGroupAndTitleDuplicates(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.AddGroup(ctx, "101", "other"); !errors.Is(err, ErrGroupExists) {
		t.Errorf("expected ErrGroupExists, got %v", err)
	}
	if _, err := engine.AddTitle(ctx, "AI Chatbot"); !errors.Is(err, ErrTitleExists) {
		t.Errorf("expected ErrTitleExists, got %v", err)
	}

	group, err := engine.AddGroup(ctx, "103", "S3")
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	if group.IsAssigned {
		t.Error("new group must start unassigned")
	}
}

func TestRegisterPublishesEvent(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	store.CreateGroup(ctx, models.NewGroup("101", "S1"))
	store.CreateTitle(ctx, models.NewTitle("AI Chatbot"))

	hub := watch.NewHub()
	engine := NewEngine(store, hub, nil)

	events, cancel := hub.Subscribe()
	defer cancel()

	if _, err := engine.Register(ctx, registerReq("x@y.com", "101", "S1", "AI Chatbot")); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	select {
	case event := <-events:
		if event.Type != watch.EventTeamRegistered {
			t.Errorf("expected %s event, got %s", watch.EventTeamRegistered, event.Type)
		}
	default:
		t.Fatal("expected a published event")
	}
}
