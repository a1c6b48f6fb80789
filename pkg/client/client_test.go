package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// The SDK must be consumable without reaching into the module's internal
// packages: every argument and return type below is defined in this
// package.

func TestRegisterSuccess(t *testing.T) {
	var got RegistrationRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		json.NewEncoder(w).Encode(RegisterResult{
			Success:      true,
			Message:      "Registration Successful",
			Confirmation: "abc123def456",
			Team: &Team{
				ID:           "x@y,com",
				LeaderEmail:  "x@y.com",
				GroupNumber:  "101",
				ProjectTitle: "AI Chatbot",
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	result, err := c.Register(context.Background(), RegistrationRequest{
		LeaderEmail:  "x@y.com",
		GroupNumber:  "101",
		SecretCode:   "S1",
		ProjectTitle: "AI Chatbot",
		Members:      []Member{{Name: "M", Email: "m@y.com"}},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if result.Confirmation != "abc123def456" {
		t.Errorf("unexpected confirmation: %s", result.Confirmation)
	}
	if result.Team == nil || result.Team.ID != "x@y,com" {
		t.Errorf("unexpected team: %+v", result.Team)
	}

	// Wire field names are the form's contract.
	if got.LeaderEmail != "x@y.com" || got.SecretCode != "S1" || len(got.Members) != 1 {
		t.Errorf("request not marshaled as expected: %+v", got)
	}
}

func TestRegisterRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(RegisterResult{
			Success: false,
			Message: "Registration Failed. Group already taken.",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Register(context.Background(), RegistrationRequest{
		LeaderEmail: "x@y.com", GroupNumber: "101", SecretCode: "S1", ProjectTitle: "AI Chatbot",
	})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestValidateSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GroupNumber string `json:"groupNumber"`
			SecretCode  string `json:"secretCode"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if req.SecretCode == "S1" {
			json.NewEncoder(w).Encode(map[string]interface{}{"valid": true})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"valid": false, "message": "Invalid Secret Code"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.ValidateSecret(context.Background(), "101", "S1"); err != nil {
		t.Errorf("valid secret: %v", err)
	}
	if err := c.ValidateSecret(context.Background(), "101", "nope"); !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}

func TestTitles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"titles": []Title{{Title: "AI Chatbot"}, {Title: "Smart Parking", Assigned: true}},
				"total":  2,
			},
		})
	}))
	defer server.Close()

	titles, err := NewClient(server.URL).Titles(context.Background())
	if err != nil {
		t.Fatalf("Titles failed: %v", err)
	}
	if len(titles) != 2 || titles[1].Title != "Smart Parking" || !titles[1].Assigned {
		t.Errorf("unexpected titles: %+v", titles)
	}
}

func TestCreateGroupSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-key" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": map[string]string{"code": "invalid api key", "message": "nope"}})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    Group{Number: "201"},
		})
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).CreateGroup(context.Background(), "201", "S9"); err == nil {
		t.Error("expected error without API key")
	}

	group, err := NewClient(server.URL, WithAPIKey("admin-key")).CreateGroup(context.Background(), "201", "S9")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.Number != "201" {
		t.Errorf("unexpected group: %+v", group)
	}
}
