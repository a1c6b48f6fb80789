package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected is returned when a registration or validation is refused
// for a business reason (taken group/title, bad secret, duplicate team).
// The wrapped message carries the reason shown to the participant.
var ErrRejected = errors.New("registration rejected")

// Client is a Go SDK for the registration-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the admin API key used for /api/admin endpoints
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// NewClient creates a new registration-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Member is one non-leader participant on a team
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// RegistrationRequest is the body submitted to the register endpoint
type RegistrationRequest struct {
	LeaderEmail  string   `json:"leaderEmail"`
	LeaderName   string   `json:"leaderName"`
	College      string   `json:"college"`
	Contact      string   `json:"contact"`
	TeamName     string   `json:"teamName"`
	Members      []Member `json:"members"`
	GroupNumber  string   `json:"groupNumber"`
	SecretCode   string   `json:"secretCode"`
	ProjectTitle string   `json:"projectTitle"`
	LocationMode string   `json:"locationMode"`
}

// Team is a registration record as returned by the API
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

// Title is one project title with its availability
type Title struct {
	Title     string    `json:"title"`
	Assigned  bool      `json:"assigned"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is one registration group. The secret code is never serialized
// by the API, so it does not appear here.
type Group struct {
	Number     string    `json:"number"`
	IsAssigned bool      `json:"is_assigned"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisterResult is the outcome of a register call
type RegisterResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Confirmation string `json:"confirmation,omitempty"`
	Team         *Team  `json:"team,omitempty"`
}

type validateSecretRequest struct {
	GroupNumber string `json:"groupNumber"`
	SecretCode  string `json:"secretCode"`
}

type createGroupRequest struct {
	Number string `json:"number"`
	Secret string `json:"secret"`
}

type createTitleRequest struct {
	Title string `json:"title"`
}

// ValidateSecret runs the advisory pre-check for a group and secret
// code. A nil error means the group was claimable at the time of the
// call; Register is still the final word.
func (c *Client) ValidateSecret(ctx context.Context, groupNumber, secretCode string) error {
	body, err := json.Marshal(validateSecretRequest{
		GroupNumber: groupNumber,
		SecretCode:  secretCode,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, status, err := c.doRequest(ctx, "POST", "/api/validate-secret", bytes.NewReader(body))
	if err != nil {
		return err
	}

	var result struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if status >= 500 {
		return fmt.Errorf("HTTP %d: %s", status, result.Message)
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrRejected, result.Message)
	}

	return nil
}

// Register submits a registration. A business rejection is returned as
// an error wrapping ErrRejected; the result carries the team and
// confirmation code on success.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) (*RegisterResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, status, err := c.doRequest(ctx, "POST", "/api/register", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result RegisterResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if status >= 500 {
		return nil, fmt.Errorf("HTTP %d: %s", status, result.Message)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, result.Message)
	}

	return &result, nil
}

// Titles retrieves the public project title catalog
func (c *Client) Titles(ctx context.Context) ([]*Title, error) {
	resp, status, err := c.doRequest(ctx, "GET", "/api/titles", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Titles []*Title `json:"titles"`
			Total  int      `json:"total"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, apiErrorf(status, result.Error)
	}

	return result.Data.Titles, nil
}

// Registration retrieves the team registered under a leader email
func (c *Client) Registration(ctx context.Context, leaderEmail string) (*Team, error) {
	resp, status, err := c.doRequest(ctx, "GET", "/api/registration/"+leaderEmail, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool  `json:"success"`
		Data    *Team `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, apiErrorf(status, result.Error)
	}

	return result.Data, nil
}

// CreateGroup seeds a new group (admin)
func (c *Client) CreateGroup(ctx context.Context, number, secret string) (*Group, error) {
	body, err := json.Marshal(createGroupRequest{Number: number, Secret: secret})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, status, err := c.doRequest(ctx, "POST", "/api/admin/groups", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool   `json:"success"`
		Data    *Group `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, apiErrorf(status, result.Error)
	}

	return result.Data, nil
}

// CreateTitle seeds a new project title (admin)
func (c *Client) CreateTitle(ctx context.Context, title string) (*Title, error) {
	body, err := json.Marshal(createTitleRequest{Title: title})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, status, err := c.doRequest(ctx, "POST", "/api/admin/titles", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool   `json:"success"`
		Data    *Title `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, apiErrorf(status, result.Error)
	}

	return result.Data, nil
}

// Teams retrieves all registered teams (admin)
func (c *Client) Teams(ctx context.Context) ([]*Team, error) {
	resp, status, err := c.doRequest(ctx, "GET", "/api/admin/teams", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Teams []*Team `json:"teams"`
			Total int     `json:"total"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, apiErrorf(status, result.Error)
	}

	return result.Data.Teams, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, status, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unhealthy: HTTP %d", status)
	}
	return nil
}

func apiErrorf(status int, apiErr *struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}) error {
	if apiErr == nil {
		return fmt.Errorf("API error: HTTP %d", status)
	}
	return fmt.Errorf("API error: %s - %s", apiErr.Code, apiErr.Message)
}

// doRequest performs an HTTP request. The response body is returned for
// every status; business endpoints encode failure detail in the body.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}
