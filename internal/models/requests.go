package models

// ValidateSecretRequest is the body of POST /api/validate-secret.
type ValidateSecretRequest struct {
	GroupNumber string `json:"groupNumber"`
	SecretCode  string `json:"secretCode"`
}

// RegistrationRequest is the body of POST /api/register. Field names match
// the wire format the client form submits.
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

// CreateGroupRequest is the admin body for seeding a group.
type CreateGroupRequest struct {
	Number string `json:"number"`
	Secret string `json:"secret"`
}

// CreateTitleRequest is the admin body for seeding a title.
type CreateTitleRequest struct {
	Title string `json:"title"`
}
