package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/centrivo/agentcc/internal/calling"
)

// Team is one team the agent can sign in under.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuxCode is an idle or wrapup reason code.
type AuxCode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Profile is the agent configuration fetched after registration.
type Profile struct {
	AgentID        string                `json:"agentId"`
	OrgID          string                `json:"orgId"`
	AgentProfileID string                `json:"agentProfileId"`
	AgentName      string                `json:"agentName,omitempty"`
	Teams          []Team                `json:"teams"`
	LoginOptions   []calling.LoginOption `json:"loginVoiceOptions"`
	IdleCodes      []AuxCode             `json:"idleCodes"`
	WrapupCodes    []AuxCode             `json:"wrapupCodes"`
}

// ProfileFetcher loads the agent profile from the configuration API.
type ProfileFetcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewProfileFetcher creates a fetcher for the given gateway base URL.
func NewProfileFetcher(baseURL, token string) *ProfileFetcher {
	return &ProfileFetcher{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch loads the profile for the agent within the org.
func (f *ProfileFetcher) Fetch(ctx context.Context, orgID, agentID string) (*Profile, error) {
	url := fmt.Sprintf("%s/organization/%s/agent/%s/config", f.baseURL, orgID, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	profile.AgentID = agentID
	profile.OrgID = orgID

	return &profile, nil
}
