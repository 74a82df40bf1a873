package github

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/milestoner/internal/providers"
)

// DefaultBaseURL is the public GitHub REST API
const DefaultBaseURL = "https://api.github.com"

// GitHubConfig contains the settings needed to talk to GitHub
type GitHubConfig struct {
	BaseURL  string
	Username string
	Token    string
	// HTTPClient defaults to a plain client without timeout
	HTTPClient *http.Client
}

func New(config GitHubConfig) (providers.Provider, error) {
	if config.Username == "" || config.Token == "" {
		return nil, fmt.Errorf("github username and token are required")
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &GitHubProvider{
		baseURL:    baseURL,
		username:   config.Username,
		token:      config.Token,
		httpClient: httpClient,
	}, nil
}
