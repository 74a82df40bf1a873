package cmd

import (
	"fmt"

	"github.com/milestoner/internal/config"
	"github.com/milestoner/internal/providers"
	"github.com/milestoner/internal/providers/github"
	"github.com/milestoner/internal/providers/gitlab"
)

// createRegistry builds one provider per forge that has repositories configured
func createRegistry(cfg *config.Config) (providers.Registry, error) {
	var list []providers.Provider

	if len(cfg.GitHub.Repositories) > 0 {
		username, token, _ := cfg.GitHub.Credentials()
		provider, err := github.New(github.GitHubConfig{
			BaseURL:  cfg.GitHub.BaseURL,
			Username: username,
			Token:    token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create github provider: %w", err)
		}
		list = append(list, provider)
	}

	if len(cfg.GitLab.Repositories) > 0 {
		provider, err := gitlab.New(gitlab.GitLabConfig{
			URL:   cfg.GitLab.BaseURL,
			Token: cfg.GitLab.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gitlab provider: %w", err)
		}
		list = append(list, provider)
	}

	return providers.NewRegistry(list...), nil
}
