package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

// DefaultBaseURL is gitlab.com; the client appends the /api/v4 suffix itself
const DefaultBaseURL = "https://gitlab.com"

const (
	perPage       = 100 // Maximum allowed by GitLab API
	locatorMarker = "/milestones/"
)

// GitLabProvider implements the Provider interface for GitLab
type GitLabProvider struct {
	client *gitlab.Client
}

// GitLabConfig contains configuration for the GitLab provider
type GitLabConfig struct {
	URL        string `koanf:"base_url"`
	Token      string `koanf:"token"`
	HTTPClient *http.Client
}

// New creates a new GitLabProvider
func New(config GitLabConfig) (*GitLabProvider, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("gitlab token is required")
	}

	baseURL := config.URL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Every call is attempted exactly once and never throttled
	opts := []gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(baseURL),
		gitlab.WithCustomRetryMax(0),
		gitlab.WithCustomLimiter(rate.NewLimiter(rate.Inf, 0)),
	}
	if config.HTTPClient != nil {
		opts = append(opts, gitlab.WithHTTPClient(config.HTTPClient))
	}

	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &GitLabProvider{client: client}, nil
}

func (p *GitLabProvider) Name() string {
	return models.ForgeGitLab
}

// ListMilestones returns the active milestones of project (a path such as
// "group/project" or a numeric ID), following pagination
func (p *GitLabProvider) ListMilestones(ctx context.Context, project string) ([]models.Milestone, error) {
	opt := &gitlab.ListMilestonesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
		State:       gitlab.Ptr("active"),
	}

	var all []models.Milestone
	for {
		milestones, resp, err := p.client.Milestones.ListMilestones(project, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrapError(resp, err)
		}

		for _, m := range milestones {
			all = append(all, convertMilestone(project, m))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return all, nil
}

// CloseMilestone sends the close state event for the milestone behind locator
func (p *GitLabProvider) CloseMilestone(ctx context.Context, locator string) error {
	project, id, err := parseLocator(locator)
	if err != nil {
		return err
	}

	_, resp, err := p.client.Milestones.UpdateMilestone(project, id, &gitlab.UpdateMilestoneOptions{
		StateEvent: gitlab.Ptr("close"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return wrapError(resp, err)
	}
	return nil
}

func convertMilestone(project string, m *gitlab.Milestone) models.Milestone {
	out := models.Milestone{
		Title:   m.Title,
		Locator: formatLocator(project, m.ID),
		Number:  m.IID,
		State:   normaliseState(m.State),
		WebURL:  m.WebURL,
	}
	if m.DueDate != nil {
		due := time.Time(*m.DueDate)
		out.DueOn = &due
	}
	return out
}

// normaliseState maps GitLab milestone states to the GitHub vocabulary
func normaliseState(s string) string {
	switch s {
	case "active":
		return "open"
	default:
		return s // "closed" is already canonical
	}
}

func formatLocator(project string, id int) string {
	return project + locatorMarker + strconv.Itoa(id)
}

func parseLocator(locator string) (string, int, error) {
	idx := strings.LastIndex(locator, locatorMarker)
	if idx <= 0 {
		return "", 0, fmt.Errorf("invalid GitLab milestone locator %q", locator)
	}
	id, err := strconv.Atoi(locator[idx+len(locatorMarker):])
	if err != nil {
		return "", 0, fmt.Errorf("invalid GitLab milestone locator %q: %w", locator, err)
	}
	return locator[:idx], id, nil
}

// wrapError translates client-go failures into the provider error types
func wrapError(resp *gitlab.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := err.Error()
		var errResp *gitlab.ErrorResponse
		if errors.As(err, &errResp) && errResp.Message != "" {
			body = errResp.Message
		}
		return &providers.StatusError{Status: resp.StatusCode, Body: body}
	}

	return &providers.DecodeError{Status: resp.StatusCode, Err: err}
}
