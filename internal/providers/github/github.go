package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

const (
	acceptHeader = "application/vnd.github.v3+json"
	userAgent    = "milestoner"
	perPage      = 100 // Maximum allowed by GitHub API

	// maxErrorBody caps how much of a failed response ends up in an error
	maxErrorBody = 512
)

// GitHubProvider talks to the GitHub REST API with basic authentication.
// It holds no mutable state and is safe for concurrent use.
type GitHubProvider struct {
	baseURL    string
	username   string
	token      string
	httpClient *http.Client
}

// githubMilestone mirrors the fields we care about from the milestones endpoint
type githubMilestone struct {
	URL          string     `json:"url"`
	HTMLURL      string     `json:"html_url"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	OpenIssues   int        `json:"open_issues"`
	ClosedIssues int        `json:"closed_issues"`
	DueOn        *time.Time `json:"due_on"`
}

func (p *GitHubProvider) Name() string {
	return models.ForgeGitHub
}

// ListMilestones fetches all open milestones of repo ("owner/name"), page by page
func (p *GitHubProvider) ListMilestones(ctx context.Context, repo string) ([]models.Milestone, error) {
	var all []models.Milestone
	page := 1

	for {
		params := url.Values{}
		params.Add("state", "open")
		params.Add("page", strconv.Itoa(page))
		params.Add("per_page", strconv.Itoa(perPage))
		apiURL := fmt.Sprintf("%s/repos/%s/milestones?%s", p.baseURL, strings.Trim(repo, "/"), params.Encode())

		req, err := p.newRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}

		var batch []githubMilestone
		header, err := p.do(req, &batch)
		if err != nil {
			return nil, err
		}

		for _, m := range batch {
			all = append(all, models.Milestone{
				Title:        m.Title,
				Locator:      m.URL,
				Number:       m.Number,
				State:        m.State,
				WebURL:       m.HTMLURL,
				OpenIssues:   m.OpenIssues,
				ClosedIssues: m.ClosedIssues,
				DueOn:        m.DueOn,
			})
		}

		// A short page, or no rel="next" link, is the last one
		if len(batch) < perPage || !hasNextPage(header) {
			break
		}
		page++
	}

	return all, nil
}

// CloseMilestone patches the milestone behind locator (its API URL) to closed
func (p *GitHubProvider) CloseMilestone(ctx context.Context, locator string) error {
	payload, err := json.Marshal(map[string]string{"state": "closed"})
	if err != nil {
		return err
	}

	req, err := p.newRequest(ctx, http.MethodPatch, locator, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = p.do(req, nil)
	return err
}

func (p *GitHubProvider) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	req.SetBasicAuth(p.username, p.token)
	return req, nil
}

// do executes req and decodes a JSON body into out when out is non-nil. The
// response headers are returned on success.
func (p *GitHubProvider) do(req *http.Request, out interface{}) (http.Header, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &providers.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, &providers.DecodeError{Status: resp.StatusCode, Err: err}
	}
	return resp.Header, nil
}

// hasNextPage reports whether the Link header carries a rel="next" entry
func hasNextPage(header http.Header) bool {
	for _, link := range header.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			for _, param := range strings.Split(part, ";")[1:] {
				if strings.TrimSpace(param) == `rel="next"` {
					return true
				}
			}
		}
	}
	return false
}
