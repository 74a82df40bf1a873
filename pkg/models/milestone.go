package models

import (
	"time"
)

// Forge names understood by the provider registry
const (
	ForgeGitHub = "github"
	ForgeGitLab = "gitlab"
)

// Repository identifies one remote collection of milestones
type Repository struct {
	Forge string `json:"forge"`
	Name  string `json:"name"`
}

// String returns the identifier shown to the operator. GitHub repositories are
// printed bare, anything else is prefixed with its forge.
func (r Repository) String() string {
	if r.Forge == "" || r.Forge == ForgeGitHub {
		return r.Name
	}
	return r.Forge + ":" + r.Name
}

// Milestone is a single milestone as reported by a forge
type Milestone struct {
	Title        string     `json:"title"`
	Locator      string     `json:"locator"` // opaque handle used to close exactly this milestone
	Number       int        `json:"number,omitempty"`
	State        string     `json:"state,omitempty"`
	WebURL       string     `json:"web_url,omitempty"`
	OpenIssues   int        `json:"open_issues,omitempty"`
	ClosedIssues int        `json:"closed_issues,omitempty"`
	DueOn        *time.Time `json:"due_on,omitempty"`
}

// FetchResult is the outcome of listing the milestones of one repository.
// A nil Err is the success branch.
type FetchResult struct {
	Repository Repository
	Milestones []Milestone
	Err        error
}

// RepositoryMilestones pairs a repository with the milestones retrieved from it.
// Milestones is empty when the fetch failed.
type RepositoryMilestones struct {
	Repository Repository
	Milestones []Milestone
}

// Member is one milestone of a group, located in one repository
type Member struct {
	Locator    string
	Repository Repository
}

// MilestoneGroup holds every matched milestone sharing the exact same title
type MilestoneGroup struct {
	Title   string
	Members []Member
}

// Repositories lists the repository of every member, duplicates included
func (g MilestoneGroup) Repositories() []Repository {
	repos := make([]Repository, 0, len(g.Members))
	for _, m := range g.Members {
		repos = append(repos, m.Repository)
	}
	return repos
}

// CloseOutcome is the result of closing one member of a group
type CloseOutcome struct {
	Member Member
	Err    error
}

// Succeeded reports whether the close call went through
func (o CloseOutcome) Succeeded() bool {
	return o.Err == nil
}
