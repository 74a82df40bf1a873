package milestones

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

// mockProvider serves canned milestones and records close calls. It is called
// from several goroutines at once.
type mockProvider struct {
	name       string
	milestones map[string][]models.Milestone
	listErrs   map[string]error
	closeErrs  map[string]error

	mu     sync.Mutex
	listed []string
	closed []string
}

func newMockProvider(name string) *mockProvider {
	return &mockProvider{
		name:       name,
		milestones: make(map[string][]models.Milestone),
		listErrs:   make(map[string]error),
		closeErrs:  make(map[string]error),
	}
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) ListMilestones(ctx context.Context, repo string) ([]models.Milestone, error) {
	m.mu.Lock()
	m.listed = append(m.listed, repo)
	m.mu.Unlock()

	if err, ok := m.listErrs[repo]; ok {
		return nil, err
	}
	return m.milestones[repo], nil
}

func (m *mockProvider) CloseMilestone(ctx context.Context, locator string) error {
	m.mu.Lock()
	m.closed = append(m.closed, locator)
	m.mu.Unlock()

	return m.closeErrs[locator]
}

// closedLocators returns the close calls in sorted order
func (m *mockProvider) closedLocators() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.closed...)
	sort.Strings(out)
	return out
}

func (m *mockProvider) listedRepos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.listed...)
	sort.Strings(out)
	return out
}

func milestone(title, locator string) models.Milestone {
	return models.Milestone{Title: title, Locator: locator, State: "open"}
}

func githubRepos(names ...string) []models.Repository {
	repos := make([]models.Repository, len(names))
	for i, n := range names {
		repos[i] = models.Repository{Forge: models.ForgeGitHub, Name: n}
	}
	return repos
}

// sprintScenario is three repositories sharing "Sprint 1", one of which also
// has "Backlog"
func sprintScenario() (*mockProvider, providers.Registry, []models.Repository) {
	p := newMockProvider(models.ForgeGitHub)
	p.milestones["acme/a"] = []models.Milestone{milestone("Sprint 1", "a/1")}
	p.milestones["acme/b"] = []models.Milestone{milestone("Sprint 1", "b/1"), milestone("Backlog", "b/2")}
	p.milestones["acme/c"] = []models.Milestone{milestone("Sprint 1", "c/1")}
	return p, providers.NewRegistry(p), githubRepos("acme/a", "acme/b", "acme/c")
}

func bufferLogger() (zerolog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return zerolog.New(&buf).Level(zerolog.DebugLevel), &buf
}
