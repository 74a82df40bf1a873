package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves the milestones endpoints for a fixed set of repositories
type fakeGitHub struct {
	server *httptest.Server

	// titles per repository; a missing repository answers 404
	milestones map[string][]string
	failClose  map[string]bool

	mu      sync.Mutex
	patched []string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		milestones: make(map[string][]string),
		failClose:  make(map[string]bool),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/repos/")

	switch r.Method {
	case http.MethodGet:
		repo := strings.TrimSuffix(path, "/milestones")
		titles, ok := f.milestones[repo]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		var body []map[string]interface{}
		for i, title := range titles {
			body = append(body, map[string]interface{}{
				"url":   fmt.Sprintf("%s/repos/%s/milestones/%d", f.server.URL, repo, i+1),
				"title": title,
				"state": "open",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)

	case http.MethodPatch:
		payload, _ := io.ReadAll(r.Body)
		if string(payload) != `{"state":"closed"}` {
			http.Error(w, "bad payload", http.StatusUnprocessableEntity)
			return
		}
		f.mu.Lock()
		f.patched = append(f.patched, path)
		f.mu.Unlock()
		if f.failClose[path] {
			http.Error(w, `{"message":"Forbidden"}`, http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))

	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeGitHub) patchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.patched...)
	sort.Strings(out)
	return out
}

func writeSettings(t *testing.T, baseURL string, repos ...string) string {
	t.Helper()
	quoted := make([]string, len(repos))
	for i, r := range repos {
		quoted[i] = fmt.Sprintf("%q", r)
	}
	content := fmt.Sprintf(`
[github]
base_url = %q
repositories = [%s]

[github.auth]
username = "octocat"
token = "secret"
`, baseURL, strings.Join(quoted, ", "))

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runAppWithInput(t, "", args...)
}

func runAppWithInput(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp("test")
	app.Reader = strings.NewReader(input)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"milestoner"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestCloseMilestoneClosesEverywhere(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Sprint 1"}
	gh.milestones["acme/b"] = []string{"Sprint 1", "Backlog"}
	gh.milestones["acme/c"] = []string{"Sprint 1"}
	settings := writeSettings(t, gh.server.URL, "acme/a", "acme/b", "acme/c")

	stdout, _, err := runApp(t, "--config", settings, "close-milestone", "--yes", "^Sprint")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Reading configuration file from "+settings+"\n")
	assert.Contains(t, stdout, "Found 1 open milestones matching the pattern '^Sprint':\n")
	assert.Contains(t, stdout, "(1) 'Sprint 1' is open in:\n - acme/a\n - acme/b\n - acme/c\n\n")
	assert.Contains(t, stdout, "Closed 3 milestones, 0 failed.\n")
	assert.Equal(t, []string{
		"acme/a/milestones/1",
		"acme/b/milestones/1",
		"acme/c/milestones/1",
	}, gh.patchedPaths())
}

func TestCloseMilestoneReportsFailuresAndContinues(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Sprint 1"}
	gh.milestones["acme/b"] = []string{"Sprint 1"}
	gh.failClose["acme/a/milestones/1"] = true
	settings := writeSettings(t, gh.server.URL, "acme/a", "acme/b", "acme/missing")

	stdout, stderr, err := runApp(t, "--config", settings, "close-milestone", "--yes", "Sprint")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Request to acme/missing failed with statuscode 404")
	assert.Contains(t, stderr, "Failed to close milestone for repository acme/a")
	assert.NotContains(t, stdout, "acme/missing")
	assert.Contains(t, stdout, "Closed 1 milestones, 1 failed.\n")
	assert.Len(t, gh.patchedPaths(), 2)
}

func TestCloseMilestoneDryRun(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Sprint 1"}
	settings := writeSettings(t, gh.server.URL, "acme/a")

	stdout, _, err := runApp(t, "--config", settings, "close-milestone", "--yes", "--dry-run", "Sprint")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Would close milestone 'Sprint 1' in acme/a\n")
	assert.Empty(t, gh.patchedPaths())
}

func TestCloseMilestoneInvalidPatternSkipsConfig(t *testing.T) {
	stdout, _, err := runApp(t, "--config", "/nonexistent/settings.toml", "close-milestone", "--yes", "Sprint[")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "invalid pattern")
	assert.NotContains(t, stdout, "Reading configuration file")
}

func TestCloseMilestoneMissingPattern(t *testing.T) {
	_, _, err := runApp(t, "close-milestone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PATTERN")
}

func TestCloseMilestoneMissingConfigNeedsCredentials(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "settings.toml")

	stdout, _, err := runApp(t, "--config", missing, "close-milestone", "--yes", "Sprint")
	require.Error(t, err)

	assert.Contains(t, stdout, "Config file not found - continuing with defaults\n")
	assert.Contains(t, err.Error(), "authentication required")
}

func TestCloseMilestoneVerboseLogsPhases(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Backlog"}
	settings := writeSettings(t, gh.server.URL, "acme/a")

	stdout, stderr, err := runApp(t, "--config", settings, "--verbose", "close-milestone", "--yes", "Sprint")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Found 0 open milestones matching the pattern 'Sprint':\n")
	assert.NotContains(t, stdout, "Closed")
	assert.Contains(t, stderr, "phase=fetching")
	assert.Contains(t, stderr, "phase=done")
}

func TestCloseMilestoneReadsPipedAnswers(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Sprint 1", "Sprint 2"}
	settings := writeSettings(t, gh.server.URL, "acme/a")

	stdout, _, err := runAppWithInput(t, "n\ny\n", "--config", settings, "close-milestone", "Sprint")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Close milestone 'Sprint 1' in those repositories?")
	assert.Contains(t, stdout, "Close milestone 'Sprint 2' in those repositories?")
	assert.Equal(t, []string{"acme/a/milestones/2"}, gh.patchedPaths())
	assert.Contains(t, stdout, "Closed 1 milestones, 0 failed.\n")
}

func TestCloseMilestoneFailsWhenInputEnds(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.milestones["acme/a"] = []string{"Sprint 1"}
	settings := writeSettings(t, gh.server.URL, "acme/a")

	stdout, _, err := runAppWithInput(t, "", "--config", settings, "close-milestone", "Sprint")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "no answer on input")
	assert.Contains(t, stdout, "(1) 'Sprint 1' is open in:")
	assert.Empty(t, gh.patchedPaths())
}
