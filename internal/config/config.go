package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/milestoner/pkg/models"
)

const (
	// AppDir is the directory created under the user config dir
	AppDir = "milestoner"
	// FileName is the settings file looked up inside AppDir
	FileName = "settings.toml"
	// EnvPrefix prefixes every environment override, e.g. MILESTONER_GITHUB__AUTH__TOKEN
	EnvPrefix = "MILESTONER_"
)

var (
	// ErrNoConfigDir is returned when the user configuration directory cannot be determined
	ErrNoConfigDir = errors.New("no configuration directory available")
	// ErrInvalidConfig wraps parse and decode failures of the settings file
	ErrInvalidConfig = errors.New("invalid configuration file")
	// ErrAuthRequired is returned when a command needs credentials that are not configured
	ErrAuthRequired = errors.New("authentication required")
)

// Config represents the application configuration
type Config struct {
	GitHub GitHubConfig `koanf:"github"`
	GitLab GitLabConfig `koanf:"gitlab"`
	Log    LogConfig    `koanf:"log"`

	// Path is the file the configuration was read from; Found is false when
	// it did not exist and only defaults and environment were applied
	Path  string `koanf:"-"`
	Found bool   `koanf:"-"`
}

// GitHubConfig lists the GitHub repositories to operate on
type GitHubConfig struct {
	BaseURL      string   `koanf:"base_url"`
	Repositories []string `koanf:"repositories"`
	Auth         *Auth    `koanf:"auth"`
}

// Auth is the basic credential pair forwarded to GitHub
type Auth struct {
	Username string `koanf:"username"`
	Token    string `koanf:"token"`
}

// GitLabConfig lists the GitLab projects to operate on
type GitLabConfig struct {
	BaseURL      string   `koanf:"base_url"`
	Token        string   `koanf:"token"`
	Repositories []string `koanf:"repositories"`
}

// LogConfig controls diagnostics output
type LogConfig struct {
	Level string `koanf:"level"`
}

// DefaultPath returns <user config dir>/milestoner/settings.toml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "", noConfigDir(err)
	}
	return filepath.Join(dir, AppDir, FileName), nil
}

func noConfigDir(cause error) error {
	if cause == nil {
		return ErrNoConfigDir
	}
	return fmt.Errorf("%w: %v", ErrNoConfigDir, cause)
}

// ResolvePath returns configPath, or the default location when it is empty
func ResolvePath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return DefaultPath()
}

// LoadConfig loads the configuration from a file. A missing file is not an
// error: defaults and environment overrides still apply and Found is false.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"github.base_url": "https://api.github.com",
		"gitlab.base_url": "https://gitlab.com",
		"log.level":       "info",
	}, "."), nil)

	found := false
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("%w %s: %v", ErrInvalidConfig, configPath, err)
			}
			found = true
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	// Load from environment variables with prefix MILESTONER_
	k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config.Path = configPath
	config.Found = found

	return &config, nil
}

// envKeyValue maps MILESTONER_GITHUB__AUTH__TOKEN to github.auth.token and
// splits comma separated repository lists
func envKeyValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.HasSuffix(key, ".repositories") {
		var repos []string
		for _, r := range strings.Split(value, ",") {
			if r = strings.TrimSpace(r); r != "" {
				repos = append(repos, r)
			}
		}
		return key, repos
	}
	return key, value
}

// Credentials returns the GitHub credential pair, ok is false when either half is missing
func (c GitHubConfig) Credentials() (username, token string, ok bool) {
	if c.Auth == nil {
		return "", "", false
	}
	return c.Auth.Username, c.Auth.Token, c.Auth.Username != "" && c.Auth.Token != ""
}

// Repositories returns every configured repository, GitHub ones first, each
// list in file order. Duplicates are kept.
func (c *Config) Repositories() []models.Repository {
	repos := make([]models.Repository, 0, len(c.GitHub.Repositories)+len(c.GitLab.Repositories))
	for _, name := range c.GitHub.Repositories {
		repos = append(repos, models.Repository{Forge: models.ForgeGitHub, Name: name})
	}
	for _, name := range c.GitLab.Repositories {
		repos = append(repos, models.Repository{Forge: models.ForgeGitLab, Name: name})
	}
	return repos
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	// Create sample configuration
	sampleConfig := `# milestoner configuration

[github]
base_url = "https://api.github.com"
repositories = ["owner/repository"]

[github.auth]
username = "your-github-username"
token = "your-github-token"

# [gitlab]
# base_url = "https://gitlab.com"
# token = "your-gitlab-token"
# repositories = ["group/project"]

[log]
level = "info"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0600)
}

// Validate checks that the configuration can drive the close-milestone command
func Validate(config *Config) error {
	hasGitHub := len(config.GitHub.Repositories) > 0
	hasGitLab := len(config.GitLab.Repositories) > 0

	// GitHub credentials are mandatory unless the run is GitLab only
	if hasGitHub || !hasGitLab {
		if _, _, ok := config.GitHub.Credentials(); !ok {
			return fmt.Errorf("%w: github username and token are required", ErrAuthRequired)
		}
	}

	if hasGitLab && config.GitLab.Token == "" {
		return fmt.Errorf("%w: gitlab token is required", ErrAuthRequired)
	}

	return nil
}
