// Package config loads the YAML configuration that drives the Orchestrator:
// which repositories to track, how to reach their metrics/text providers,
// and the operational knobs for rate limiting, caching, and the model
// artifacts C8-C11 load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file structure.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`

	// RateGovernor holds the process-wide pacing knobs from §4.2.
	RateGovernor RateGovernorConfig `yaml:"rate_governor"`

	// CacheRoot is the directory root for the per-repository
	// panel.json/text/*.json/stats.json/progress.json layout (§6).
	CacheRoot string `yaml:"cache_root"`

	// ModelCheckpointPath points at the forecaster's checkpoint manifest
	// (model.toml).
	ModelCheckpointPath string `yaml:"model_checkpoint_path"`

	// TextEncoderWeightsPath is the directory of the on-disk text
	// embedding cache (per §9 Design Notes). The text encoder's weights
	// are seeded in code and are not read from this path.
	TextEncoderWeightsPath string `yaml:"text_encoder_weights_path"`

	// Sample holds the SampleWindower defaults (§3, §4.6).
	Sample SampleConfig `yaml:"sample"`
}

// RateGovernorConfig mirrors the C3 contract knobs.
type RateGovernorConfig struct {
	RequestsPerHour int  `yaml:"requests_per_hour"`
	MinIntervalMS   int  `yaml:"min_interval_ms"`
	PerHost         bool `yaml:"per_host"`
}

// SampleConfig holds the SampleWindower shape and the §9 "data-delay
// heuristic" open question, resolved here as an explicit, off-by-default
// knob rather than a guessed hardcoded behavior.
type SampleConfig struct {
	HistoryMonths int `yaml:"history_months"`
	HorizonMonths int `yaml:"horizon_months"`
	Stride        int `yaml:"stride"`
	// TreatRecentMonthsAsStale excludes this many of the most recent months
	// from SampleWindower's start-index enumeration when > 0. See
	// SPEC_FULL.md §E.
	TreatRecentMonthsAsStale int `yaml:"treat_recent_months_as_stale"`
}

// ProviderConfig contains configuration for a specific repository provider
// (e.g. "github", "gitlab").
type ProviderConfig struct {
	Default      RepoDefaults `yaml:"default"`
	Repositories []RepoConfig `yaml:"repositories"`
}

// RepoDefaults contains default values inherited by repositories that omit
// them.
type RepoDefaults struct {
	Token   string `yaml:"token"`
	Owner   string `yaml:"owner"`
	BaseURL string `yaml:"base_url"`
}

// RepoConfig identifies a single tracked repository.
type RepoConfig struct {
	Token      string `yaml:"token"`
	Owner      string `yaml:"owner"`
	Repository string `yaml:"repository"`
	BaseURL    string `yaml:"base_url"`
}

// LoadFromFile reads a YAML configuration file and returns the parsed,
// defaulted Config.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyTopLevelDefaults()

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	return &cfg, nil
}

// applyTopLevelDefaults fills in the operational defaults named in §4.2 and
// §3 when the configuration file omits them.
func (c *Config) applyTopLevelDefaults() {
	if c.RateGovernor.RequestsPerHour == 0 {
		c.RateGovernor.RequestsPerHour = 3600
	}
	if c.RateGovernor.MinIntervalMS == 0 {
		c.RateGovernor.MinIntervalMS = 1000
	}
	if c.Sample.HistoryMonths == 0 {
		c.Sample.HistoryMonths = 128
	}
	if c.Sample.HorizonMonths == 0 {
		c.Sample.HorizonMonths = 32
	}
	if c.Sample.Stride == 0 {
		c.Sample.Stride = 6
	}
	if c.CacheRoot == "" {
		c.CacheRoot = "./gitpulse-cache"
	}
}

// ApplyDefaults applies provider-level defaults to repositories that don't
// have them set, and validates required fields.
func (c *Config) ApplyDefaults() error {
	for providerName, providerConfig := range c.Providers {
		for i := range providerConfig.Repositories {
			repo := &providerConfig.Repositories[i]
			defaults := providerConfig.Default

			if repo.Token == "" {
				repo.Token = defaults.Token
			}
			if repo.Owner == "" {
				repo.Owner = defaults.Owner
			}
			if repo.BaseURL == "" {
				repo.BaseURL = defaults.BaseURL
			}

			if repo.Owner == "" {
				return fmt.Errorf("provider %s: repository at index %d missing required field 'owner'", providerName, i)
			}
			if repo.Repository == "" {
				return fmt.Errorf("provider %s: repository at index %d missing required field 'repository'", providerName, i)
			}
		}
		c.Providers[providerName] = providerConfig
	}

	return nil
}

// RepoWithProvider combines a repository configuration with its provider
// name.
type RepoWithProvider struct {
	Provider string
	Config   RepoConfig
}

// GetAllRepos returns a flat list of all configured repositories with their
// provider name.
func (c *Config) GetAllRepos() []RepoWithProvider {
	var repos []RepoWithProvider
	for providerName, providerConfig := range c.Providers {
		for _, repo := range providerConfig.Repositories {
			repos = append(repos, RepoWithProvider{
				Provider: providerName,
				Config:   repo,
			})
		}
	}
	return repos
}
