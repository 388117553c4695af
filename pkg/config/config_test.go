package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gitpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  github:
    default:
      token: "test-token"
      owner: "test-owner"
    repositories:
      - repository: "repo1"
      - repository: "repo2"
        owner: "other-owner"
rate_governor:
  requests_per_hour: 1000
cache_root: /tmp/gitpulse
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	repos := cfg.GetAllRepos()
	require.Len(t, repos, 2)

	byRepo := map[string]RepoWithProvider{}
	for _, r := range repos {
		byRepo[r.Config.Repository] = r
	}

	assert.Equal(t, "test-owner", byRepo["repo1"].Config.Owner)
	assert.Equal(t, "test-token", byRepo["repo1"].Config.Token)
	assert.Equal(t, "other-owner", byRepo["repo2"].Config.Owner)

	assert.Equal(t, 1000, cfg.RateGovernor.RequestsPerHour)
	assert.Equal(t, 1000, cfg.RateGovernor.MinIntervalMS, "unset knob falls back to the §4.2 default")
	assert.Equal(t, 128, cfg.Sample.HistoryMonths)
	assert.Equal(t, 32, cfg.Sample.HorizonMonths)
	assert.Equal(t, 6, cfg.Sample.Stride)
	assert.Equal(t, "/tmp/gitpulse", cfg.CacheRoot)
}

func TestLoadFromFileMissingOwnerIsRejected(t *testing.T) {
	path := writeConfig(t, `
providers:
  github:
    repositories:
      - repository: "repo1"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestDefaultsAreAppliedWhenConfigOmitsThem(t *testing.T) {
	path := writeConfig(t, `
providers:
  github:
    default:
      owner: "acme"
    repositories:
      - repository: "widgets"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3600, cfg.RateGovernor.RequestsPerHour)
	assert.Equal(t, "./gitpulse-cache", cfg.CacheRoot)
}
