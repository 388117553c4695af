package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse-dev/gitpulse/pkg/config"
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/orchestrator"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// fakeProvider is a minimal, network-free ingest.Provider backing these
// report-level tests, analogous to the mock used in pkg/orchestrator's
// own tests.
type fakeProvider struct{ created schema.Month }

func (p fakeProvider) RepoCreatedMonth(ctx context.Context, repo ingest.RepoRef) (schema.Month, error) {
	return p.created, nil
}

func (p fakeProvider) MonthlyMetrics(ctx context.Context, repo ingest.RepoRef, month schema.Month) (map[schema.Channel]float64, error) {
	return map[schema.Channel]float64{schema.Stars: 10, schema.OpenRank: 5}, nil
}

func (p fakeProvider) StaticDocs(ctx context.Context, repo ingest.RepoRef) (schema.StaticDocs, error) {
	return schema.StaticDocs{Docs: map[string]string{}}, nil
}

func (p fakeProvider) MonthlyCommits(ctx context.Context, repo ingest.RepoRef, month schema.Month) ([]schema.CommitRecord, error) {
	return nil, nil
}

func (p fakeProvider) MonthlyIssues(ctx context.Context, repo ingest.RepoRef, month schema.Month) ([]ingest.RawIssue, error) {
	return nil, nil
}

func (p fakeProvider) MonthlyReleases(ctx context.Context, repo ingest.RepoRef, month schema.Month) ([]schema.ReleaseRecord, error) {
	return nil, nil
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	cfg := &config.Config{CacheRoot: t.TempDir()}
	cfg.RateGovernor.RequestsPerHour = 1_000_000
	cfg.Sample.HistoryMonths = 3
	cfg.Sample.HorizonMonths = 2

	o, err := orchestrator.New(cfg, nil)
	require.NoError(t, err)
	o.Clock = fixedClock{time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}
	return o
}

func writeTestManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.toml")
	content := `
version = "test-v1"
seed = 7
d = 128
d_prime = 64
max_horizon_months = 32
held_out_mse = 0.08
held_out_r2 = 0.76
held_out_directional_accuracy = 0.87
fusion_seed = 11
fusion_w_min = 0.10
fusion_w_max = 0.30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestOrchestratorWithCheckpoint(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	cfg := &config.Config{CacheRoot: t.TempDir(), ModelCheckpointPath: writeTestManifest(t)}
	cfg.RateGovernor.RequestsPerHour = 1_000_000
	cfg.Sample.HistoryMonths = 3
	cfg.Sample.HorizonMonths = 2

	o, err := orchestrator.New(cfg, nil)
	require.NoError(t, err)
	o.Clock = fixedClock{time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}
	return o
}

func TestGenerateProducesOneReportPerRepo(t *testing.T) {
	o := newTestOrchestratorWithCheckpoint(t)
	provider := fakeProvider{created: "2023-01"}

	repos := []config.RepoWithProvider{
		{Provider: "github", Config: config.RepoConfig{Owner: "acme", Repository: "widgets"}},
		{Provider: "gitlab", Config: config.RepoConfig{Owner: "acme", Repository: "gadgets"}},
	}

	for _, r := range repos {
		ref := ingest.RepoRef{Provider: r.Provider, Owner: r.Config.Owner, Name: r.Config.Repository}
		_, _, err := o.Ingest(context.Background(), ref, provider)
		require.NoError(t, err)
	}

	gen := NewGenerator(o, 2)
	rpt, err := gen.Generate(context.Background(), repos)
	require.NoError(t, err)
	require.Len(t, rpt.Repositories, 2)

	for _, rr := range rpt.Repositories {
		assert.NoError(t, rr.ScoreError)
		assert.NoError(t, rr.ForecastError)
		assert.NotNil(t, rr.Score)
		assert.NotNil(t, rr.Forecast)
		assert.Equal(t, 2, rr.Forecast.HorizonMonths)
	}

	assert.False(t, rpt.HasErrors())
	assert.Empty(t, rpt.GetErrors())
}

func TestGenerateSurfacesForecastErrorWithoutCheckpoint(t *testing.T) {
	// newTestOrchestrator never configures ModelCheckpointPath, so
	// Forecast must report ModelUnavailableError while Score still
	// succeeds independently.
	o := newTestOrchestrator(t)
	provider := fakeProvider{created: "2023-01"}
	repos := []config.RepoWithProvider{
		{Provider: "github", Config: config.RepoConfig{Owner: "acme", Repository: "widgets"}},
	}
	ref := ingest.RepoRef{Provider: "github", Owner: "acme", Name: "widgets"}
	_, _, err := o.Ingest(context.Background(), ref, provider)
	require.NoError(t, err)

	gen := NewGenerator(o, 2)
	rpt, err := gen.Generate(context.Background(), repos)
	require.NoError(t, err)
	require.Len(t, rpt.Repositories, 1)

	rr := rpt.Repositories[0]
	assert.Error(t, rr.ForecastError)
	assert.NoError(t, rr.ScoreError)
	assert.NotNil(t, rr.Score)

	assert.True(t, rpt.HasErrors())
	errs := rpt.GetErrors()
	_, ok := errs["forecast: acme/widgets"]
	assert.True(t, ok)
}

func TestGetRepoIdentifier(t *testing.T) {
	rr := RepositoryReport{Owner: "myorg", Repository: "myrepo"}
	assert.Equal(t, "myorg/myrepo", rr.GetRepoIdentifier())
}

func TestHasErrorsAndGetErrors(t *testing.T) {
	rpt := &Report{
		Repositories: []RepositoryReport{
			{Owner: "owner1", Repository: "repo1"},
			{Owner: "owner2", Repository: "repo2", ScoreError: errors.New("boom")},
		},
	}
	assert.True(t, rpt.HasErrors())
	errs := rpt.GetErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs["score: owner2/repo2"].Error())
}

func TestHasErrorsFalseWhenEmpty(t *testing.T) {
	rpt := &Report{}
	assert.False(t, rpt.HasErrors())
	assert.Empty(t, rpt.GetErrors())
}
