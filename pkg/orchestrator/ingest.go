package orchestrator

import (
	"context"
	"fmt"

	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/panelbuilder"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Ingest implements the `ingest(repo)` operation: fetching every month's
// numeric metrics and text via provider, merging with whatever was already
// cached, and persisting the result under CacheRoot. It is resumable —
// rerunning against a repository with nothing new to fetch issues zero
// external requests (§8 property 8) — because FetchMetrics/FetchText
// consult the same on-disk progress.json this call loads and updates.
func (o *Orchestrator) Ingest(ctx context.Context, repo ingest.RepoRef, provider ingest.Provider) (*schema.MonthlyPanel, *schema.TextCorpus, error) {
	dir := repoDir(o.CacheRoot, repo)

	var panel *schema.MonthlyPanel
	var corpus *schema.TextCorpus

	err := withRepoLock(ctx, dir, func() error {
		progress, err := ingest.LoadProgress(progressPath(dir))
		if err != nil {
			return err
		}

		metricSource := ingest.NewMetricSource(provider, o.Governor, o.Clock, o.Logger)
		panel, err = metricSource.FetchMetrics(ctx, repo, progress)
		if err != nil {
			return fmt.Errorf("orchestrator: ingest %s: %w", repo.Key(), err)
		}

		textSource := ingest.NewTextSource(provider, o.Governor, o.HeatK, o.Logger)
		corpus, err = textSource.FetchText(ctx, repo, panel.Axis, progress)
		if err != nil {
			return fmt.Errorf("orchestrator: ingest %s: %w", repo.Key(), err)
		}

		// Restrict the corpus to the panel's current axis in case an
		// earlier run's axis has since been superseded by a wider one,
		// so PanelBuilder's no-leakage contract (§4.4/§4.6) always holds
		// against what's actually persisted.
		corpus.Monthly = panelbuilder.TextWindow(corpus, panel.Axis)

		if err := savePanel(dir, panel); err != nil {
			return err
		}
		if err := saveTextCorpus(dir, corpus); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	o.Logger.Info("ingest complete", "repo", repo.Key(), "months", len(panel.Axis))
	return panel, corpus, nil
}

// LoadCached reads back whatever Ingest has already persisted for repo,
// without contacting any provider. Forecast and Score both build on this.
func (o *Orchestrator) LoadCached(repo ingest.RepoRef) (*schema.MonthlyPanel, *schema.TextCorpus, error) {
	dir := repoDir(o.CacheRoot, repo)

	panel, ok, err := loadPanel(dir)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	corpus, err := loadTextCorpus(dir, repo.Key(), panel.Axis)
	if err != nil {
		return nil, nil, err
	}
	return panel, corpus, nil
}
