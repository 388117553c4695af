package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gitpulse-dev/gitpulse/pkg/rategovernor"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// MetricSource implements C1: pulling a repository's monthly numeric panel
// from an external provider, paced by RateGovernor and resumable via
// Progress.
type MetricSource struct {
	Provider Provider
	Governor *rategovernor.Governor
	Clock    Clock
	Logger   *slog.Logger
}

// NewMetricSource constructs a MetricSource. A nil Clock defaults to
// SystemClock{}; a nil Logger defaults to slog.Default().
func NewMetricSource(provider Provider, governor *rategovernor.Governor, clock Clock, logger *slog.Logger) *MetricSource {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricSource{Provider: provider, Governor: governor, Clock: clock, Logger: logger}
}

// FetchMetrics pulls every month in [repo's created month, today) for repo,
// consulting and updating progress so a rerun against an already-complete
// repository issues zero external requests (§8 property 8).
func (s *MetricSource) FetchMetrics(ctx context.Context, repo RepoRef, progress *Progress) (*schema.MonthlyPanel, error) {
	created, err := s.Provider.RepoCreatedMonth(ctx, repo)
	if err != nil {
		return nil, classifyProviderError(repo, "repo_created_month", err)
	}

	today := schema.NewMonth(s.Clock.Now())
	if today.Before(created) || today == created {
		// Nothing observable yet; an empty single-month axis.
		return schema.NewMonthlyPanel(repo.Key(), []schema.Month{created})
	}
	lastObserved := today.Add(-1)

	axis, err := schema.MonthRange(created, lastObserved)
	if err != nil {
		return nil, fmt.Errorf("metric source: %w", err)
	}

	panel, err := schema.NewMonthlyPanel(repo.Key(), axis)
	if err != nil {
		return nil, fmt.Errorf("metric source: %w", err)
	}

	for _, month := range axis {
		if progress.IsDone(month, StreamMetrics) {
			continue
		}
		if err := s.Governor.AwaitSlot(ctx, repo.Host()); err != nil {
			return nil, fmt.Errorf("metric source: %w", err)
		}

		var values map[schema.Channel]float64
		fetchErr := WithRetry(ctx, isPermanentErr, func() error {
			var err error
			values, err = s.Provider.MonthlyMetrics(ctx, repo, month)
			return err
		})
		if fetchErr != nil {
			return nil, classifyProviderError(repo, "metrics", fetchErr)
		}

		for ch, v := range values {
			panel.Set(month, ch, v)
		}

		if err := progress.MarkDone(month, StreamMetrics); err != nil {
			return nil, fmt.Errorf("metric source: %w", err)
		}
		s.Logger.Debug("fetched monthly metrics", "repo", repo.Key(), "month", string(month))
	}

	return panel, nil
}

// isPermanentErr identifies a provider error that should not be retried:
// an IngestionPermanentError, or context cancellation (never masked as
// transient).
func isPermanentErr(err error) bool {
	if errIsContextDone(err) {
		return true
	}
	return asIngestionPermanent(err) != nil
}

func asIngestionPermanent(err error) *schema.IngestionPermanentError {
	var perm *schema.IngestionPermanentError
	if errors.As(err, &perm) {
		return perm
	}
	return nil
}

func classifyProviderError(repo RepoRef, stage string, err error) error {
	if err == nil {
		return nil
	}
	if perm := asIngestionPermanent(err); perm != nil {
		return perm
	}
	return &schema.IngestionTransientError{Repo: repo.Key(), Stream: stage, Err: err}
}
