package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gitpulse-dev/gitpulse/pkg/heatselector"
	"github.com/gitpulse-dev/gitpulse/pkg/rategovernor"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// TextSource implements C2: pulling a repository's static documents and
// per-month commit/issue/release text, applying HeatSelector to cap how
// many issues are kept per month. Every issue of the month is fetched
// from the provider; the cap is applied to what is returned.
type TextSource struct {
	Provider Provider
	Governor *rategovernor.Governor
	HeatK    int // 0 uses heatselector.DefaultK
	Logger   *slog.Logger
}

// NewTextSource constructs a TextSource. A nil Logger defaults to
// slog.Default(); heatK <= 0 uses heatselector.DefaultK.
func NewTextSource(provider Provider, governor *rategovernor.Governor, heatK int, logger *slog.Logger) *TextSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextSource{Provider: provider, Governor: governor, HeatK: heatK, Logger: logger}
}

// staticDocsMonth is the synthetic month key under which progress tracks
// the README/license/docs fetch, since those are not month-indexed.
const staticDocsMonth = schema.Month("static")

// FetchText assembles the TextCorpus for repo over months, skipping any
// (month, stream) already recorded complete in progress.
func (s *TextSource) FetchText(ctx context.Context, repo RepoRef, months []schema.Month, progress *Progress) (*schema.TextCorpus, error) {
	corpus := schema.NewTextCorpus(repo.Key())

	if !progress.IsDone(staticDocsMonth, StreamStatic) {
		if err := s.Governor.AwaitSlot(ctx, repo.Host()); err != nil {
			return nil, fmt.Errorf("text source: %w", err)
		}
		var docs schema.StaticDocs
		err := WithRetry(ctx, isPermanentErr, func() error {
			var err error
			docs, err = s.Provider.StaticDocs(ctx, repo)
			return err
		})
		if err != nil {
			return nil, classifyProviderError(repo, "static", err)
		}
		corpus.Static = docs
		if err := progress.MarkDone(staticDocsMonth, StreamStatic); err != nil {
			return nil, fmt.Errorf("text source: %w", err)
		}
	}

	for _, month := range months {
		text, err := s.fetchMonth(ctx, repo, month, progress)
		if err != nil {
			return nil, err
		}
		corpus.Monthly[month] = text
	}

	return corpus, nil
}

func (s *TextSource) fetchMonth(ctx context.Context, repo RepoRef, month schema.Month, progress *Progress) (schema.MonthText, error) {
	var out schema.MonthText

	if !progress.IsDone(month, StreamCommits) {
		if err := s.Governor.AwaitSlot(ctx, repo.Host()); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
		var commits []schema.CommitRecord
		err := WithRetry(ctx, isPermanentErr, func() error {
			var err error
			commits, err = s.Provider.MonthlyCommits(ctx, repo, month)
			return err
		})
		if err != nil {
			return out, classifyProviderError(repo, "commits", err)
		}
		out.Commits = commits
		if err := progress.MarkDone(month, StreamCommits); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
	}

	if !progress.IsDone(month, StreamIssues) {
		if err := s.Governor.AwaitSlot(ctx, repo.Host()); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
		var raw []RawIssue
		err := WithRetry(ctx, isPermanentErr, func() error {
			var err error
			raw, err = s.Provider.MonthlyIssues(ctx, repo, month)
			return err
		})
		if err != nil {
			return out, classifyProviderError(repo, "issues", err)
		}
		out.Issues = selectHeat(raw, s.HeatK)
		if err := progress.MarkDone(month, StreamIssues); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
	}

	if !progress.IsDone(month, StreamReleases) {
		if err := s.Governor.AwaitSlot(ctx, repo.Host()); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
		var releases []schema.ReleaseRecord
		err := WithRetry(ctx, isPermanentErr, func() error {
			var err error
			releases, err = s.Provider.MonthlyReleases(ctx, repo, month)
			return err
		})
		if err != nil {
			return out, classifyProviderError(repo, "releases", err)
		}
		out.Releases = releases
		if err := progress.MarkDone(month, StreamReleases); err != nil {
			return out, fmt.Errorf("text source: %w", err)
		}
	}

	s.Logger.Debug("fetched monthly text", "repo", repo.Key(), "month", string(month))
	return out, nil
}

// selectHeat converts provider-raw issues into schema.IssueRecord, applying
// HeatSelector's top-K engagement filter before any issue body leaves this
// package (§4.3).
func selectHeat(raw []RawIssue, k int) []schema.IssueRecord {
	records := make([]schema.IssueRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, schema.IssueRecord{
			ID:             r.ID,
			Title:          r.Title,
			Body:           r.Body,
			Labels:         r.Labels,
			TopComments:    r.TopComments,
			CommentsCount:  r.CommentsCount,
			ReactionsCount: r.ReactionsCount,
			CreatedAt:      r.CreatedAt,
		})
	}
	return heatselector.Select(records, k)
}
