package orchestrator

import (
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
	"github.com/gitpulse-dev/gitpulse/pkg/scoring"
)

// Score implements the `score(repo)` operation (C12): computes a
// ScoreRecord from whatever panel Ingest has already cached for repo.
// Unlike Forecast, Score has no minimum-history requirement — ScoringEngine
// degrades gracefully per month via its coverage gate rather than refusing
// outright.
func (o *Orchestrator) Score(repo ingest.RepoRef) (*schema.ScoreRecord, error) {
	panel, _, err := o.LoadCached(repo)
	if err != nil {
		return nil, err
	}
	if panel == nil {
		return nil, &schema.DataInsufficientError{Repo: repo.Key(), MonthsAvailable: 0, MonthsRequired: 1}
	}
	return scoring.Score(panel), nil
}
