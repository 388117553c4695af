package orchestrator

import (
	"context"

	"github.com/gitpulse-dev/gitpulse/pkg/fusion"
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/normalize"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
	"github.com/gitpulse-dev/gitpulse/pkg/textenc"
)

// Forecast implements the `forecast(repo, horizon)` operation (C6-C11):
// standardize the cached panel, encode its most recent history window and
// as-of text, fuse them, and run the forecasting head, returning
// predictions in original units.
//
// It returns *schema.DataInsufficientError if fewer than the configured
// history-window months are cached (scenario A), and
// *schema.ModelUnavailableError if no forecaster checkpoint loaded (§7).
func (o *Orchestrator) Forecast(ctx context.Context, repo ingest.RepoRef, horizon int) (*schema.ForecastRecord, error) {
	history, defaultHorizon, _, _ := o.sampleDefaults()
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	if horizon > schema.MaxHorizonMonths {
		horizon = schema.MaxHorizonMonths
	}

	panel, corpus, err := o.LoadCached(repo)
	if err != nil {
		return nil, err
	}
	if panel == nil || panel.Len() < history {
		available := 0
		if panel != nil {
			available = panel.Len()
		}
		return nil, &schema.DataInsufficientError{
			Repo:            repo.Key(),
			MonthsAvailable: available,
			MonthsRequired:  history,
		}
	}
	if o.Forecaster == nil || o.Fusion == nil {
		return nil, &schema.ModelUnavailableError{Reason: "no forecaster checkpoint loaded"}
	}

	stats := normalize.Fit(panel, panel.Len())
	standardized, mask := normalize.ApplyPanel(panel, stats)

	start := panel.Len() - history
	hist := standardized[start:]
	_ = mask // the per-cell mask is consumed by training (SampleWindower); inference only needs the standardized values.

	seriesContext := o.SeriesEncoder.Encode(hist)
	tsGlobal := fusion.GlobalSummary(seriesContext)

	lastHistMonth := panel.Axis[panel.Len()-1]
	var text string
	if corpus != nil {
		text = corpus.TextForWindow(lastHistMonth)
	}
	textVec, absent, err := textenc.EncodeCached(o.TextEncoder, o.TextCache, repo.Key(), textEncoderVersion, text)
	if err != nil {
		return nil, err
	}

	fused, _ := o.Fusion.Fuse(tsGlobal, textVec[:], absent)
	predictedStd := o.Forecaster.Forecast(fused, horizon)

	predicted := make([][schema.NumChannels]float64, len(predictedStd))
	for i, row := range predictedStd {
		predicted[i] = normalize.Invert(row, stats)
	}

	months := make([]schema.Month, len(predicted))
	for i := range predicted {
		months[i] = lastHistMonth.Add(i + 1)
	}

	dir := repoDir(o.CacheRoot, repo)
	if err := saveStats(dir, stats); err != nil {
		return nil, err
	}

	return schema.NewForecastRecord(repo.Key(), months, predicted, o.ForecastConfidence, o.Forecaster.Version), nil
}
