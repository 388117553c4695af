// Package orchestrator implements C13: the three top-level operations
// (ingest, forecast, score) wiring C1-C12 together over a per-repository,
// on-disk cache.
package orchestrator

import (
	"log/slog"
	"time"

	"github.com/gitpulse-dev/gitpulse/pkg/config"
	"github.com/gitpulse-dev/gitpulse/pkg/forecaster"
	"github.com/gitpulse-dev/gitpulse/pkg/fusion"
	"github.com/gitpulse-dev/gitpulse/pkg/heatselector"
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/rategovernor"
	"github.com/gitpulse-dev/gitpulse/pkg/sample"
	"github.com/gitpulse-dev/gitpulse/pkg/seriesenc"
	"github.com/gitpulse-dev/gitpulse/pkg/textenc"
)

// lockRetryInterval is how often withRepoLock polls for the advisory lock
// while ctx remains alive.
const lockRetryInterval = 100 * time.Millisecond

// textEncoderSeed/seriesEncoderSeed seed the two frozen upstream encoders.
// Per §4.7/§4.8 neither is ever trained, so unlike the forecaster and
// fusion gate (see forecaster.Manifest) their weights need no checkpoint:
// a fixed seed reproduces them identically forever.
const (
	textEncoderSeed   int64 = 1
	seriesEncoderSeed int64 = 2
)

const textEncoderVersion = "frozen-v1"

// Orchestrator wires MetricSource/TextSource (C1-C2), PanelBuilder (C5),
// Normalizer (C6), SampleWindower (C7), the encoders (C8-C9), AdaptiveFusion
// (C10), Forecaster (C11), and ScoringEngine (C12) into Ingest/Forecast/Score.
type Orchestrator struct {
	CacheRoot string
	Governor  *rategovernor.Governor
	Clock     ingest.Clock
	Logger    *slog.Logger
	HeatK     int

	SampleHistoryMonths      int
	SampleHorizonMonths      int
	SampleStride             int
	TreatRecentMonthsAsStale int

	TextEncoder   *textenc.Encoder
	TextCache     *textenc.Cache
	SeriesEncoder *seriesenc.Encoder

	// Fusion and Forecaster are nil when no checkpoint manifest was
	// configured or it failed to load; Forecast then returns
	// ModelUnavailableError rather than running inference against
	// untrained/arbitrary weights (§7).
	Fusion             *fusion.Gate
	Forecaster         *forecaster.Model
	ForecastConfidence float64
}

// New constructs an Orchestrator from a loaded Config. It never fails on a
// missing or unreadable model checkpoint — that failure is deferred to
// Forecast, which reports it as ModelUnavailableError per §7 — but it does
// fail if the configured text-embedding cache directory cannot be created.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	governor := rategovernor.New(rategovernor.Config{
		RequestsPerHour: cfg.RateGovernor.RequestsPerHour,
		MinInterval:     time.Duration(cfg.RateGovernor.MinIntervalMS) * time.Millisecond,
		PerHost:         cfg.RateGovernor.PerHost,
	})

	var textCache *textenc.Cache
	if cfg.TextEncoderWeightsPath != "" {
		var err error
		textCache, err = textenc.NewCache(cfg.TextEncoderWeightsPath)
		if err != nil {
			return nil, err
		}
	}

	o := &Orchestrator{
		CacheRoot:                cfg.CacheRoot,
		Governor:                 governor,
		Clock:                    ingest.SystemClock{},
		Logger:                   logger,
		HeatK:                    heatselector.DefaultK,
		SampleHistoryMonths:      cfg.Sample.HistoryMonths,
		SampleHorizonMonths:      cfg.Sample.HorizonMonths,
		SampleStride:             cfg.Sample.Stride,
		TreatRecentMonthsAsStale: cfg.Sample.TreatRecentMonthsAsStale,
		TextEncoder:              textenc.New(textEncoderSeed),
		TextCache:                textCache,
		SeriesEncoder:            seriesenc.New(seriesEncoderSeed, seriesenc.DefaultD, seriesenc.DefaultHeads, seriesenc.DefaultLayers),
		ForecastConfidence:       0.5,
	}

	if cfg.ModelCheckpointPath != "" {
		manifest, err := forecaster.LoadManifest(cfg.ModelCheckpointPath)
		if err != nil {
			logger.Warn("forecaster checkpoint unavailable, forecast will report ModelUnavailableError", "path", cfg.ModelCheckpointPath, "error", err)
		} else {
			o.Forecaster = forecaster.Load(manifest)
			o.Fusion = forecaster.LoadFusionGate(manifest, seriesenc.DefaultD, textenc.OutputWidth)
			o.ForecastConfidence = manifest.HeldOutR2
		}
	}

	return o, nil
}

func (o *Orchestrator) sampleDefaults() (history, horizon, stride, stale int) {
	history = o.SampleHistoryMonths
	if history <= 0 {
		history = 128
	}
	horizon = o.SampleHorizonMonths
	if horizon <= 0 {
		horizon = 32
	}
	stride = o.SampleStride
	if stride <= 0 {
		stride = sample.DefaultStride
	}
	stale = o.TreatRecentMonthsAsStale
	return history, horizon, stride, stale
}
