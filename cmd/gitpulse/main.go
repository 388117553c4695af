package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpulse-dev/gitpulse/pkg/config"
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/orchestrator"
	"github.com/gitpulse-dev/gitpulse/pkg/report"
	consolefmt "github.com/gitpulse-dev/gitpulse/pkg/report/format"
	"github.com/gitpulse-dev/gitpulse/pkg/state"
)

// credentialStore backs token resolution for repositories whose
// configuration and environment both leave the token blank; it starts
// empty and is populated only by a future credential-import command, so
// today it mostly defers to config/env (see state.ResolveProviderToken).
var credentialStore = state.NewInMemoryCredentialStore()

// build-time override (e.g. -ldflags "-X main.version=1.2.3")
var version = "dev"

// Global (root-level) flag variables
var (
	flagVerbose bool
	flagDebug   bool
)

type commonFlags struct {
	outputFormat string
	outputFile   string
	noColor      bool
	timeout      time.Duration
}

type forecastFlags struct {
	commonFlags
	horizonMonths int
	failOnError   bool
}

var fFlags forecastFlags
var sFlags commonFlags
var iFlags struct {
	timeout time.Duration
}

func main() {
	root := newRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitpulse",
		Short: "GitPulse CLI",
		Long: strings.TrimSpace(`
GitPulse - repository health and trajectory forecasting

Ingests monthly metrics and text signals for configured repositories,
fuses them into a forecast of near-term trajectory, and scores current
repository health across six weighted dimensions.`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (info) logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging (overrides --verbose)")
	cmd.Version = version

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newForecastCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gitpulse version: %s\n", version)
		},
	}
}

func newIngestCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ingest <config-file>",
		Short: "Fetch and cache monthly metrics and text signals for configured repositories",
		Long: strings.TrimSpace(`
Fetch each configured repository's monthly metrics and text signals from
its provider, restoring from progress.json where a previous run left off,
and persist the result to the cache root (§6's panel.json/text/*.json/
progress.json layout) without forecasting or scoring.
`),
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	c.Flags().DurationVar(&iFlags.timeout, "timeout", 10*time.Minute, "Timeout for ingesting all configured repositories")
	return c
}

func newForecastCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "forecast <config-file>",
		Short: "Forecast near-term trajectory and score current health for configured repositories",
		Long: strings.TrimSpace(`
Generate a cross-repository report combining a forecast of near-term
trajectory and a current health score for every repository named in the
configuration file. Repositories must already have cached data from a
prior 'ingest' run.

Formats:
  console (default) - adaptive terminal table
  json              - machine-readable JSON

Examples:
  gitpulse forecast repos.yaml
  gitpulse forecast repos.yaml --horizon 6 --format json --out report.json
  gitpulse forecast repos.yaml --format console --no-color
`),
		Args: cobra.ExactArgs(1),
		RunE: runForecast,
	}

	c.Flags().StringVarP(&fFlags.outputFormat, "format", "f", "console", "Output format: console|json")
	c.Flags().StringVarP(&fFlags.outputFile, "out", "o", "", "Write output to file instead of stdout")
	c.Flags().BoolVar(&fFlags.noColor, "no-color", false, "Disable ANSI colors (console format)")
	c.Flags().DurationVar(&fFlags.timeout, "timeout", 5*time.Minute, "Timeout for generating the report")
	c.Flags().IntVar(&fFlags.horizonMonths, "horizon", 0, "Forecast horizon in months (0=use configured default)")
	c.Flags().BoolVar(&fFlags.failOnError, "fail-on-error", false, "Exit with non-zero status if any repository failed to forecast or score")

	return c
}

func newScoreCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "score <config-file>",
		Short: "Score current repository health without forecasting",
		Long: strings.TrimSpace(`
Compute the current six-dimension health score for every repository named
in the configuration file, skipping the forecasting step entirely. Useful
when no trained forecaster checkpoint is available yet.
`),
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	c.Flags().StringVarP(&sFlags.outputFormat, "format", "f", "console", "Output format: console|json")
	c.Flags().StringVarP(&sFlags.outputFile, "out", "o", "", "Write output to file instead of stdout")
	c.Flags().BoolVar(&sFlags.noColor, "no-color", false, "Disable ANSI colors (console format)")
	c.Flags().DurationVar(&sFlags.timeout, "timeout", 5*time.Minute, "Timeout for scoring all configured repositories")

	return c
}

func initLogging() {
	var level slog.Level
	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	default:
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	slog.Debug("logging initialized", "level", level.String())
}

func loadOrchestrator(configFile string) (*config.Config, *orchestrator.Orchestrator, error) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	o, err := orchestrator.New(cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}
	return cfg, o, nil
}

// buildProvider constructs the ingest.Provider for repo, routing GitHub
// traffic through the shared retryablehttp client and leaving GitLab's SDK
// to manage its own transport (RateGovernor paces both above this layer).
func buildProvider(repo ingest.RepoRef) (ingest.Provider, error) {
	switch repo.Provider {
	case "github":
		httpClient := ingest.NewRetryableHTTPClient(slog.Default())
		return ingest.NewGitHubProvider(repo, httpClient)
	case "gitlab":
		return ingest.NewGitLabProvider(repo)
	default:
		return nil, fmt.Errorf("unsupported provider %q", repo.Provider)
	}
}

func repoRef(r config.RepoWithProvider) (ingest.RepoRef, error) {
	token, err := state.ResolveProviderToken(r.Provider, r.Config.Token, credentialStore)
	if err != nil {
		return ingest.RepoRef{}, fmt.Errorf("resolve token for provider %s: %w", r.Provider, err)
	}
	return ingest.RepoRef{
		Provider: r.Provider,
		Owner:    r.Config.Owner,
		Name:     r.Config.Repository,
		BaseURL:  r.Config.BaseURL,
		Token:    token,
	}, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	configFile := args[0]

	cfg, o, err := loadOrchestrator(configFile)
	if err != nil {
		return err
	}

	repos := cfg.GetAllRepos()
	if len(repos) == 0 {
		return errors.New("no repositories configured in the provided file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), iFlags.timeout)
	defer cancel()

	var failed int
	for _, r := range repos {
		ref, err := repoRef(r)
		if err != nil {
			slog.Error("skipping repository", "provider", r.Provider, "owner", r.Config.Owner, "repository", r.Config.Repository, "error", err)
			failed++
			continue
		}
		provider, err := buildProvider(ref)
		if err != nil {
			slog.Error("skipping repository", "repo", ref.Key(), "error", err)
			failed++
			continue
		}

		slog.Info("ingesting repository", "repo", ref.Key())
		panel, _, err := o.Ingest(ctx, ref, provider)
		if err != nil {
			slog.Error("ingest failed", "repo", ref.Key(), "error", err)
			failed++
			continue
		}
		fmt.Printf("%s: cached %d months\n", ref.Key(), len(panel.Axis))
	}

	slog.Info("ingest complete", "repositories", len(repos), "failed", failed, "duration", time.Since(start).String())
	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to ingest", failed, len(repos))
	}
	return nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	start := time.Now()
	configFile := args[0]

	cfg, o, err := loadOrchestrator(configFile)
	if err != nil {
		return err
	}

	repos := cfg.GetAllRepos()
	if len(repos) == 0 {
		return errors.New("no repositories configured in the provided file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), fFlags.timeout)
	defer cancel()

	gen := report.NewGenerator(o, fFlags.horizonMonths)
	rpt, err := gen.Generate(ctx, repos)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := writeReport(rpt, fFlags.commonFlags); err != nil {
		return err
	}

	slog.Info("forecast complete", "repositories", len(rpt.Repositories), "duration", time.Since(start).String())

	if fFlags.failOnError && rpt.HasErrors() {
		return errors.New("one or more repositories failed (fail-on-error enabled)")
	}
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	start := time.Now()
	configFile := args[0]

	cfg, o, err := loadOrchestrator(configFile)
	if err != nil {
		return err
	}

	repos := cfg.GetAllRepos()
	if len(repos) == 0 {
		return errors.New("no repositories configured in the provided file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), sFlags.timeout)
	defer cancel()

	rpt := &report.Report{Repositories: make([]report.RepositoryReport, len(repos))}
	for i, r := range repos {
		rr := report.RepositoryReport{Provider: r.Provider, Owner: r.Config.Owner, Repository: r.Config.Repository}
		if err := ctx.Err(); err != nil {
			rr.ScoreError = err
			rpt.Repositories[i] = rr
			continue
		}
		ref, err := repoRef(r)
		if err != nil {
			rr.ScoreError = err
			rpt.Repositories[i] = rr
			continue
		}
		rr.Score, rr.ScoreError = o.Score(ref)
		if rr.ScoreError != nil {
			slog.Debug("score failed", "repo", ref.Key(), "error", rr.ScoreError)
		}
		rpt.Repositories[i] = rr
	}

	if err := writeReport(rpt, sFlags); err != nil {
		return err
	}

	slog.Info("score complete", "repositories", len(rpt.Repositories), "duration", time.Since(start).String())
	return nil
}

func writeReport(rpt *report.Report, flags commonFlags) error {
	var outWriter ioWriteCloser = stdOutWriteCloser{w: os.Stdout}
	if flags.outputFile != "" {
		if err := os.MkdirAll(filepath.Dir(flags.outputFile), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(flags.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		outWriter = f
	}
	defer outWriter.Close()

	switch strings.ToLower(flags.outputFormat) {
	case "console":
		formatter := consolefmt.NewConsoleFormatter()
		formatter.EnableColors = !flags.noColor
		if err := formatter.Render(rpt, outWriter); err != nil {
			return fmt.Errorf("failed to render console output: %w", err)
		}
	case "json":
		if err := renderJSON(rpt, outWriter); err != nil {
			return fmt.Errorf("failed to render JSON output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", flags.outputFormat)
	}
	return nil
}

type jsonOutput struct {
	Version      string                    `json:"cliVersion"`
	GeneratedAt  time.Time                 `json:"generatedAt"`
	Repositories []report.RepositoryReport `json:"repositories"`
	Summary      jsonSummary               `json:"summary"`
	Errors       map[string]string         `json:"errors,omitempty"`
}

type jsonSummary struct {
	RepositoryCount int `json:"repositoryCount"`
	ScoredCount     int `json:"scoredCount"`
	ForecastCount   int `json:"forecastCount"`
}

func renderJSON(rpt *report.Report, w ioWriter) error {
	scored, forecast := 0, 0
	for _, rr := range rpt.Repositories {
		if rr.ScoreError == nil {
			scored++
		}
		if rr.ForecastError == nil {
			forecast++
		}
	}

	var errMap map[string]string
	if rpt.HasErrors() {
		errMap = make(map[string]string)
		for repoID, err := range rpt.GetErrors() {
			errMap[repoID] = err.Error()
		}
	}

	payload := jsonOutput{
		Version:      version,
		GeneratedAt:  time.Now().UTC(),
		Repositories: rpt.Repositories,
		Summary: jsonSummary{
			RepositoryCount: len(rpt.Repositories),
			ScoredCount:     scored,
			ForecastCount:   forecast,
		},
		Errors: errMap,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
	return nil
}

type ioWriter interface {
	Write(p []byte) (n int, err error)
}

type ioWriteCloser interface {
	ioWriter
	Close() error
}

type stdOutWriteCloser struct {
	w ioWriter
}

func (s stdOutWriteCloser) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s stdOutWriteCloser) Close() error {
	return nil
}
