package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// repoDir returns the cache directory for repo, nested by provider/owner/name
// so two repositories never collide even when names repeat across hosts.
func repoDir(cacheRoot string, repo ingest.RepoRef) string {
	return filepath.Join(cacheRoot, repo.Provider, repo.Owner, repo.Name)
}

func panelPath(dir string) string       { return filepath.Join(dir, "panel.json") }
func textStaticPath(dir string) string  { return filepath.Join(dir, "text", "static.json") }
func textMonthPath(dir string, m schema.Month) string {
	return filepath.Join(dir, "text", string(m)+".json")
}
func statsPath(dir string) string    { return filepath.Join(dir, "stats.json") }
func progressPath(dir string) string { return filepath.Join(dir, "progress.json") }
func lockPath(dir string) string     { return filepath.Join(dir, ".lock") }

// withRepoLock holds an advisory, process-and-goroutine-safe exclusive
// lock on repo's cache directory for the duration of fn, per §5's "cache
// dir protected by per-repository advisory locks." Two orchestrators
// (or two CLI invocations) never race on the same repository's on-disk
// state.
func withRepoLock(ctx context.Context, dir string, fn func() error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("orchestrator: create cache dir: %w", err)
	}
	lock := flock.New(lockPath(dir))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("orchestrator: acquire repository lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("orchestrator: repository %s is locked by another process", dir)
	}
	defer lock.Unlock()
	return fn()
}

func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("orchestrator: create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("orchestrator: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("orchestrator: parse %s: %w", path, err)
	}
	return true, nil
}

// panelFile mirrors schema.MonthlyPanel on disk. The cache is keyed by
// repository identity alone (repoDir); re-ingesting always widens the
// stored axis forward from RepoCreatedMonth rather than narrowing or
// deleting it, so a rerun's cache write is append-only in effect even
// though it overwrites panel.json in place.
type panelFile struct {
	Repo    string                        `json:"repo"`
	Axis    []schema.Month                `json:"axis"`
	Values  [][schema.NumChannels]float64 `json:"values"`
	Present [][schema.NumChannels]bool    `json:"present"`
}

// savePanel persists panel under dir/panel.json.
func savePanel(dir string, panel *schema.MonthlyPanel) error {
	if err := panel.Validate(); err != nil {
		return err
	}
	pf := panelFile{Repo: panel.Repo, Axis: panel.Axis, Values: panel.Values, Present: panel.Present}
	return writeJSONAtomic(panelPath(dir), pf)
}

// loadPanel reads dir/panel.json, reporting ok=false if it does not exist.
func loadPanel(dir string) (panel *schema.MonthlyPanel, ok bool, err error) {
	var pf panelFile
	ok, err = readJSON(panelPath(dir), &pf)
	if err != nil || !ok {
		return nil, ok, err
	}
	panel, err = schema.NewMonthlyPanel(pf.Repo, pf.Axis)
	if err != nil {
		return nil, false, fmt.Errorf("orchestrator: cached panel: %w", err)
	}
	panel.Values = pf.Values
	panel.Present = pf.Present
	return panel, true, nil
}

// saveTextCorpus persists corpus as dir/text/static.json plus one
// dir/text/<YYYY-MM>.json per tracked month, per §6.
func saveTextCorpus(dir string, corpus *schema.TextCorpus) error {
	if err := writeJSONAtomic(textStaticPath(dir), corpus.Static); err != nil {
		return err
	}
	for month, text := range corpus.Monthly {
		if err := writeJSONAtomic(textMonthPath(dir, month), text); err != nil {
			return err
		}
	}
	return nil
}

// loadTextCorpus reconstructs a TextCorpus for repo from dir, restricted
// to the given axis; months without a cached file are simply absent from
// the returned corpus, matching the semantics TextSource.FetchText
// produces on first ingest.
func loadTextCorpus(dir, repoKey string, axis []schema.Month) (*schema.TextCorpus, error) {
	corpus := schema.NewTextCorpus(repoKey)
	if _, err := readJSON(textStaticPath(dir), &corpus.Static); err != nil {
		return nil, err
	}
	for _, m := range axis {
		var text schema.MonthText
		ok, err := readJSON(textMonthPath(dir, m), &text)
		if err != nil {
			return nil, err
		}
		if ok {
			corpus.Monthly[m] = text
		}
	}
	return corpus, nil
}

// saveStats persists NormalizationStats under dir/stats.json.
func saveStats(dir string, stats *schema.NormalizationStats) error {
	return writeJSONAtomic(statsPath(dir), stats)
}

// loadStats reads dir/stats.json, reporting ok=false if it does not exist.
func loadStats(dir string) (*schema.NormalizationStats, bool, error) {
	var stats schema.NormalizationStats
	ok, err := readJSON(statsPath(dir), &stats)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stats, true, nil
}
