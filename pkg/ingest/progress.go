package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Stream names the text/metric stream a progress entry belongs to.
type Stream string

const (
	StreamMetrics  Stream = "metrics"
	StreamCommits  Stream = "commits"
	StreamIssues   Stream = "issues"
	StreamReleases Stream = "releases"
	StreamStatic   Stream = "static"
)

// progressKey is a (month, stream) pair recorded as complete.
type progressKey struct {
	Month  schema.Month
	Stream Stream
}

// Progress is the durable "what's already been fetched" ledger for one
// repository, persisted as progress.json per §6. Reruns of ingest consult
// it before issuing any external request, making the whole fetch idempotent
// and resumable (§4.1, §8 property 8).
type Progress struct {
	mu   sync.Mutex
	path string
	done map[progressKey]bool
}

type progressFile struct {
	Done []progressEntry `json:"done"`
}

type progressEntry struct {
	Month  schema.Month `json:"month"`
	Stream Stream       `json:"stream"`
}

// LoadProgress reads progress.json at path, returning an empty Progress if
// the file does not yet exist.
func LoadProgress(path string) (*Progress, error) {
	p := &Progress{path: path, done: make(map[progressKey]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var pf progressFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse progress file: %w", err)
	}
	for _, e := range pf.Done {
		p.done[progressKey{Month: e.Month, Stream: e.Stream}] = true
	}
	return p, nil
}

// IsDone reports whether (month, stream) was already fetched in a prior run.
func (p *Progress) IsDone(month schema.Month, stream Stream) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done[progressKey{Month: month, Stream: stream}]
}

// MarkDone records (month, stream) as complete and flushes to disk
// immediately, so a crash mid-ingest loses at most the in-flight fetch.
func (p *Progress) MarkDone(month schema.Month, stream Stream) error {
	p.mu.Lock()
	p.done[progressKey{Month: month, Stream: stream}] = true
	p.mu.Unlock()
	return p.flush()
}

func (p *Progress) flush() error {
	p.mu.Lock()
	entries := make([]progressEntry, 0, len(p.done))
	for k := range p.done {
		entries = append(entries, progressEntry{Month: k.Month, Stream: k.Stream})
	}
	p.mu.Unlock()

	data, err := json.MarshalIndent(progressFile{Done: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	return os.Rename(tmp, p.path)
}
