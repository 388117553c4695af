package format

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gitpulse-dev/gitpulse/pkg/report"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

func sampleReport() *report.Report {
	good := &schema.ScoreRecord{Repo: "org1/repo1", Overall: 82.5}
	good.Dimensions[schema.DimActivity] = schema.DimensionAggregate{Dimension: schema.DimActivity, Aggregate: 90}
	good.Dimensions[schema.DimRisk] = schema.DimensionAggregate{Dimension: schema.DimRisk, Aggregate: 40}

	forecast := &schema.ForecastRecord{
		Repo:          "org1/repo1",
		HorizonMonths: 6,
		Predictions:   map[string]map[schema.Month]float64{},
		Confidence:    0.76,
		ModelVersion:  "2024.03-0",
	}

	return &report.Report{
		Repositories: []report.RepositoryReport{
			{
				Provider:   "github",
				Owner:      "org1",
				Repository: "repo1",
				Score:      good,
				Forecast:   forecast,
			},
			{
				Provider:      "github",
				Owner:         "org2",
				Repository:    "repo2",
				ScoreError:    errors.New("insufficient history for org2/repo2: have 2 months, need 128"),
				ForecastError: errors.New("model unavailable: no forecaster checkpoint loaded"),
			},
		},
	}
}

func TestConsoleFormatterBasicRender(t *testing.T) {
	rpt := sampleReport()

	var buf bytes.Buffer
	f := NewConsoleFormatter()
	f.EnableColors = false

	if err := f.Render(rpt, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()

	expectContains(t, out, "org1/repo1", "repository org1/repo1 missing")
	expectContains(t, out, "org2/repo2", "repository org2/repo2 missing")
	expectContains(t, out, "82.5", "overall score missing for org1/repo1")
	expectContains(t, out, "2024.03-0", "model version missing for org1/repo1")
	expectContains(t, out, "ERROR", "error marker missing for failing repository cells")
	expectContains(t, out, "Repositories scored: 1/2 successful", "scored summary mismatch")
	expectContains(t, out, "Repositories forecast: 1/2 successful", "forecast summary mismatch")
	expectContains(t, out, "Errors:", "errors section header missing")
	expectContains(t, out, "insufficient history", "score error message missing")
	expectContains(t, out, "model unavailable", "forecast error message missing")

	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected ANSI color sequences found when colors disabled")
	}
}

func TestConsoleFormatterColorsEnabledShowsANSI(t *testing.T) {
	rpt := sampleReport()

	var buf bytes.Buffer
	f := NewConsoleFormatter()
	f.EnableColors = true

	if err := f.Render(rpt, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI color sequences but none found")
	}
	if !strings.Contains(stripANSI(out), "ERROR") {
		t.Errorf("expected ERROR marker in output (stripANSI)")
	}
}

func TestConsoleFormatterNilReport(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter()
	err := f.Render(nil, &buf)
	if err == nil {
		t.Fatalf("expected error rendering nil report, got nil")
	}
}

func expectContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%s: expected to contain %q\nFull output:\n%s", msg, substr, s)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x1b {
			inEsc = true
			continue
		}
		if inEsc {
			if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
				inEsc = false
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
