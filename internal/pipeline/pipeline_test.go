package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangescope/internal/config"
	"rangescope/internal/store"
	"rangescope/pkg/model"
)

const groundTruth = `Date,Open,High,Low,Close
2025-01-02,95,100,90,97
2025-01-03,97,110,95,105
2025-01-06,105,120,100,110
2025-01-08,110,115,105,112
`

// 2025-01-04 is a Saturday and 2025-01-07 has no quote
const sourceA = `Date,Support,Resistance
2025-01-02,85,105
2025-01-03,94,111
2025-01-03,1,1
2025-01-04,1,2
2025-01-07,90,100
2025-01-06,125,95
`

const sourceB = `Date,Nifty_Range
2025-01-02,92 - 98
2025-01-03,
`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setup(t *testing.T, files map[string]string, sources ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	cfg := config.DefaultConfig()
	cfg.Input.GroundTruth = filepath.Join(dir, "NIFTY_50.csv")
	cfg.Input.SourcesDir = dir
	cfg.Output.Dir = filepath.Join(dir, "reports")
	cfg.Sources = nil
	for _, id := range sources {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{ID: id, File: id + ".csv"})
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, quietLogger())
	require.NoError(t, err)
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        sourceA,
		"b.csv":        sourceB,
	}, "a", "b")
	p := newPipeline(t, cfg)

	var progress [][2]int
	p.SetProgressCallback(func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{"a", "b"}, result.Sources)
	assert.Equal(t, 4, result.Quotes)
	assert.Equal(t, 7, result.Predictions)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	// Comparisons sorted by date, then source
	require.Len(t, result.Comparisons, 4)
	got := make([]string, len(result.Comparisons))
	for i, c := range result.Comparisons {
		got[i] = c.Date.Format(model.DateLayout) + "/" + c.SourceID + "/" + c.Distance.String()
	}
	assert.Equal(t, []string{
		"2025-01-02/a/10",
		"2025-01-02/b/4",
		"2025-01-03/a/2",
		"2025-01-06/a/50",
	}, got)
	assert.True(t, result.Comparisons[3].Inverted)

	require.Len(t, result.Best, 3)
	assert.Equal(t, "b", result.Best[0].SourceID, "closest wins even when not within range")
	assert.False(t, result.Best[0].WithinRange)
	assert.Equal(t, "a", result.Best[1].SourceID)
	assert.Equal(t, "a", result.Best[2].SourceID)
	assert.Equal(t, 1, result.WithinRangeDays())

	require.Len(t, result.Summaries, 2)
	a, b := result.Summaries[0], result.Summaries[1]
	assert.Equal(t, "a", a.SourceID)
	assert.Equal(t, 2, a.WinCount)
	assert.Equal(t, 3, a.Comparisons)
	assert.Equal(t, 2, a.WithinRangeCount)
	assert.InDelta(t, 200.0/3, a.WinPercentage, 1e-9)
	assert.Equal(t, "b", b.SourceID)
	assert.Equal(t, 1, b.WinCount)
	assert.Zero(t, b.WithinRangeCount)

	counts := result.IssueCounts()
	assert.Equal(t, 1, counts[model.IssueDuplicateRow])
	assert.Equal(t, 1, counts[model.IssueNonTradingDay])
	assert.Equal(t, 2, counts[model.IssueUnknownDate])
	assert.Equal(t, 1, counts[model.IssueInvertedRange])
	assert.Equal(t, 1, counts[model.IssueParseError])
	assert.Equal(t, 1, counts[model.IssueEmptyDate])

	for _, issue := range result.Issues {
		if issue.Kind == model.IssueEmptyDate {
			assert.Equal(t, "2025-01-08", issue.Date.Format(model.DateLayout))
		}
		if issue.Kind == model.IssueParseError {
			assert.Equal(t, "b", issue.SourceID)
			assert.Equal(t, 2, issue.Row)
		}
	}

	require.Len(t, result.Backtests, 2)
	assert.Equal(t, 4, result.Overall.Days)
}

func TestRun_MissingSourceIsFatal(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        sourceA,
	}, "a", "missing")

	_, err := newPipeline(t, cfg).Run(context.Background())
	require.Error(t, err)

	var missing *store.MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "missing", missing.Role)
}

func TestRun_MissingGroundTruthIsFatal(t *testing.T) {
	cfg := setup(t, map[string]string{"a.csv": sourceA}, "a")

	_, err := newPipeline(t, cfg).Run(context.Background())
	var missing *store.MissingFileError
	assert.True(t, errors.As(err, &missing))
}

func TestRun_UnresolvableSchemaIsSkipped(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        sourceA,
		"news.csv":     "Headline,Body\nmarkets up,text\n",
	}, "a", "news")

	result, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)

	var schemaIssues int
	for _, issue := range result.Issues {
		if issue.Kind == model.IssueParseError && issue.SourceID == "news" {
			schemaIssues++
			assert.Zero(t, issue.Row)
		}
	}
	assert.Equal(t, 1, schemaIssues)

	// The skipped source still gets an empty summary row
	require.Len(t, result.Summaries, 2)
	assert.Equal(t, "news", result.Summaries[1].SourceID)
	assert.Zero(t, result.Summaries[1].Comparisons)
}

func TestRun_Cancelled(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        sourceA,
	}, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoComparisons(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        "Date,Support,Resistance\n2024-06-03,1,2\n",
	}, "a")

	result, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Comparisons)
	assert.Empty(t, result.Best)
	assert.Equal(t, 4, result.IssueCounts()[model.IssueEmptyDate])
	require.Len(t, result.Summaries, 1)
	assert.Zero(t, result.Summaries[0].WinPercentage)
}

func TestCompare_Deterministic(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	book, err := store.QuotesFromTable(&store.Table{
		Header: []string{"Date", "High", "Low"},
		Rows:   [][]string{{"2025-01-02", "100", "90"}},
	})
	require.NoError(t, err)

	preds := []model.SourcePrediction{
		{Date: day, SourceID: "z", SupportLow: dec("92"), ResistanceHigh: dec("98")},
		{Date: day, SourceID: "m", SupportLow: dec("85"), ResistanceHigh: dec("105")},
	}
	reversed := []model.SourcePrediction{preds[1], preds[0]}

	c1, _ := Compare(book, preds, nil)
	c2, _ := Compare(book, reversed, nil)
	require.Len(t, c1, 2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, "m", c1[0].SourceID)
}

func TestAudit(t *testing.T) {
	cfg := setup(t, map[string]string{
		"NIFTY_50.csv": groundTruth,
		"a.csv":        sourceA,
	}, "a", "missing")

	reports, err := newPipeline(t, cfg).Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2, "missing source is skipped")

	assert.Equal(t, "NIFTY_50.csv", reports[0].Name)
	assert.True(t, reports[0].Clean())
	assert.Equal(t, "a.csv", reports[1].Name)
	assert.Equal(t, 6, reports[1].Total)
	assert.Equal(t, 1, reports[1].Saturdays)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
