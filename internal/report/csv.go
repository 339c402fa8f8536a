package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rangescope/pkg/model"
)

// Output file names written by WriteCSV
const (
	ComparisonsFile = "comparisons.csv"
	BestFile        = "best_source_per_day.csv"
	SummaryFile     = "source_summary.csv"
	BacktestFile    = "backtest_summary.csv"
	QualityFile     = "data_quality.csv"
)

// WriteCSV writes every tabular output of a run into dir and returns the paths
func WriteCSV(dir string, result *model.RunResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{ComparisonsFile, comparisonRows(result.Comparisons)},
		{BestFile, bestRows(result.Best)},
		{SummaryFile, summaryRows(result.Summaries)},
		{BacktestFile, backtestRows(append(append([]model.SourceBacktest{}, result.Backtests...), result.Overall))},
		{QualityFile, issueRows(result.Issues)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeRows(path, f.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func comparisonRows(comps []model.Comparison) [][]string {
	rows := [][]string{{"Date", "Source", "Support", "Resistance", "Market_Low", "Market_High", "Distance", "Within_Range", "Range_Flag", "Inverted"}}
	for _, c := range comps {
		rows = append(rows, []string{
			c.Date.Format(model.DateLayout),
			c.SourceID,
			c.Support.String(),
			c.Resistance.String(),
			c.ActualLow.String(),
			c.ActualHigh.String(),
			c.Distance.String(),
			strconv.FormatBool(c.WithinRange),
			string(c.Flag),
			strconv.FormatBool(c.Inverted),
		})
	}
	return rows
}

func bestRows(best []model.BestSourceOfDay) [][]string {
	rows := [][]string{{"Date", "Best_Source", "Best_Distance", "Best_WithinRange"}}
	for _, b := range best {
		rows = append(rows, []string{
			b.Date.Format(model.DateLayout),
			b.SourceID,
			b.Distance.String(),
			strconv.FormatBool(b.WithinRange),
		})
	}
	return rows
}

func summaryRows(summaries []model.SourceSummary) [][]string {
	rows := [][]string{{"Source", "Comparisons", "Win_Count", "Win_Pct", "Within_Count", "Within_Pct", "Avg_Distance"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.SourceID,
			strconv.Itoa(s.Comparisons),
			strconv.Itoa(s.WinCount),
			fixed2(s.WinPercentage),
			strconv.Itoa(s.WithinRangeCount),
			fixed2(s.WithinRangePercentage),
			fixed2(s.AverageDistance),
		})
	}
	return rows
}

func backtestRows(backtests []model.SourceBacktest) [][]string {
	rows := [][]string{{
		"Source", "N_Days", "Hit_Count", "Hit_Rate_%", "High_Miss_%", "Low_Miss_%", "Both_Miss_%",
		"Avg_High_Error_pts", "Avg_Low_Error_pts", "Avg_Abs_High_Error_pts", "Avg_Abs_Low_Error_pts",
		"Avg_Total_Error_pts", "Avg_High_Overshoot_pts", "Avg_Low_Overshoot_pts", "Directional_Bias",
	}}
	for _, b := range backtests {
		rows = append(rows, []string{
			b.SourceID,
			strconv.Itoa(b.Days),
			strconv.Itoa(b.HitCount),
			fixed2(b.HitRate),
			fixed2(b.HighMissRate),
			fixed2(b.LowMissRate),
			fixed2(b.BothMissRate),
			fixed2(b.AvgHighError),
			fixed2(b.AvgLowError),
			fixed2(b.AvgAbsHighError),
			fixed2(b.AvgAbsLowError),
			fixed2(b.AvgTotalError),
			fixed2(b.AvgHighOvershoot),
			fixed2(b.AvgLowOvershoot),
			fixed2(b.DirectionalBias),
		})
	}
	return rows
}

func issueRows(issues []model.Issue) [][]string {
	rows := [][]string{{"Kind", "Source", "Date", "Row", "Message"}}
	for _, i := range issues {
		date := ""
		if !i.Date.IsZero() {
			date = i.Date.Format(model.DateLayout)
		}
		row := ""
		if i.Row > 0 {
			row = strconv.Itoa(i.Row)
		}
		rows = append(rows, []string{string(i.Kind), i.SourceID, date, row, i.Message})
	}
	return rows
}

func fixed2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
