package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"rangescope/internal/calendar"
	"rangescope/pkg/model"
)

// PrintSummary renders the per-source summary table and the headline numbers
func PrintSummary(w io.Writer, result *model.RunResult) error {
	if len(result.Best) == 0 {
		fmt.Fprintln(w, "No date had a valid comparison from any source.")
		fmt.Fprintf(w, "Loaded %d quotes and %d predictions in %s\n",
			result.Quotes, result.Predictions, result.Elapsed.Round(time.Millisecond))
		return nil
	}

	fmt.Fprintf(w, "Best source per day over %d dates (%d sources):\n\n", len(result.Best), len(result.Sources))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Source", "Days", "Wins", "Win %", "Within", "Within %", "Avg Dist"}),
	)
	for _, s := range result.Summaries {
		table.Append([]string{
			s.SourceID,
			strconv.Itoa(s.Comparisons),
			strconv.Itoa(s.WinCount),
			fmt.Sprintf("%.1f%%", s.WinPercentage),
			strconv.Itoa(s.WithinRangeCount),
			fmt.Sprintf("%.1f%%", s.WithinRangePercentage),
			fmt.Sprintf("%.2f", s.AverageDistance),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	top := result.Summaries[0]
	within := result.WithinRangeDays()
	fmt.Fprintln(w, "\n--- Top Source ---")
	fmt.Fprintf(w, "  %s: best on %d of %d days (%.2f%%)\n", top.SourceID, top.WinCount, len(result.Best), top.WinPercentage)
	fmt.Fprintf(w, "  Within range on %.2f%% of its %d predictions\n", top.WithinRangePercentage, top.Comparisons)
	fmt.Fprintf(w, "  Days where the best source also contained the day: %d (%.2f%%)\n",
		within, float64(within)/float64(len(result.Best))*100)

	printIssueCounts(w, result)
	fmt.Fprintf(w, "\nCompared %d predictions against %d quotes in %s\n",
		len(result.Comparisons), result.Quotes, result.Elapsed.Round(time.Millisecond))
	return nil
}

// PrintBacktest renders range coverage and error metrics per source
func PrintBacktest(w io.Writer, result *model.RunResult) error {
	if result.Overall.Days == 0 {
		return nil
	}

	fmt.Fprintln(w, "\n--- Range Coverage ---")
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Source", "Days", "Hit %", "High Miss %", "Low Miss %", "Avg Err", "Bias"}),
	)
	rows := append(append([]model.SourceBacktest{}, result.Backtests...), result.Overall)
	for _, b := range rows {
		if b.Days == 0 {
			continue
		}
		table.Append([]string{
			b.SourceID,
			strconv.Itoa(b.Days),
			fmt.Sprintf("%.1f", b.HitRate),
			fmt.Sprintf("%.1f", b.HighMissRate),
			fmt.Sprintf("%.1f", b.LowMissRate),
			fmt.Sprintf("%.1f", b.AvgTotalError),
			fmt.Sprintf("%+.1f", b.DirectionalBias),
		})
	}
	return table.Render()
}

func printIssueCounts(w io.Writer, result *model.RunResult) {
	counts := result.IssueCounts()
	if len(counts) == 0 {
		return
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Fprintln(w, "\n--- Data Quality ---")
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-16s %d\n", k, counts[model.IssueKind(k)])
	}
}

// PrintAudit renders trading-day audit reports
func PrintAudit(w io.Writer, reports []calendar.AuditReport, sample int) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"File", "Records", "First", "Last", "Sat", "Sun", "Holiday", "Status"}),
	)
	for _, r := range reports {
		status := "clean"
		if !r.Clean() {
			status = "NON-TRADING DAYS"
		}
		first, last := "-", "-"
		if r.Total > 0 {
			first = r.First.Format(model.DateLayout)
			last = r.Last.Format(model.DateLayout)
		}
		table.Append([]string{
			r.Name,
			strconv.Itoa(r.Total),
			first,
			last,
			strconv.Itoa(r.Saturdays),
			strconv.Itoa(r.Sundays),
			strconv.Itoa(r.Holidays),
			status,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Clean() || sample <= 0 {
			continue
		}
		fmt.Fprintf(w, "\n[%s] non-trading dates:\n", r.Name)
		for i, d := range r.Offending {
			if i >= sample {
				fmt.Fprintf(w, "  ... %d more\n", len(r.Offending)-sample)
				break
			}
			fmt.Fprintf(w, "  %s (%s)\n", d.Format(model.DateLayout), d.Weekday())
		}
	}
	return nil
}

// WriteJSON encodes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
