package model

import "time"

// RunResult represents the complete output of one comparison run
type RunResult struct {
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	GroundTruth   string            `json:"ground_truth"`
	Sources       []string          `json:"sources"`
	Quotes        int               `json:"quotes"`
	QuotesSkipped int               `json:"quotes_skipped"`
	Predictions   int               `json:"predictions"` // successfully parsed rows
	Comparisons   []Comparison      `json:"comparisons"`
	Best          []BestSourceOfDay `json:"best"`
	Summaries     []SourceSummary   `json:"summaries"`
	Backtests     []SourceBacktest  `json:"backtests"`
	Overall       SourceBacktest    `json:"overall"`
	Issues        []Issue           `json:"issues"`
	Elapsed       time.Duration     `json:"elapsed"`
}

// IssueCounts tallies the data-quality log by kind
func (r *RunResult) IssueCounts() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, i := range r.Issues {
		counts[i.Kind]++
	}
	return counts
}

// WithinRangeDays counts dates whose winning source also contained the day
func (r *RunResult) WithinRangeDays() int {
	n := 0
	for _, b := range r.Best {
		if b.WithinRange {
			n++
		}
	}
	return n
}
