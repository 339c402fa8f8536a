package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rangescope/internal/analyzer"
	"rangescope/internal/backtest"
	"rangescope/internal/calendar"
	"rangescope/internal/config"
	"rangescope/internal/parser"
	"rangescope/internal/selector"
	"rangescope/internal/store"
	"rangescope/pkg/model"
)

// ProgressCallback is called after each source file is processed
type ProgressCallback func(done, total int)

// Pipeline loads the inputs, scores every prediction and aggregates the results
type Pipeline struct {
	cfg          *config.Config
	calendar     *calendar.Calendar
	logger       *logrus.Logger
	progressFunc ProgressCallback
}

// New creates a pipeline for a validated config
func New(cfg *config.Config, logger *logrus.Logger) (*Pipeline, error) {
	cal, err := calendar.New(cfg.Calendar.ExtraHolidays...)
	if err != nil {
		return nil, fmt.Errorf("building calendar: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{cfg: cfg, calendar: cal, logger: logger}, nil
}

// SetProgressCallback sets the progress callback function
func (p *Pipeline) SetProgressCallback(fn ProgressCallback) {
	p.progressFunc = fn
}

// Run executes a full comparison. A missing input file aborts the run;
// row-level problems are recorded in the result's issue log.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	startTime := time.Now()
	result := &model.RunResult{
		RunID:       uuid.NewString(),
		StartedAt:   startTime,
		GroundTruth: p.cfg.Input.GroundTruth,
		Sources:     p.cfg.SourceIDs(),
	}

	book, err := store.LoadQuotes(p.cfg.Input.GroundTruth)
	if err != nil {
		return nil, fmt.Errorf("loading ground truth: %w", err)
	}
	result.Quotes = book.Len()
	result.QuotesSkipped = book.Skipped
	p.logger.WithFields(logrus.Fields{
		"file":    p.cfg.Input.GroundTruth,
		"quotes":  book.Len(),
		"skipped": book.Skipped,
	}).Info("loaded ground truth")

	var preds []model.SourcePrediction
	for i, src := range p.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parsed, issues, err := p.loadSource(src)
		if err != nil {
			return nil, err
		}
		preds = append(preds, parsed...)
		result.Issues = append(result.Issues, issues...)

		if p.progressFunc != nil {
			p.progressFunc(i+1, len(p.cfg.Sources))
		}
	}
	result.Predictions = len(preds)

	comps, issues := Compare(book, preds, p.calendar)
	result.Issues = append(result.Issues, issues...)
	result.Comparisons = comps

	result.Best = selector.SelectBest(comps)
	for _, d := range selector.EmptyDates(book.Dates(), result.Best) {
		result.Issues = append(result.Issues, model.Issue{
			Kind:    model.IssueEmptyDate,
			Date:    d,
			Message: "no valid comparison from any source",
		})
	}
	result.Summaries = selector.Summarize(comps, result.Best, result.Sources)
	result.Backtests = backtest.Run(comps, result.Sources)
	result.Overall = backtest.Overall(comps)

	for _, issue := range result.Issues {
		p.logIssue(issue)
	}
	result.Elapsed = time.Since(startTime)
	return result, nil
}

// loadSource reads and parses one source file. A schema that cannot be
// resolved excludes the whole file but is not fatal.
func (p *Pipeline) loadSource(src config.SourceConfig) ([]model.SourcePrediction, []model.Issue, error) {
	path := p.cfg.SourcePath(src)
	table, err := store.LoadTable(src.ID, path)
	if err != nil {
		var missing *store.MissingFileError
		if errors.As(err, &missing) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("loading source %s: %w", src.ID, err)
	}

	preds, failures, err := parser.ParseTable(src.ID, table, p.cfg.AliasesFor(src))
	if err != nil {
		return nil, []model.Issue{{
			Kind:     model.IssueParseError,
			SourceID: src.ID,
			Message:  err.Error(),
		}}, nil
	}

	issues := make([]model.Issue, 0, len(failures))
	for _, f := range failures {
		issues = append(issues, model.Issue{
			Kind:     model.IssueParseError,
			SourceID: f.SourceID,
			Row:      f.Row,
			Message:  f.Error(),
		})
	}

	p.logger.WithFields(logrus.Fields{
		"source": src.ID,
		"rows":   len(table.Rows),
		"parsed": len(preds),
		"failed": len(failures),
	}).Debug("parsed source")
	return preds, issues, nil
}

func (p *Pipeline) logIssue(issue model.Issue) {
	fields := logrus.Fields{"kind": issue.Kind}
	if issue.SourceID != "" {
		fields["source"] = issue.SourceID
	}
	if !issue.Date.IsZero() {
		fields["date"] = issue.Date.Format(model.DateLayout)
	}
	if issue.Row > 0 {
		fields["row"] = issue.Row
	}
	p.logger.WithFields(fields).Warn(issue.Message)
}

// Compare scores every prediction whose date has a quote. Predictions for
// unknown dates and repeated (date, source) rows are excluded and recorded.
// Comparisons are returned sorted by date, then source id.
func Compare(book *store.QuoteBook, preds []model.SourcePrediction, cal *calendar.Calendar) ([]model.Comparison, []model.Issue) {
	var comps []model.Comparison
	var issues []model.Issue
	seen := make(map[string]int)

	for _, pred := range preds {
		key := pred.SourceID + "|" + store.DateKey(pred.Date)
		if firstRow, dup := seen[key]; dup {
			issues = append(issues, model.Issue{
				Kind:     model.IssueDuplicateRow,
				SourceID: pred.SourceID,
				Date:     pred.Date,
				Row:      pred.Row,
				Message:  fmt.Sprintf("duplicate prediction, keeping row %d", firstRow),
			})
			continue
		}
		seen[key] = pred.Row

		if cal != nil && !cal.IsTradingDay(pred.Date) {
			issues = append(issues, model.Issue{
				Kind:     model.IssueNonTradingDay,
				SourceID: pred.SourceID,
				Date:     pred.Date,
				Row:      pred.Row,
				Message:  "prediction dated on a weekend or exchange holiday",
			})
		}

		quote, ok := book.Get(pred.Date)
		if !ok {
			issues = append(issues, model.Issue{
				Kind:     model.IssueUnknownDate,
				SourceID: pred.SourceID,
				Date:     pred.Date,
				Row:      pred.Row,
				Message:  "no ground-truth quote for date",
			})
			continue
		}

		c := analyzer.Evaluate(pred, quote)
		if c.Inverted {
			issues = append(issues, model.Issue{
				Kind:     model.IssueInvertedRange,
				SourceID: pred.SourceID,
				Date:     pred.Date,
				Row:      pred.Row,
				Message:  fmt.Sprintf("support %s above resistance %s, scored as given", c.Support, c.Resistance),
			})
		}
		comps = append(comps, c)
	}

	sort.SliceStable(comps, func(i, j int) bool {
		if !comps[i].Date.Equal(comps[j].Date) {
			return comps[i].Date.Before(comps[j].Date)
		}
		return comps[i].SourceID < comps[j].SourceID
	})
	return comps, issues
}

// Audit checks the ground truth and every source file for dates that fall
// on weekends or exchange holidays. Missing source files are skipped.
func (p *Pipeline) Audit(ctx context.Context) ([]calendar.AuditReport, error) {
	book, err := store.LoadQuotes(p.cfg.Input.GroundTruth)
	if err != nil {
		return nil, fmt.Errorf("loading ground truth: %w", err)
	}
	reports := []calendar.AuditReport{p.calendar.Audit(filepath.Base(p.cfg.Input.GroundTruth), book.Dates())}

	for i, src := range p.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := p.cfg.SourcePath(src)
		table, err := store.LoadTable(src.ID, path)
		if err != nil {
			p.logger.WithError(err).WithField("source", src.ID).Warn("skipping source in audit")
			continue
		}
		dates, err := parser.TableDates(src.ID, table, p.cfg.AliasesFor(src))
		if err != nil {
			p.logger.WithError(err).WithField("source", src.ID).Warn("skipping source in audit")
			continue
		}
		reports = append(reports, p.calendar.Audit(filepath.Base(path), dates))

		if p.progressFunc != nil {
			p.progressFunc(i+1, len(p.cfg.Sources))
		}
	}
	return reports, nil
}
