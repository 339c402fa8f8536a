package resultdb

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rangescope/pkg/model"
)

// Run is one comparison run
type Run struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	StartedAt     time.Time `json:"started_at"`
	GroundTruth   string    `json:"ground_truth"`
	Quotes        int       `json:"quotes"`
	Predictions   int       `json:"predictions"`
	Comparisons   int       `json:"comparisons"`
	Dates         int       `json:"dates"` // dates with a winner
	WithinDays    int       `json:"within_days"`
	Issues        int       `json:"issues"`
	ElapsedMillis int64     `json:"elapsed_ms"`
}

// ComparisonRow is a persisted model.Comparison
type ComparisonRow struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index;size:36"`
	Date        string `gorm:"index;size:10"`
	SourceID    string `gorm:"index"`
	Support     string
	Resistance  string
	ActualLow   string
	ActualHigh  string
	Distance    string
	WithinRange bool
	Flag        string
	Inverted    bool
}

// BestSourceRow is a persisted model.BestSourceOfDay
type BestSourceRow struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index;size:36"`
	Date        string `gorm:"size:10"`
	SourceID    string
	Distance    string
	WithinRange bool
}

// SummaryRow is a persisted model.SourceSummary
type SummaryRow struct {
	ID                    uint   `gorm:"primaryKey"`
	RunID                 string `gorm:"index;size:36"`
	SourceID              string
	Comparisons           int
	WinCount              int
	WinPercentage         float64
	WithinRangeCount      int
	WithinRangePercentage float64
	AverageDistance       float64
}

func (ComparisonRow) TableName() string { return "comparisons" }
func (BestSourceRow) TableName() string { return "best_sources" }
func (SummaryRow) TableName() string    { return "source_summaries" }

// Store persists run results in a SQLite database
type Store struct {
	db  *gorm.DB
	log *logrus.Logger
}

// Open opens (and migrates) the database at path
func Open(path string, log *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &ComparisonRow{}, &BestSourceRow{}, &SummaryRow{}); err != nil {
		return nil, fmt.Errorf("migrating results database: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	log.WithField("path", path).Debug("results database ready")
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save writes a run and all its rows in one transaction
func (s *Store) Save(result *model.RunResult) error {
	run := Run{
		ID:            result.RunID,
		StartedAt:     result.StartedAt,
		GroundTruth:   result.GroundTruth,
		Quotes:        result.Quotes,
		Predictions:   result.Predictions,
		Comparisons:   len(result.Comparisons),
		Dates:         len(result.Best),
		WithinDays:    result.WithinRangeDays(),
		Issues:        len(result.Issues),
		ElapsedMillis: result.Elapsed.Milliseconds(),
	}

	comps := make([]ComparisonRow, 0, len(result.Comparisons))
	for _, c := range result.Comparisons {
		comps = append(comps, ComparisonRow{
			RunID:       result.RunID,
			Date:        c.Date.Format(model.DateLayout),
			SourceID:    c.SourceID,
			Support:     c.Support.String(),
			Resistance:  c.Resistance.String(),
			ActualLow:   c.ActualLow.String(),
			ActualHigh:  c.ActualHigh.String(),
			Distance:    c.Distance.String(),
			WithinRange: c.WithinRange,
			Flag:        string(c.Flag),
			Inverted:    c.Inverted,
		})
	}
	best := make([]BestSourceRow, 0, len(result.Best))
	for _, b := range result.Best {
		best = append(best, BestSourceRow{
			RunID:       result.RunID,
			Date:        b.Date.Format(model.DateLayout),
			SourceID:    b.SourceID,
			Distance:    b.Distance.String(),
			WithinRange: b.WithinRange,
		})
	}
	summaries := make([]SummaryRow, 0, len(result.Summaries))
	for _, sm := range result.Summaries {
		summaries = append(summaries, SummaryRow{
			RunID:                 result.RunID,
			SourceID:              sm.SourceID,
			Comparisons:           sm.Comparisons,
			WinCount:              sm.WinCount,
			WinPercentage:         sm.WinPercentage,
			WithinRangeCount:      sm.WithinRangeCount,
			WithinRangePercentage: sm.WithinRangePercentage,
			AverageDistance:       sm.AverageDistance,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(comps) > 0 {
			if err := tx.CreateInBatches(comps, 500).Error; err != nil {
				return err
			}
		}
		if len(best) > 0 {
			if err := tx.CreateInBatches(best, 500).Error; err != nil {
				return err
			}
		}
		if len(summaries) > 0 {
			if err := tx.Create(&summaries).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", result.RunID, err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":      result.RunID,
		"comparisons": len(comps),
	}).Info("saved run to results database")
	return nil
}

// Runs returns stored runs, newest first
func (s *Store) Runs(limit int) ([]Run, error) {
	var runs []Run
	q := s.db.Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Summaries returns the source summaries of one run in stored order
func (s *Store) Summaries(runID string) ([]model.SourceSummary, error) {
	var rows []SummaryRow
	if err := s.db.Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading summaries for %s: %w", runID, err)
	}
	out := make([]model.SourceSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.SourceSummary{
			SourceID:              r.SourceID,
			Comparisons:           r.Comparisons,
			WinCount:              r.WinCount,
			WinPercentage:         r.WinPercentage,
			WithinRangeCount:      r.WithinRangeCount,
			WithinRangePercentage: r.WithinRangePercentage,
			AverageDistance:       r.AverageDistance,
		})
	}
	return out, nil
}

// LatestSummaries returns the summaries of the most recent run
func (s *Store) LatestSummaries() (*Run, []model.SourceSummary, error) {
	runs, err := s.Runs(1)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, nil
	}
	summaries, err := s.Summaries(runs[0].ID)
	if err != nil {
		return nil, nil, err
	}
	return &runs[0], summaries, nil
}
