package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date format used in every output file
const DateLayout = "2006-01-02"

// DailyQuote represents the ground-truth OHLC for one trading day
type DailyQuote struct {
	Date  time.Time       `json:"date"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// SourcePrediction is one source's predicted support/resistance band for a day
type SourcePrediction struct {
	Date           time.Time       `json:"date"`
	SourceID       string          `json:"source_id"`
	SupportLow     decimal.Decimal `json:"support_low"`
	SupportHigh    decimal.Decimal `json:"support_high"`
	ResistanceLow  decimal.Decimal `json:"resistance_low"`
	ResistanceHigh decimal.Decimal `json:"resistance_high"`
	Midpoint       bool            `json:"midpoint,omitempty"` // source gave a single number
	Row            int             `json:"row"`                // 1-based data row in the source file
}

// Support is the predicted lower bound used for scoring
func (p SourcePrediction) Support() decimal.Decimal { return p.SupportLow }

// Resistance is the predicted upper bound used for scoring
func (p SourcePrediction) Resistance() decimal.Decimal { return p.ResistanceHigh }

// RangeFlag classifies where the actual day fell relative to the prediction
type RangeFlag string

const (
	FlagWithinRange   RangeFlag = "WITHIN_RANGE"
	FlagBreachedBelow RangeFlag = "BREACHED_BELOW"
	FlagBreachedAbove RangeFlag = "BREACHED_ABOVE"
	FlagBothBreach    RangeFlag = "BOTH_BREACH"
)

// Comparison is one (date, source) prediction scored against the actual day
type Comparison struct {
	Date        time.Time       `json:"date"`
	SourceID    string          `json:"source_id"`
	Support     decimal.Decimal `json:"support"`
	Resistance  decimal.Decimal `json:"resistance"`
	ActualLow   decimal.Decimal `json:"actual_low"`
	ActualHigh  decimal.Decimal `json:"actual_high"`
	Distance    decimal.Decimal `json:"distance"`
	WithinRange bool            `json:"within_range"`
	Flag        RangeFlag       `json:"flag"`
	Inverted    bool            `json:"inverted,omitempty"` // support > resistance, scored as given
}

// BestSourceOfDay is the winning source for a single date
type BestSourceOfDay struct {
	Date        time.Time       `json:"date"`
	SourceID    string          `json:"source_id"`
	Distance    decimal.Decimal `json:"distance"`
	WithinRange bool            `json:"within_range"`
}

// SourceSummary aggregates one source's results over all dates
type SourceSummary struct {
	SourceID              string  `json:"source_id"`
	Comparisons           int     `json:"comparisons"`
	WinCount              int     `json:"win_count"`
	WinPercentage         float64 `json:"win_percentage"`
	WithinRangeCount      int     `json:"within_range_count"`
	WithinRangePercentage float64 `json:"within_range_percentage"`
	AverageDistance       float64 `json:"average_distance"`
}

// SourceBacktest holds range coverage and error metrics for one source
type SourceBacktest struct {
	SourceID string `json:"source_id"`
	Days     int    `json:"days"`

	// Coverage
	HitCount     int     `json:"hit_count"`
	HitRate      float64 `json:"hit_rate"`       // % of days fully inside the range
	HighMissRate float64 `json:"high_miss_rate"` // % of days actual high > resistance
	LowMissRate  float64 `json:"low_miss_rate"`  // % of days actual low < support
	BothMissRate float64 `json:"both_miss_rate"`

	// Errors in points
	AvgHighError    float64 `json:"avg_high_error"` // positive = market went above resistance
	AvgLowError     float64 `json:"avg_low_error"`  // positive = market went below support
	AvgAbsHighError float64 `json:"avg_abs_high_error"`
	AvgAbsLowError  float64 `json:"avg_abs_low_error"`
	AvgTotalError   float64 `json:"avg_total_error"`

	// Overshoot, averaged only over days it happened
	AvgHighOvershoot float64 `json:"avg_high_overshoot"`
	AvgLowOvershoot  float64 `json:"avg_low_overshoot"`

	DirectionalBias float64 `json:"directional_bias"` // AvgHighError - AvgLowError
}

// IssueKind names a data-quality problem recorded during a run
type IssueKind string

const (
	IssueParseError    IssueKind = "parse_error"
	IssueEmptyDate     IssueKind = "empty_date"
	IssueInvertedRange IssueKind = "inverted_range"
	IssueUnknownDate   IssueKind = "unknown_date"
	IssueDuplicateRow  IssueKind = "duplicate_row"
	IssueNonTradingDay IssueKind = "non_trading_day"
)

// Issue is one entry in the data-quality log
type Issue struct {
	Kind     IssueKind `json:"kind"`
	SourceID string    `json:"source_id,omitempty"`
	Date     time.Time `json:"date"`
	Row      int       `json:"row,omitempty"`
	Message  string    `json:"message"`
}
