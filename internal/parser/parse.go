package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rangescope/internal/store"
	"rangescope/pkg/model"
)

// Reason describes why a row could not be parsed
type Reason string

const (
	ReasonMissingField  Reason = "missing field"
	ReasonNonNumeric    Reason = "non-numeric value"
	ReasonInvertedRange Reason = "inverted range"
	ReasonBadDate       Reason = "bad date"
)

// ParseError identifies a single unparsable row. It excludes the row, never the run.
type ParseError struct {
	SourceID string
	Row      int
	Field    Field
	Reason   Reason
	Value    string
}

func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s row %d: %s %s (%q)", e.SourceID, e.Row, e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s row %d: %s %s", e.SourceID, e.Row, e.Field, e.Reason)
}

// rangeRe matches "25800 - 27000", "25,800–27,000" and "25800 to 27000"
var rangeRe = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(?:-|–|—|to|TO|To)\s*(\d[\d,]*(?:\.\d+)?)`)

// Parse converts one data row into a prediction. Fallback order is the
// support/resistance pair, then the range text, then a single midpoint.
func (s *Schema) Parse(row []string, rowNum int) (model.SourcePrediction, error) {
	pred := model.SourcePrediction{SourceID: s.SourceID, Row: rowNum}

	rawDate := s.cell(row, FieldDate)
	date, err := store.ParseDate(rawDate)
	if err != nil {
		return pred, s.fail(rowNum, FieldDate, ReasonBadDate, rawDate)
	}
	pred.Date = date

	var firstErr *ParseError
	attempts := []func([]string, int, *model.SourcePrediction) *ParseError{
		s.fromPair,
		s.fromRange,
		s.fromMidpoint,
	}
	for _, attempt := range attempts {
		perr := attempt(row, rowNum, &pred)
		if perr == nil {
			return pred, nil
		}
		// Missing-field results only stand when nothing more specific was seen
		if firstErr == nil || (firstErr.Reason == ReasonMissingField && perr.Reason != ReasonMissingField) {
			firstErr = perr
		}
	}
	return pred, firstErr
}

func (s *Schema) fromPair(row []string, rowNum int, pred *model.SourcePrediction) *ParseError {
	support, perr := s.amount(row, rowNum, FieldSupport)
	if perr != nil {
		return perr
	}
	resistance, perr := s.amount(row, rowNum, FieldResistance)
	if perr != nil {
		return perr
	}

	supportHigh := support
	if s.Has(FieldSupportHigh) && s.cell(row, FieldSupportHigh) != "" {
		if supportHigh, perr = s.amount(row, rowNum, FieldSupportHigh); perr != nil {
			return perr
		}
		if support.GreaterThan(supportHigh) {
			return s.fail(rowNum, FieldSupportHigh, ReasonInvertedRange, s.cell(row, FieldSupportHigh))
		}
	}
	resistanceLow := resistance
	if s.Has(FieldResistanceLow) && s.cell(row, FieldResistanceLow) != "" {
		if resistanceLow, perr = s.amount(row, rowNum, FieldResistanceLow); perr != nil {
			return perr
		}
		if resistanceLow.GreaterThan(resistance) {
			return s.fail(rowNum, FieldResistanceLow, ReasonInvertedRange, s.cell(row, FieldResistanceLow))
		}
	}

	// support > resistance across the two columns is passed through; the
	// evaluator scores it as given and flags it
	pred.SupportLow = support
	pred.SupportHigh = supportHigh
	pred.ResistanceLow = resistanceLow
	pred.ResistanceHigh = resistance
	return nil
}

func (s *Schema) fromRange(row []string, rowNum int, pred *model.SourcePrediction) *ParseError {
	raw := s.cell(row, FieldRange)
	if raw == "" {
		return s.fail(rowNum, FieldRange, ReasonMissingField, "")
	}
	m := rangeRe.FindStringSubmatch(raw)
	if m == nil {
		return s.fail(rowNum, FieldRange, ReasonNonNumeric, raw)
	}
	low, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return s.fail(rowNum, FieldRange, ReasonNonNumeric, raw)
	}
	high, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return s.fail(rowNum, FieldRange, ReasonNonNumeric, raw)
	}
	if low.GreaterThan(high) {
		return s.fail(rowNum, FieldRange, ReasonInvertedRange, raw)
	}

	pred.SupportLow, pred.SupportHigh = low, low
	pred.ResistanceLow, pred.ResistanceHigh = high, high
	return nil
}

func (s *Schema) fromMidpoint(row []string, rowNum int, pred *model.SourcePrediction) *ParseError {
	mid, perr := s.amount(row, rowNum, FieldMidpoint)
	if perr != nil {
		return perr
	}
	pred.SupportLow, pred.SupportHigh = mid, mid
	pred.ResistanceLow, pred.ResistanceHigh = mid, mid
	pred.Midpoint = true
	return nil
}

func (s *Schema) amount(row []string, rowNum int, f Field) (decimal.Decimal, *ParseError) {
	if !s.Has(f) {
		return decimal.Zero, s.fail(rowNum, f, ReasonMissingField, "")
	}
	raw := s.cell(row, f)
	v, ok, err := store.ParseAmount(raw)
	if !ok {
		return decimal.Zero, s.fail(rowNum, f, ReasonMissingField, "")
	}
	if err != nil {
		return decimal.Zero, s.fail(rowNum, f, ReasonNonNumeric, raw)
	}
	return v, nil
}

func (s *Schema) fail(rowNum int, f Field, reason Reason, value string) *ParseError {
	return &ParseError{SourceID: s.SourceID, Row: rowNum, Field: f, Reason: reason, Value: value}
}

// ParseTable resolves the table's schema and parses every row. Row failures
// are returned alongside the good rows; only a schema failure is an error.
func ParseTable(sourceID string, table *store.Table, aliases Aliases) ([]model.SourcePrediction, []*ParseError, error) {
	schema, err := Resolve(sourceID, table.Header, aliases)
	if err != nil {
		return nil, nil, err
	}

	preds := make([]model.SourcePrediction, 0, len(table.Rows))
	var failures []*ParseError
	for i, row := range table.Rows {
		pred, err := schema.Parse(row, i+1)
		if err != nil {
			failures = append(failures, err.(*ParseError))
			continue
		}
		preds = append(preds, pred)
	}
	return preds, failures, nil
}

// TableDates returns the parseable dates of a source table, skipping bad rows
func TableDates(sourceID string, table *store.Table, aliases Aliases) ([]time.Time, error) {
	schema, err := Resolve(sourceID, table.Header, aliases)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(table.Rows))
	for _, row := range table.Rows {
		if d, err := store.ParseDate(schema.cell(row, FieldDate)); err == nil {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
