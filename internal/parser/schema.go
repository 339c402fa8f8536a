package parser

import (
	"fmt"
	"strings"

	"rangescope/internal/store"
)

// Field is a canonical prediction field that source columns map onto
type Field string

const (
	FieldDate          Field = "date"
	FieldSupport       Field = "support"
	FieldSupportHigh   Field = "support_high"
	FieldResistance    Field = "resistance"
	FieldResistanceLow Field = "resistance_low"
	FieldRange         Field = "range"
	FieldMidpoint      Field = "midpoint"
)

// Fields lists every canonical field in resolution order
var Fields = []Field{
	FieldDate,
	FieldSupport,
	FieldSupportHigh,
	FieldResistance,
	FieldResistanceLow,
	FieldRange,
	FieldMidpoint,
}

// IsField reports whether name is a canonical field
func IsField(name string) bool {
	for _, f := range Fields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// Aliases maps each canonical field to the column names accepted for it,
// in priority order
type Aliases map[Field][]string

// DefaultAliases returns the column names used by the known news-source exports
func DefaultAliases() Aliases {
	return Aliases{
		FieldDate:          {"Date", "Trade_Date", "Trading_Date"},
		FieldSupport:       {"Support_Level", "Support", "Support_Low", "S1"},
		FieldSupportHigh:   {"Support_High"},
		FieldResistance:    {"Resistance_Level", "Resistance", "Resistance_High", "R1"},
		FieldResistanceLow: {"Resistance_Low"},
		FieldRange:         {"Nifty_Range", "Nifty_Range_Today", "Nifty_RangeToday", "Expected_Range", "Range"},
		FieldMidpoint:      {"Nifty_Level", "Target_Level", "Midpoint", "Level"},
	}
}

// Merge returns a copy of a with every field present in override replaced
func (a Aliases) Merge(override Aliases) Aliases {
	out := make(Aliases, len(a))
	for f, names := range a {
		out[f] = append([]string(nil), names...)
	}
	for f, names := range override {
		if len(names) > 0 {
			out[f] = append([]string(nil), names...)
		}
	}
	return out
}

// Schema is a source's header resolved to canonical fields once at load time
type Schema struct {
	SourceID string
	columns  map[Field]int
	names    map[Field]string
}

// Resolve maps header columns onto canonical fields. The first alias found
// wins. A range column is also located by any header containing "range".
func Resolve(sourceID string, header []string, aliases Aliases) (*Schema, error) {
	t := &store.Table{Header: header}
	s := &Schema{
		SourceID: sourceID,
		columns:  make(map[Field]int),
		names:    make(map[Field]string),
	}

	used := make(map[int]bool)
	for _, f := range Fields {
		for _, name := range aliases[f] {
			if i := t.Column(name); i >= 0 && !used[i] {
				s.columns[f] = i
				s.names[f] = header[i]
				used[i] = true
				break
			}
		}
	}
	if _, ok := s.columns[FieldRange]; !ok {
		for i, h := range header {
			if !used[i] && strings.Contains(strings.ToLower(h), "range") {
				s.columns[FieldRange] = i
				s.names[FieldRange] = h
				break
			}
		}
	}

	if !s.Has(FieldDate) {
		return nil, fmt.Errorf("source %s: no date column (tried %s)", sourceID, strings.Join(aliases[FieldDate], ", "))
	}
	pair := s.Has(FieldSupport) && s.Has(FieldResistance)
	if !pair && !s.Has(FieldRange) && !s.Has(FieldMidpoint) {
		return nil, fmt.Errorf("source %s: no support/resistance, range or midpoint column", sourceID)
	}
	return s, nil
}

// Has reports whether the field resolved to a column
func (s *Schema) Has(f Field) bool {
	_, ok := s.columns[f]
	return ok
}

// Column returns the resolved header name for a field
func (s *Schema) Column(f Field) string {
	return s.names[f]
}

func (s *Schema) cell(row []string, f Field) string {
	i, ok := s.columns[f]
	if !ok {
		return ""
	}
	return store.Cell(row, i)
}
