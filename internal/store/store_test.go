package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in string
	}{
		{"2025-03-07"},
		{"07-Mar-2025"},
		{"07-03-2025"},
		{"03/07/2025"},
		{"2025/03/07"},
		{"07 Mar 2025"},
		{"7 Mar 2025"},
		{"Mar 7, 2025"},
		{"2025-03-07 15:30:00"},
		{"  2025-03-07  "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "yesterday", "2025-13-40"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		ok      bool
		wantErr bool
	}{
		{"24,850.35", "24850.35", true, false},
		{"₹ 25,000", "25000", true, false},
		{"Rs. 24100", "24100", true, false},
		{"  24000 ", "24000", true, false},
		{"", "0", false, false},
		{"NaN", "0", false, false},
		{"n/a", "0", false, false},
		{"-", "0", false, false},
		{"abc", "0", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestReadTable(t *testing.T) {
	content := "\ufeffDate , Support_Level,Resistance_Level\n" +
		"2025-01-02,24000,24500\n" +
		",,\n" +
		"2025-01-03,24100\n"

	table, err := ReadTable("test.csv", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Support_Level", "Resistance_Level"}, table.Header)
	require.Len(t, table.Rows, 2, "blank rows are skipped")
	assert.Len(t, table.Rows[1], 3, "short rows are padded")
	assert.Equal(t, "", Cell(table.Rows[1], 2))
	assert.Equal(t, "", Cell(table.Rows[0], 10))

	assert.Equal(t, 0, table.Column("date"))
	assert.Equal(t, 1, table.ColumnContaining("SUPPORT"))
	assert.Equal(t, -1, table.Column("range"))
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable("empty.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable("mint", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)

	var missing *MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "mint", missing.Role)
	assert.Contains(t, err.Error(), "nope.csv")
}

func TestLoadQuotes(t *testing.T) {
	path := writeFile(t, "NIFTY_50.csv", `Date,Open,High,Low,Close
2025-01-03,24100,24300,23900,24200
2025-01-02,24000,24250,23800,24150
2025-01-02,1,1,1,1
2025-01-06,24200,,23950,24000
bad-date,1,2,3,4
`)

	book, err := LoadQuotes(path)
	require.NoError(t, err)

	assert.Equal(t, 2, book.Len())
	assert.Equal(t, 3, book.Skipped, "duplicate, missing high and bad date")

	dates := book.Dates()
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Before(dates[1]), "dates are ascending")

	q, ok := book.Get(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "24250", q.High.String(), "first quote for a date wins")
	assert.Equal(t, "23800", q.Low.String())
	assert.Equal(t, "24150", q.Close.String())

	_, ok = book.Get(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestLoadQuotes_ColumnFallbacks(t *testing.T) {
	path := writeFile(t, "index.csv", `Trade Date,Day High,Day Low
07-Jan-2025,"24,310.50","23,990.10"
`)

	book, err := LoadQuotes(path)
	require.NoError(t, err)
	require.Equal(t, 1, book.Len())

	q, ok := book.Get(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "24310.5", q.High.String())
	assert.Equal(t, "23990.1", q.Low.String())
}

func TestLoadQuotes_Errors(t *testing.T) {
	_, err := LoadQuotes(filepath.Join(t.TempDir(), "missing.csv"))
	var missing *MissingFileError
	assert.True(t, errors.As(err, &missing))

	path := writeFile(t, "nodate.csv", "Open,High,Low\n1,2,3\n")
	_, err = LoadQuotes(path)
	assert.Error(t, err)

	path = writeFile(t, "nohigh.csv", "Date,Close\n2025-01-02,3\n")
	_, err = LoadQuotes(path)
	assert.Error(t, err)
}
