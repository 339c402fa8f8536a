package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rangescope/pkg/model"
)

// QuoteBook holds the ground-truth quotes keyed by calendar date
type QuoteBook struct {
	quotes  map[string]model.DailyQuote
	dates   []time.Time
	Skipped int // rows dropped for a bad date or high/low
}

// NewQuoteBook builds a book from quotes. The first quote for a date wins.
func NewQuoteBook(quotes []model.DailyQuote) *QuoteBook {
	b := &QuoteBook{quotes: make(map[string]model.DailyQuote, len(quotes))}
	for _, q := range quotes {
		key := DateKey(q.Date)
		if _, ok := b.quotes[key]; ok {
			b.Skipped++
			continue
		}
		b.quotes[key] = q
		b.dates = append(b.dates, q.Date)
	}
	sort.Slice(b.dates, func(i, j int) bool { return b.dates[i].Before(b.dates[j]) })
	return b
}

// Get returns the quote for a date
func (b *QuoteBook) Get(date time.Time) (model.DailyQuote, bool) {
	q, ok := b.quotes[DateKey(date)]
	return q, ok
}

// Dates returns all quote dates in ascending order
func (b *QuoteBook) Dates() []time.Time {
	out := make([]time.Time, len(b.dates))
	copy(out, b.dates)
	return out
}

// Len returns the number of quotes
func (b *QuoteBook) Len() int { return len(b.quotes) }

// DateKey formats a date as the map key used across packages
func DateKey(t time.Time) string { return t.Format(model.DateLayout) }

// LoadQuotes reads the ground-truth CSV. Column names are matched the way
// index exports name them: "Date"/"Trade_Date" (or anything with "date"),
// then exact "High"/"Low" before any header containing them.
func LoadQuotes(path string) (*QuoteBook, error) {
	table, err := LoadTable("ground truth", path)
	if err != nil {
		return nil, err
	}
	return QuotesFromTable(table)
}

// QuotesFromTable converts a loaded table into a QuoteBook
func QuotesFromTable(table *Table) (*QuoteBook, error) {
	dateCol := firstColumn(table, []string{"date", "trade_date"}, "date")
	if dateCol < 0 {
		return nil, fmt.Errorf("%s: no date column in ground truth", table.Path)
	}
	highCol := firstColumn(table, []string{"high"}, "high")
	lowCol := firstColumn(table, []string{"low"}, "low")
	if highCol < 0 || lowCol < 0 {
		return nil, fmt.Errorf("%s: ground truth needs high and low columns", table.Path)
	}
	openCol := firstColumn(table, []string{"open"}, "open")
	closeCol := firstColumn(table, []string{"close"}, "close")

	quotes := make([]model.DailyQuote, 0, len(table.Rows))
	skipped := 0
	for _, row := range table.Rows {
		date, err := ParseDate(Cell(row, dateCol))
		if err != nil {
			skipped++
			continue
		}
		high, okHigh, errHigh := ParseAmount(Cell(row, highCol))
		low, okLow, errLow := ParseAmount(Cell(row, lowCol))
		if !okHigh || !okLow || errHigh != nil || errLow != nil {
			skipped++
			continue
		}
		q := model.DailyQuote{Date: date, High: high, Low: low}
		if v, ok, err := ParseAmount(Cell(row, openCol)); ok && err == nil {
			q.Open = v
		}
		if v, ok, err := ParseAmount(Cell(row, closeCol)); ok && err == nil {
			q.Close = v
		}
		quotes = append(quotes, q)
	}

	book := NewQuoteBook(quotes)
	book.Skipped += skipped
	return book, nil
}

func firstColumn(t *Table, exact []string, contains string) int {
	for _, name := range exact {
		if i := t.Column(name); i >= 0 {
			return i
		}
	}
	return t.ColumnContaining(contains)
}

var amountReplacer = strings.NewReplacer(",", "", "₹", "", "$", "", "Rs.", "", "Rs", "", " ", "")

// ParseAmount parses a price cell. ok is false when the cell is empty or a
// null marker; err is set when the cell has content that is not a number.
func ParseAmount(s string) (value decimal.Decimal, ok bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "-":
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(amountReplacer.Replace(s))
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("non-numeric amount %q", s)
	}
	return v, true, nil
}
