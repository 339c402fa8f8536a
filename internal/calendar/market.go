package calendar

import (
	"fmt"
	"sort"
	"time"

	"rangescope/pkg/model"
)

// NSE trading holidays (weekday closures only)
var nseHolidays2024 = []string{
	"2024-01-22", // Special holiday
	"2024-01-26", // Republic Day
	"2024-03-08", // Maha Shivaratri
	"2024-03-25", // Holi
	"2024-03-29", // Good Friday
	"2024-04-11", // Eid ul-Fitr
	"2024-04-17", // Ram Navami
	"2024-05-01", // Maharashtra Day
	"2024-05-20", // General election (Mumbai)
	"2024-06-17", // Bakri Id
	"2024-07-17", // Muharram
	"2024-08-15", // Independence Day
	"2024-10-02", // Gandhi Jayanti
	"2024-11-01", // Diwali
	"2024-11-15", // Guru Nanak Jayanti
	"2024-11-20", // Maharashtra assembly election
	"2024-12-25", // Christmas
}

var nseHolidays2025 = []string{
	"2025-02-26", // Maha Shivaratri
	"2025-03-14", // Holi
	"2025-03-31", // Eid ul-Fitr
	"2025-04-10", // Mahavir Jayanti
	"2025-04-14", // Ambedkar Jayanti
	"2025-04-18", // Good Friday
	"2025-05-01", // Maharashtra Day
	"2025-08-15", // Independence Day
	"2025-08-27", // Ganesh Chaturthi
	"2025-10-02", // Gandhi Jayanti
	"2025-10-21", // Diwali Laxmi Pujan
	"2025-10-22", // Balipratipada
	"2025-11-05", // Guru Nanak Jayanti
	"2025-12-25", // Christmas
}

// Calendar decides which dates are NSE trading days
type Calendar struct {
	holidays map[string]bool
}

// New returns the built-in NSE calendar plus extra holidays (YYYY-MM-DD)
func New(extra ...string) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]bool)}
	for _, h := range append(append([]string{}, nseHolidays2024...), nseHolidays2025...) {
		c.holidays[h] = true
	}
	for _, h := range extra {
		t, err := time.Parse(model.DateLayout, h)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		c.holidays[t.Format(model.DateLayout)] = true
	}
	return c, nil
}

// IsWeekend reports Saturday or Sunday
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether the date is a listed exchange holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	return c.holidays[t.Format(model.DateLayout)]
}

// IsTradingDay reports a weekday that is not a holiday
func (c *Calendar) IsTradingDay(t time.Time) bool {
	return !IsWeekend(t) && !c.IsHoliday(t)
}

// TradingDays returns the first n trading days on or after start
func (c *Calendar) TradingDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	current := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(days) < n {
		if c.IsTradingDay(current) {
			days = append(days, current)
		}
		current = current.AddDate(0, 0, 1)
	}
	return days
}

// AuditReport summarizes how many dates in a file fall outside trading days
type AuditReport struct {
	Name      string      `json:"name"`
	Total     int         `json:"total"`
	Saturdays int         `json:"saturdays"`
	Sundays   int         `json:"sundays"`
	Holidays  int         `json:"holidays"`
	First     time.Time   `json:"first"`
	Last      time.Time   `json:"last"`
	Offending []time.Time `json:"offending,omitempty"` // sorted, non-trading dates
}

// Clean reports whether every date was a trading day
func (r AuditReport) Clean() bool {
	return r.Saturdays == 0 && r.Sundays == 0 && r.Holidays == 0
}

// Audit counts weekend and holiday dates
func (c *Calendar) Audit(name string, dates []time.Time) AuditReport {
	report := AuditReport{Name: name, Total: len(dates)}
	for i, d := range dates {
		if i == 0 || d.Before(report.First) {
			report.First = d
		}
		if i == 0 || d.After(report.Last) {
			report.Last = d
		}

		switch {
		case d.Weekday() == time.Saturday:
			report.Saturdays++
		case d.Weekday() == time.Sunday:
			report.Sundays++
		case c.IsHoliday(d):
			report.Holidays++
		default:
			continue
		}
		report.Offending = append(report.Offending, d)
	}
	sort.Slice(report.Offending, func(i, j int) bool {
		return report.Offending[i].Before(report.Offending[j])
	})
	return report
}
