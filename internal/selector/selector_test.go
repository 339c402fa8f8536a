package selector

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangescope/pkg/model"
)

func day(n int) time.Time { return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC) }

func comp(date time.Time, source, distance string, within bool) model.Comparison {
	return model.Comparison{
		Date:        date,
		SourceID:    source,
		Distance:    decimal.RequireFromString(distance),
		WithinRange: within,
	}
}

func TestSelectBest_WorkedExample(t *testing.T) {
	comps := []model.Comparison{
		comp(day(2), "A", "10", true),
		comp(day(2), "B", "4", false),
	}

	best := SelectBest(comps)
	require.Len(t, best, 1)
	assert.Equal(t, "B", best[0].SourceID)
	assert.False(t, best[0].WithinRange)
	assert.Equal(t, "4", best[0].Distance.String())
}

func TestSelectBest_TieGoesToSmallestID(t *testing.T) {
	comps := []model.Comparison{
		comp(day(2), "mint", "25", true),
		comp(day(2), "cnbc", "25", false),
		comp(day(2), "etnow", "25", true),
		comp(day(2), "zeta", "30", true),
	}

	for i := 0; i < 20; i++ {
		shuffled := append([]model.Comparison(nil), comps...)
		rand.New(rand.NewSource(int64(i))).Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		best := SelectBest(shuffled)
		require.Len(t, best, 1)
		assert.Equal(t, "cnbc", best[0].SourceID, "shuffle %d", i)
	}
}

func TestSelectBest_DecimalTieIsExact(t *testing.T) {
	comps := []model.Comparison{
		comp(day(2), "b", "0.3", false),
		comp(day(2), "a", "0.30", false),
	}
	best := SelectBest(comps)
	require.Len(t, best, 1)
	assert.Equal(t, "a", best[0].SourceID)
}

func TestSelectBest_OneWinnerPerDateSorted(t *testing.T) {
	comps := []model.Comparison{
		comp(day(6), "a", "5", false),
		comp(day(2), "a", "1", true),
		comp(day(2), "b", "2", true),
		comp(day(3), "b", "7", false),
		comp(day(6), "b", "3", true),
	}

	best := SelectBest(comps)
	require.Len(t, best, 3)
	assert.True(t, best[0].Date.Equal(day(2)))
	assert.True(t, best[1].Date.Equal(day(3)))
	assert.True(t, best[2].Date.Equal(day(6)))
	assert.Equal(t, []string{"a", "b", "b"}, []string{best[0].SourceID, best[1].SourceID, best[2].SourceID})
}

func TestSelectBest_Empty(t *testing.T) {
	assert.Empty(t, SelectBest(nil))
}

func TestSummarize(t *testing.T) {
	comps := []model.Comparison{
		comp(day(2), "a", "10", true),
		comp(day(2), "b", "4", false),
		comp(day(3), "a", "2", true),
		comp(day(3), "b", "6", true),
		comp(day(6), "b", "8", false),
	}
	best := SelectBest(comps)
	summaries := Summarize(comps, best, []string{"a", "b", "idle"})
	require.Len(t, summaries, 3)

	// b wins days 2 and 6, a wins day 3
	byID := make(map[string]model.SourceSummary)
	totalWins := 0
	for _, s := range summaries {
		byID[s.SourceID] = s
		totalWins += s.WinCount
	}
	assert.Equal(t, len(best), totalWins, "every date with a winner is counted once")

	a := byID["a"]
	assert.Equal(t, 2, a.Comparisons)
	assert.Equal(t, 1, a.WinCount)
	assert.InDelta(t, 100.0/3, a.WinPercentage, 1e-9)
	assert.Equal(t, 2, a.WithinRangeCount)
	assert.InDelta(t, 100.0, a.WithinRangePercentage, 1e-9)
	assert.InDelta(t, 6.0, a.AverageDistance, 1e-9)

	b := byID["b"]
	assert.Equal(t, 3, b.Comparisons)
	assert.Equal(t, 2, b.WinCount)
	assert.Equal(t, 1, b.WithinRangeCount)
	assert.InDelta(t, 100.0/3, b.WithinRangePercentage, 1e-9)
	assert.InDelta(t, 6.0, b.AverageDistance, 1e-9)

	idle := byID["idle"]
	assert.Zero(t, idle.Comparisons)
	assert.Zero(t, idle.WinCount)
	assert.Zero(t, idle.WinPercentage)
	assert.Zero(t, idle.AverageDistance)

	assert.Equal(t, []string{"b", "a", "idle"}, []string{summaries[0].SourceID, summaries[1].SourceID, summaries[2].SourceID})
}

func TestSortSummaries(t *testing.T) {
	s := []model.SourceSummary{
		{SourceID: "c", WinCount: 2, WithinRangePercentage: 50},
		{SourceID: "b", WinCount: 2, WithinRangePercentage: 50},
		{SourceID: "a", WinCount: 2, WithinRangePercentage: 40},
		{SourceID: "d", WinCount: 5},
	}
	SortSummaries(s)
	assert.Equal(t, "d", s[0].SourceID)
	assert.Equal(t, "b", s[1].SourceID)
	assert.Equal(t, "c", s[2].SourceID)
	assert.Equal(t, "a", s[3].SourceID)
}

func TestEmptyDates(t *testing.T) {
	best := []model.BestSourceOfDay{{Date: day(2), SourceID: "a"}}
	empty := EmptyDates([]time.Time{day(2), day(3)}, best)
	require.Len(t, empty, 1)
	assert.True(t, empty[0].Equal(day(3)))
}
