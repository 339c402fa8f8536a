package selector

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"rangescope/internal/store"
	"rangescope/pkg/model"
)

// SelectBest picks the minimum-distance comparison for every date. Equal
// distances go to the lexically smallest source id, so the input order
// never changes the result. Output is sorted by date.
func SelectBest(comps []model.Comparison) []model.BestSourceOfDay {
	winners := make(map[string]model.Comparison)
	for _, c := range comps {
		key := store.DateKey(c.Date)
		cur, ok := winners[key]
		if !ok || beats(c, cur) {
			winners[key] = c
		}
	}

	best := make([]model.BestSourceOfDay, 0, len(winners))
	for _, c := range winners {
		best = append(best, model.BestSourceOfDay{
			Date:        c.Date,
			SourceID:    c.SourceID,
			Distance:    c.Distance,
			WithinRange: c.WithinRange,
		})
	}
	sort.Slice(best, func(i, j int) bool { return best[i].Date.Before(best[j].Date) })
	return best
}

func beats(a, b model.Comparison) bool {
	if cmp := a.Distance.Cmp(b.Distance); cmp != 0 {
		return cmp < 0
	}
	return a.SourceID < b.SourceID
}

// sourceTally is the per-source accumulator for Summarize
type sourceTally struct {
	comparisons int
	within      int
	distance    decimal.Decimal
	wins        int
}

// Summarize folds comparisons and winners into one summary per source.
// Win percentage is over the dates that have a winner; within-range and
// average distance are over the source's own comparisons. Every id in
// sources is reported, even with no comparisons.
func Summarize(comps []model.Comparison, best []model.BestSourceOfDay, sources []string) []model.SourceSummary {
	tallies := tally(comps, best, sources)
	totalDates := len(best)

	summaries := make([]model.SourceSummary, 0, len(tallies))
	for id, t := range tallies {
		s := model.SourceSummary{
			SourceID:         id,
			Comparisons:      t.comparisons,
			WinCount:         t.wins,
			WithinRangeCount: t.within,
		}
		if totalDates > 0 {
			s.WinPercentage = float64(t.wins) / float64(totalDates) * 100
		}
		if t.comparisons > 0 {
			s.WithinRangePercentage = float64(t.within) / float64(t.comparisons) * 100
			s.AverageDistance = t.distance.Div(decimal.NewFromInt(int64(t.comparisons))).InexactFloat64()
		}
		summaries = append(summaries, s)
	}

	SortSummaries(summaries)
	return summaries
}

func tally(comps []model.Comparison, best []model.BestSourceOfDay, sources []string) map[string]sourceTally {
	out := make(map[string]sourceTally, len(sources))
	for _, id := range sources {
		out[id] = sourceTally{}
	}
	for _, c := range comps {
		t := out[c.SourceID]
		t.comparisons++
		t.distance = t.distance.Add(c.Distance)
		if c.WithinRange {
			t.within++
		}
		out[c.SourceID] = t
	}
	for _, b := range best {
		t := out[b.SourceID]
		t.wins++
		out[b.SourceID] = t
	}
	return out
}

// SortSummaries orders by win count, then within-range percentage, then id
func SortSummaries(s []model.SourceSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].WinCount != s[j].WinCount {
			return s[i].WinCount > s[j].WinCount
		}
		if s[i].WithinRangePercentage != s[j].WithinRangePercentage {
			return s[i].WithinRangePercentage > s[j].WithinRangePercentage
		}
		return s[i].SourceID < s[j].SourceID
	})
}

// EmptyDates returns the dates in all that have no winner
func EmptyDates(all []time.Time, best []model.BestSourceOfDay) []time.Time {
	won := make(map[string]bool, len(best))
	for _, b := range best {
		won[store.DateKey(b.Date)] = true
	}
	var empty []time.Time
	for _, d := range all {
		if !won[store.DateKey(d)] {
			empty = append(empty, d)
		}
	}
	return empty
}
