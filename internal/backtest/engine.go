package backtest

import (
	"math"
	"sort"

	"rangescope/pkg/model"
)

// OverallID is the SourceID of the all-sources aggregate row
const OverallID = "ALL"

// Run computes range coverage and error metrics for each source.
// Sources without comparisons are reported with zero days.
// Results are sorted by hit rate (descending), then source id.
func Run(comps []model.Comparison, sources []string) []model.SourceBacktest {
	bySource := make(map[string][]model.Comparison, len(sources))
	for _, id := range sources {
		bySource[id] = nil
	}
	for _, c := range comps {
		bySource[c.SourceID] = append(bySource[c.SourceID], c)
	}

	results := make([]model.SourceBacktest, 0, len(bySource))
	for id, cs := range bySource {
		results = append(results, calculateStats(id, cs))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].HitRate != results[j].HitRate {
			return results[i].HitRate > results[j].HitRate
		}
		return results[i].SourceID < results[j].SourceID
	})
	return results
}

// Overall computes the same metrics across every comparison
func Overall(comps []model.Comparison) model.SourceBacktest {
	return calculateStats(OverallID, comps)
}

// calculateStats computes all metrics from one source's comparisons
func calculateStats(id string, comps []model.Comparison) model.SourceBacktest {
	result := model.SourceBacktest{SourceID: id, Days: len(comps)}
	if len(comps) == 0 {
		return result
	}

	var hits, highMiss, lowMiss, bothMiss int
	highErrors := make([]float64, 0, len(comps))
	lowErrors := make([]float64, 0, len(comps))
	var highOvershoots, lowOvershoots []float64

	for _, c := range comps {
		support := c.Support.InexactFloat64()
		resistance := c.Resistance.InexactFloat64()
		low := c.ActualLow.InexactFloat64()
		high := c.ActualHigh.InexactFloat64()

		if c.WithinRange {
			hits++
		}
		isHighMiss := high > resistance
		isLowMiss := low < support
		if isHighMiss {
			highMiss++
		}
		if isLowMiss {
			lowMiss++
		}
		if isHighMiss && isLowMiss {
			bothMiss++
		}

		// Positive high error: market went above resistance.
		// Positive low error: market went below support.
		highErr := high - resistance
		lowErr := support - low
		highErrors = append(highErrors, highErr)
		lowErrors = append(lowErrors, lowErr)
		if highErr > 0 {
			highOvershoots = append(highOvershoots, highErr)
		}
		if lowErr > 0 {
			lowOvershoots = append(lowOvershoots, lowErr)
		}
	}

	n := float64(len(comps))
	result.HitCount = hits
	result.HitRate = float64(hits) / n * 100
	result.HighMissRate = float64(highMiss) / n * 100
	result.LowMissRate = float64(lowMiss) / n * 100
	result.BothMissRate = float64(bothMiss) / n * 100

	result.AvgHighError = average(highErrors)
	result.AvgLowError = average(lowErrors)
	result.AvgAbsHighError = averageAbs(highErrors)
	result.AvgAbsLowError = averageAbs(lowErrors)
	result.AvgTotalError = result.AvgAbsHighError + result.AvgAbsLowError

	result.AvgHighOvershoot = average(highOvershoots)
	result.AvgLowOvershoot = average(lowOvershoots)

	result.DirectionalBias = result.AvgHighError - result.AvgLowError
	return result
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func averageAbs(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Abs(v)
	}
	return sum / float64(len(values))
}
