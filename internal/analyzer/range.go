package analyzer

import (
	"github.com/shopspring/decimal"

	"rangescope/pkg/model"
)

// Evaluate scores one prediction against the actual day.
//
//	distance = |support - low| + |resistance - high|
//	within   = support <= low && resistance >= high
//
// An inverted prediction (support > resistance) is scored exactly as given
// and marked Inverted.
func Evaluate(pred model.SourcePrediction, quote model.DailyQuote) model.Comparison {
	support := pred.Support()
	resistance := pred.Resistance()

	return model.Comparison{
		Date:        quote.Date,
		SourceID:    pred.SourceID,
		Support:     support,
		Resistance:  resistance,
		ActualLow:   quote.Low,
		ActualHigh:  quote.High,
		Distance:    Distance(support, resistance, quote.Low, quote.High),
		WithinRange: WithinRange(support, resistance, quote.Low, quote.High),
		Flag:        Flag(support, resistance, quote.Low, quote.High),
		Inverted:    support.GreaterThan(resistance),
	}
}

// Distance is the sum of absolute deviations of the predicted bounds from the actual day
func Distance(support, resistance, low, high decimal.Decimal) decimal.Decimal {
	return support.Sub(low).Abs().Add(resistance.Sub(high).Abs())
}

// WithinRange reports whether the actual low and high both fall inside the prediction
func WithinRange(support, resistance, low, high decimal.Decimal) bool {
	return support.LessThanOrEqual(low) && resistance.GreaterThanOrEqual(high)
}

// Flag classifies which side of the prediction, if any, the actual day breached
func Flag(support, resistance, low, high decimal.Decimal) model.RangeFlag {
	belowSupport := low.LessThan(support)
	aboveResistance := high.GreaterThan(resistance)

	switch {
	case belowSupport && aboveResistance:
		return model.FlagBothBreach
	case belowSupport:
		return model.FlagBreachedBelow
	case aboveResistance:
		return model.FlagBreachedAbove
	default:
		return model.FlagWithinRange
	}
}
