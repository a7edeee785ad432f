package validation

import (
	"time"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/shopspring/decimal"
)

// Options is the immutable set of thresholds a run is evaluated with.
type Options struct {
	AbsoluteTolerance decimal.Decimal
	RelativeTolerance decimal.Decimal

	// Outlier percentiles are expressed on the 0..100 scale.
	OutlierPercentileLow  float64
	OutlierPercentileHigh float64

	FeeRatioLow  decimal.Decimal
	FeeRatioHigh decimal.Decimal

	MinLeadsForConversionCheck int
	ConversionLow              float64
	ConversionHigh             float64

	MinSeverity domain.Severity
	AsOf        time.Time

	ScopeInvoicesToCreditWindow bool
	TopMismatches               int
}

// DefaultOptions returns the stock thresholds evaluated as of the UTC day
// containing now.
func DefaultOptions(now time.Time) Options {
	return Options{
		AbsoluteTolerance:          decimal.RequireFromString("0.01"),
		RelativeTolerance:          decimal.RequireFromString("0.005"),
		OutlierPercentileLow:       1,
		OutlierPercentileHigh:      99,
		FeeRatioLow:                decimal.RequireFromString("0.05"),
		FeeRatioHigh:               decimal.RequireFromString("0.40"),
		MinLeadsForConversionCheck: 5,
		ConversionLow:              0.10,
		ConversionHigh:             0.90,
		MinSeverity:                domain.SeverityInfo,
		AsOf:                       StartOfDay(now),
		TopMismatches:              10,
	}
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
