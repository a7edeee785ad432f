package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000000000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000000",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05-07:00",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// parseTimestamp tries each supported layout in order.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// parseDecimal accepts plain or thousands-separated numbers. Both pandas and
// spreadsheets emit "nan" for missing numerics, so that is treated as empty.
func parseDecimal(raw string) (decimal.Decimal, bool, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "nan", "null", "none":
		return decimal.Zero, false, nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("unable to coerce %q to decimal", raw)
	}
	return value, true, nil
}

// normalizeID trims identifiers and drops the ".0" suffix pandas adds when an
// integer key column contained blanks and was exported as float.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, ".0") {
		trimmed := strings.TrimSuffix(raw, ".0")
		if trimmed != "" && strings.Trim(trimmed, "-0123456789") == "" {
			return trimmed
		}
	}
	switch strings.ToLower(raw) {
	case "nan", "null", "none":
		return ""
	}
	return raw
}
