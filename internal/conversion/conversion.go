// Package conversion computes displayed cross-rate conversions from a rate
// table. Every function here is pure and safe for concurrent use.
package conversion

import (
	"math"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"ratewidget/internal/rates"
)

const (
	// Precision is the number of decimal places in a displayed result.
	Precision = 2

	// ZeroDisplay is shown for incomplete or invalid input.
	ZeroDisplay = "0.00"
)

// amountPattern is a non-negative decimal literal, possibly still being typed.
var amountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// Convert returns amount converted from source to target, formatted for
// display. Unparsable or non-positive amounts and unknown currencies yield
// ZeroDisplay rather than an error. The whole string must parse as a number:
// " 10" and "10abc" are unparsable.
func Convert(amount string, source, target rates.Currency, table *rates.Table) string {
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return ZeroDisplay
	}

	converted, ok := ConvertAmount(value, source, target, table)
	if !ok {
		return ZeroDisplay
	}
	return Format(converted)
}

// ConvertAmount divides out the source rate and multiplies by the target
// rate. ok is false when the conversion is undefined.
func ConvertAmount(amount float64, source, target rates.Currency, table *rates.Table) (float64, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, false
	}

	from, ok := table.Rate(source)
	if !ok {
		return 0, false
	}
	to, ok := table.Rate(target)
	if !ok {
		return 0, false
	}

	return amount / float64(from) * float64(to), true
}

// Format renders value with Precision decimal places, rounding half away
// from zero.
func Format(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ZeroDisplay
	}
	return decimal.NewFromFloat(value).StringFixed(Precision)
}

// Swap exchanges the source and target currencies.
func Swap(source, target rates.Currency) (rates.Currency, rates.Currency) {
	return target, source
}

// SanitizeAmount accepts raw when it is a non-negative decimal literal in
// progress ("", "5", "5.", ".5", "5.25"). Rejected input returns false and
// the caller keeps its previous value.
func SanitizeAmount(raw string) (string, bool) {
	if !amountPattern.MatchString(raw) {
		return "", false
	}
	return raw, true
}
