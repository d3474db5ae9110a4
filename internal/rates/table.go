// Package rates holds the exchange rate table and the store that owns its
// fetch lifecycle.
package rates

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"
)

var (
	// ErrEmptyTable is returned when a rates mapping has no entries.
	ErrEmptyTable = errors.New("rates mapping is empty")

	// ErrInvalidRate is returned when a rate is not a positive finite number.
	ErrInvalidRate = errors.New("invalid rate")
)

// Currency is a currency code such as "USD".
type Currency string

// Rate converts one unit of the base currency into one unit of a currency.
type Rate float64

// Table is an immutable snapshot of rates relative to a single base currency.
// It is replaced wholesale on refresh, never modified.
type Table struct {
	base      Currency
	updatedAt time.Time
	rates     map[Currency]Rate
}

// NewTable validates and copies rates into a new Table.
func NewTable(base Currency, updatedAt time.Time, rates map[Currency]Rate) (*Table, error) {
	if len(rates) == 0 {
		return nil, ErrEmptyTable
	}
	for code, rate := range rates {
		f := float64(rate)
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidRate, code, f)
		}
	}

	return &Table{
		base:      base,
		updatedAt: updatedAt,
		rates:     maps.Clone(rates),
	}, nil
}

// Rate returns the rate for code.
func (t *Table) Rate(code Currency) (Rate, bool) {
	if t == nil {
		return 0, false
	}
	r, ok := t.rates[code]
	return r, ok
}

// Codes returns the currency codes in the table, sorted.
func (t *Table) Codes() []Currency {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.rates))
}

// Len returns the number of currencies.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rates)
}

// Base returns the currency the rates are expressed against.
func (t *Table) Base() Currency { return t.base }

// UpdatedAt returns when the upstream last updated the rates. Zero if unknown.
func (t *Table) UpdatedAt() time.Time { return t.updatedAt }

// Rates returns a copy of the mapping.
func (t *Table) Rates() map[Currency]Rate {
	if t == nil {
		return nil
	}
	return maps.Clone(t.rates)
}
