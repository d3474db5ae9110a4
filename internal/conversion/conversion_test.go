package conversion

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratewidget/internal/rates"
)

func newTable(t *testing.T) *rates.Table {
	t.Helper()
	table, err := rates.NewTable("USD", time.Time{}, map[rates.Currency]rates.Rate{
		"USD": 1,
		"PKR": 278.5,
		"EUR": 0.92,
		"JPY": 149.73,
	})
	require.NoError(t, err)
	return table
}

func TestConvert(t *testing.T) {
	table := newTable(t)

	tests := []struct {
		name           string
		amount         string
		source, target rates.Currency
		want           string
	}{
		{"usd to pkr", "10", "USD", "PKR", "2785.00"},
		{"eur to usd", "10", "EUR", "USD", "10.87"},
		{"zero amount", "0", "USD", "PKR", ZeroDisplay},
		{"not a number", "abc", "USD", "PKR", ZeroDisplay},
		{"empty", "", "USD", "PKR", ZeroDisplay},
		{"lone point", ".", "USD", "PKR", ZeroDisplay},
		{"negative", "-5", "USD", "PKR", ZeroDisplay},
		{"leading space", " 10", "USD", "PKR", ZeroDisplay},
		{"trailing garbage", "10abc", "USD", "PKR", ZeroDisplay},
		{"unknown source", "10", "XYZ", "PKR", ZeroDisplay},
		{"unknown target", "10", "USD", "XYZ", ZeroDisplay},
		{"trailing point", "5.", "USD", "EUR", "4.60"},
		{"leading point", ".5", "USD", "PKR", "139.25"},
		{"cross rate", "1000", "PKR", "EUR", "3.30"},
		{"same currency", "12.5", "JPY", "JPY", "12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.amount, tt.source, tt.target, table))
		})
	}
}

func TestConvert_NilTable(t *testing.T) {
	assert.Equal(t, ZeroDisplay, Convert("10", "USD", "PKR", nil))
}

func TestConvertAmount_CrossRate(t *testing.T) {
	table := newTable(t)
	codes := table.Codes()

	for _, a := range codes {
		for _, b := range codes {
			t.Run(fmt.Sprintf("%s_%s", a, b), func(t *testing.T) {
				ra, _ := table.Rate(a)
				rb, _ := table.Rate(b)

				got, ok := ConvertAmount(42.5, a, b, table)
				require.True(t, ok)
				assert.InDelta(t, 42.5*float64(rb)/float64(ra), got, 1e-9)

				if a == b {
					assert.InDelta(t, 42.5, got, 1e-9)
				}
			})
		}
	}
}

func TestConvertAmount_Invalid(t *testing.T) {
	table := newTable(t)

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, ok := ConvertAmount(amount, "USD", "EUR", table)
		assert.False(t, ok, "amount %v", amount)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "10.87", Format(10/0.92))
	assert.Equal(t, "2785.00", Format(2785))
	assert.Equal(t, "0.01", Format(0.005))
	assert.Equal(t, ZeroDisplay, Format(math.NaN()))
}

func TestSwap(t *testing.T) {
	source, target := Swap("USD", "PKR")
	assert.Equal(t, rates.Currency("PKR"), source)
	assert.Equal(t, rates.Currency("USD"), target)

	// involution
	source, target = Swap(Swap("USD", "PKR"))
	assert.Equal(t, rates.Currency("USD"), source)
	assert.Equal(t, rates.Currency("PKR"), target)
}

func TestSanitizeAmount(t *testing.T) {
	accepted := []string{"", "5", "5.", ".5", "5.25", ".", "0007", "123456789.000"}
	for _, raw := range accepted {
		got, ok := SanitizeAmount(raw)
		assert.True(t, ok, "expected %q to be accepted", raw)
		assert.Equal(t, raw, got)
	}

	rejected := []string{"12.3.4", "-5", "abc", "1e5", " 5", "5 ", "+1", "1,000", "٣"}
	for _, raw := range rejected {
		_, ok := SanitizeAmount(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}
