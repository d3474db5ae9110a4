// Package widget holds the user-facing state of the converter: the amount
// being typed, the selected currency pair and the derived result.
package widget

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ratewidget/internal/conversion"
	"ratewidget/internal/rates"
)

var (
	// ErrRejectedAmount is returned when the amount is not a decimal literal.
	ErrRejectedAmount = errors.New("amount must contain only digits and a single decimal point")

	// ErrUnknownCurrency is returned when selecting a code missing from the rate table.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Status is what the presentation layer renders.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Defaults are the initial inputs.
type Defaults struct {
	Source rates.Currency
	Target rates.Currency
	Amount string
}

// DefaultInputs matches a fresh widget: USD to PKR with nothing typed yet.
var DefaultInputs = Defaults{Source: "USD", Target: "PKR"}

// View is a rendered snapshot of the widget.
type View struct {
	Status     Status           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Amount     string           `json:"amount"`
	Source     rates.Currency   `json:"source"`
	Target     rates.Currency   `json:"target"`
	Result     string           `json:"result"`
	Currencies []rates.Currency `json:"currencies"`
}

// Widget recomputes its result after every input change and whenever the
// store's table changes. It is safe for concurrent use.
type Widget struct {
	store *rates.Store

	mu     sync.Mutex
	amount string
	source rates.Currency
	target rates.Currency
	result string
}

// New returns a widget over store with the given initial inputs.
func New(store *rates.Store, d Defaults) *Widget {
	w := &Widget{
		store:  store,
		source: normalize(d.Source),
		target: normalize(d.Target),
	}
	if amount, ok := conversion.SanitizeAmount(d.Amount); ok {
		w.amount = amount
	}
	w.recompute(store.State().Table)
	return w
}

// SetAmount replaces the amount. Input that is not a decimal literal in
// progress is rejected and the previous amount is kept.
func (w *Widget) SetAmount(raw string) (View, error) {
	amount, ok := conversion.SanitizeAmount(raw)
	if !ok {
		return w.View(), ErrRejectedAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.amount = amount
	return w.render(), nil
}

// SetSource selects the currency converted from.
func (w *Widget) SetSource(code rates.Currency) (View, error) {
	return w.SetPair(code, "")
}

// SetTarget selects the currency converted to.
func (w *Widget) SetTarget(code rates.Currency) (View, error) {
	return w.SetPair("", code)
}

// SetPair selects source and target. An empty code leaves that side
// unchanged. Once rates are loaded, codes must be present in the table.
func (w *Widget) SetPair(source, target rates.Currency) (View, error) {
	source, target = normalize(source), normalize(target)
	table := w.store.State().Table

	for _, code := range []rates.Currency{source, target} {
		if code == "" || table == nil {
			continue
		}
		if _, ok := table.Rate(code); !ok {
			return w.View(), fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if source != "" {
		w.source = source
	}
	if target != "" {
		w.target = target
	}
	return w.render(), nil
}

// Swap exchanges source and target.
func (w *Widget) Swap() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source, w.target = conversion.Swap(w.source, w.target)
	return w.render()
}

// View renders the current state.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.render()
}

// render recomputes against the latest table, so a table arriving after an
// input change is still reflected. Callers hold w.mu.
func (w *Widget) render() View {
	state := w.store.State()
	w.recompute(state.Table)

	v := View{
		Amount:     w.amount,
		Source:     w.source,
		Target:     w.target,
		Result:     w.result,
		Currencies: state.Table.Codes(),
	}
	switch state.Status {
	case rates.Ready:
		v.Status = StatusReady
	case rates.Failed:
		v.Status = StatusError
		v.Error = state.Reason()
	default:
		v.Status = StatusLoading
	}
	if v.Currencies == nil {
		v.Currencies = []rates.Currency{}
	}
	return v
}

func (w *Widget) recompute(table *rates.Table) {
	w.result = conversion.Convert(w.amount, w.source, w.target, table)
}

func normalize(code rates.Currency) rates.Currency {
	return rates.Currency(strings.ToUpper(strings.TrimSpace(string(code))))
}
