package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ratewidget/internal/fetcher"
)

// ErrNotReady is returned by Refresh before a table has been loaded.
var ErrNotReady = errors.New("rates not loaded")

// Status is the fetch lifecycle of a Store.
type Status int

const (
	// Pending means the initial fetch has not resolved yet.
	Pending Status = iota
	// Ready means a table is available.
	Ready
	// Failed means the initial fetch failed. It is terminal.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a snapshot of the store. Table is set when Ready, Err when Failed.
type State struct {
	Status Status
	Table  *Table
	Err    error
}

// Reason returns a human readable failure reason, or "".
func (s State) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Store owns the rate table and its fetch lifecycle. It is safe for
// concurrent use; the state is swapped as a whole value.
type Store struct {
	fetcher fetcher.Fetcher[*Table]
	logger  *slog.Logger

	state    atomic.Pointer[State]
	loadOnce sync.Once
	ready    chan struct{}

	// refreshMu serialises refreshes so two fetches never race to swap
	refreshMu sync.Mutex
}

// NewStore returns a Pending store that loads rates through f.
func NewStore(f fetcher.Fetcher[*Table], logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		fetcher: f,
		logger:  logger.With("component", "rates", "source", f.Source()),
		ready:   make(chan struct{}),
	}
	s.state.Store(&State{Status: Pending})
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	return *s.state.Load()
}

// Ready is closed once the initial load resolved, successfully or not.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Load performs the initial fetch. It transitions Pending to Ready or
// Failed exactly once; later calls return the current state without
// fetching.
func (s *Store) Load(ctx context.Context) State {
	s.loadOnce.Do(func() {
		defer close(s.ready)

		table, err := s.fetch(ctx)
		if err != nil {
			s.state.Store(&State{Status: Failed, Err: err})
			return
		}
		s.state.Store(&State{Status: Ready, Table: table})
	})
	return s.State()
}

// Refresh re-fetches the table while Ready. On failure the previous table
// stays in place and the error is returned.
func (s *Store) Refresh(ctx context.Context) (State, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	current := s.State()
	if current.Status != Ready {
		return current, ErrNotReady
	}

	table, err := s.fetch(ctx)
	if err != nil {
		return current, fmt.Errorf("refresh rates: %w", err)
	}

	next := &State{Status: Ready, Table: table}
	s.state.Store(next)
	return *next, nil
}

func (s *Store) fetch(ctx context.Context) (*Table, error) {
	s.logger.Debug("fetching exchange rates")
	begin := time.Now()

	table, err := s.fetcher.Fetch(ctx)
	if err == nil && table == nil {
		err = fetcher.NewValidationError("no rates returned")
	}
	if err != nil {
		s.logger.Error("fetching exchange rates failed",
			"error_type", fetcher.TypeOf(err),
			"malformed", fetcher.IsMalformed(err),
			"took", time.Since(begin),
			"error", err)
		return nil, err
	}

	s.logger.Info("exchange rates loaded",
		"base", table.Base(),
		"count", table.Len(),
		"took", time.Since(begin))
	return table, nil
}
