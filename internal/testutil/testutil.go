package testutil

import (
	"context"
	"sync/atomic"

	"ratewidget/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher[T any] struct {
	FetchFunc  func(ctx context.Context) (T, error)
	SourceFunc func() string

	calls atomic.Int32
}

// Fetch implements the Fetcher interface
func (m *MockFetcher[T]) Fetch(ctx context.Context) (T, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	var zero T
	return zero, nil
}

// Source implements the Fetcher interface
func (m *MockFetcher[T]) Source() string {
	if m.SourceFunc != nil {
		return m.SourceFunc()
	}
	return "mock:source"
}

// Calls returns how many times Fetch was invoked.
func (m *MockFetcher[T]) Calls() int {
	return int(m.calls.Load())
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher[T any](source string, value T, err error) *MockFetcher[T] {
	return &MockFetcher[T]{
		FetchFunc: func(ctx context.Context) (T, error) {
			return value, err
		},
		SourceFunc: func() string {
			return source
		},
	}
}

var _ fetcher.Fetcher[int] = (*MockFetcher[int])(nil)
