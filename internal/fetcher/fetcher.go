package fetcher

import "context"

// Fetcher retrieves one value of type T from an upstream source.
type Fetcher[T any] interface {
	// Fetch retrieves the data. Implementations return a *FetchError
	// describing what went wrong so callers can tell network failures
	// apart from malformed payloads.
	Fetch(ctx context.Context) (T, error)

	// Source identifies the upstream for logs.
	// Format: {provider}:{identifier}, e.g. erapi:USD
	Source() string
}
