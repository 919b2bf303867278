package stores

import (
	"errors"

	"github.com/NASAboy342/Spendbook/internal/api"
)

// ErrDeleteUnsupported is returned for operations the server contract
// does not provide. It fails fast: no network call is ever attempted.
var ErrDeleteUnsupported = errors.New("delete account is not supported by the API")

// FetchError reports a failed collection retrieval. The in-memory
// collection is left untouched when one occurs.
type FetchError struct {
	Op      string
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }
func (e *FetchError) Unwrap() error { return e.Err }

// OpError reports a failed mutation. No optimistic write ever happens, so
// the collection is exactly as it was before the call.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }
func (e *OpError) Unwrap() error { return e.Err }

// userMessage prefers the server-reported message over the per-operation
// fallback string.
func userMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
