package weather

import "fmt"

// FetchError reports a failed or incomplete weather provider response. It is
// never retried internally; propagation policy belongs to the caller.
type FetchError struct {
	Op     string // "fetch" or "decode"
	Status int    // HTTP status when available, 0 otherwise
	Body   string // raw response body for diagnostics, possibly truncated
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weather %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("weather %s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
