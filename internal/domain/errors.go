package domain

import "fmt"

// DataUnavailableError signals missing or insufficient data for one ticker.
// Screening skips the ticker and continues; it never aborts a run.
type DataUnavailableError struct {
	Symbol string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
	}
	return fmt.Sprintf("data unavailable: %s", e.Reason)
}

// ConfigurationError signals a malformed or missing setting. It aborts a
// run before any ticker is processed.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration error for %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// PersistenceError signals a failure writing metrics or results. It is
// surfaced to the caller together with any in-memory results.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence error: %s", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ExternalServiceError signals a failure talking to an external provider.
// Per-ticker screening treats it the same as data unavailable for the
// ticker being processed.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	msg := fmt.Sprintf("%s service error", e.Service)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
