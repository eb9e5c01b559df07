// Package errs defines the error kinds used across the ingestion
// pipeline and a classifier (ClassOf) that the HTTP control surface
// uses to map a failure to a response status without inspecting error
// strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which of the documented failure categories an error
// belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindSource
	KindRecord
	KindDetection
	KindPersistence
	KindState
	KindSubscriberOverflow
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config_error"
	case KindSource:
		return "source_error"
	case KindRecord:
		return "record_error"
	case KindDetection:
		return "detection_error"
	case KindPersistence:
		return "persistence_error"
	case KindState:
		return "state_error"
	case KindSubscriberOverflow:
		return "subscriber_overflow"
	default:
		return "unknown_error"
	}
}

// kindError wraps an underlying error with a Kind so ClassOf(err) can
// classify it after it has been passed through fmt.Errorf("%w", ...).
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// ConfigError reports an invalid threshold or operating parameter.
func ConfigError(format string, args ...any) error {
	return &kindError{kind: KindConfig, err: fmt.Errorf(format, args...)}
}

// SourceError reports a missing path, decoder failure, or missing
// required header alias.
func SourceError(format string, args ...any) error {
	return &kindError{kind: KindSource, err: fmt.Errorf(format, args...)}
}

// RecordError reports a single record that failed to parse.
func RecordError(format string, args ...any) error {
	return &kindError{kind: KindRecord, err: fmt.Errorf(format, args...)}
}

// DetectionError reports a rule computation that failed unexpectedly.
func DetectionError(format string, args ...any) error {
	return &kindError{kind: KindDetection, err: fmt.Errorf(format, args...)}
}

// PersistenceError reports a storage unit that was rejected and rolled
// back.
func PersistenceError(format string, args ...any) error {
	return &kindError{kind: KindPersistence, err: fmt.Errorf(format, args...)}
}

// StateError reports an invalid driver state transition attempt.
func StateError(format string, args ...any) error {
	return &kindError{kind: KindState, err: fmt.Errorf(format, args...)}
}

// SubscriberOverflowErr reports a dropped bus message due to a full
// mailbox. Kept as a sentinel rather than a formatted error since it
// carries no per-occurrence detail worth allocating.
var SubscriberOverflowErr = &kindError{kind: KindSubscriberOverflow, err: errors.New("subscriber mailbox full, oldest message dropped")}

// ClassOf returns the Kind of err, walking the Unwrap chain. Errors not
// produced by this package classify as KindUnknown.
func ClassOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}
