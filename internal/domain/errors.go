package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable reports a transport or auth failure of the
	// dialogue policy or a speech service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedStoredRecord reports a stored report whose payload could
	// not be decoded.
	ErrMalformedStoredRecord = errors.New("malformed stored record")

	// ErrSessionNotFound reports an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReportNotFound reports an unknown report id.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidAudio reports audio input that could not be decoded.
	ErrInvalidAudio = errors.New("invalid audio")
)

// MalformedRecordError describes a listing-time decode failure of one report.
type MalformedRecordError struct {
	ReportID int64
	Err      error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("report %d: %v: %v", e.ReportID, ErrMalformedStoredRecord, e.Err)
}

// Is matches ErrMalformedStoredRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedStoredRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an ErrUpstreamUnavailable.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
