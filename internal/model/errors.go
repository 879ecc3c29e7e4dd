package model

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransientFetchError reports a fetch that failed after exhausting retries on
// conditions that are safe to retry (5xx, 429, network timeouts).
type TransientFetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient fetch of %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("transient fetch of %s failed after %d attempts (status %d)", e.URL, e.Attempts, e.StatusCode)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// PermanentFetchError reports a non-retryable HTTP failure (4xx other than 429).
type PermanentFetchError struct {
	URL        string
	StatusCode int
}

func (e *PermanentFetchError) Error() string {
	return fmt.Sprintf("permanent fetch failure: status %d from %s", e.StatusCode, e.URL)
}

// InvalidDateFormatError reports a period-end date that matched none of the
// accepted input forms.
type InvalidDateFormatError struct {
	Input string
}

func (e *InvalidDateFormatError) Error() string {
	return fmt.Sprintf("invalid date format: %q", e.Input)
}

// FiscalLookupError reports a registry miss: the (ticker, date) pair has no
// explicit mapping.
type FiscalLookupError struct {
	Ticker string
	Date   string
}

func (e *FiscalLookupError) Error() string {
	return fmt.Sprintf("no fiscal mapping for %s on %s", e.Ticker, e.Date)
}

// FiscalDataError reports fiscal period data that failed construction-time
// validation.
type FiscalDataError struct {
	Reason string
}

func (e *FiscalDataError) Error() string {
	return "invalid fiscal data: " + e.Reason
}

// PermanentExtractError reports a document the extractor rejected outright.
type PermanentExtractError struct {
	URL    string
	Reason string
}

func (e *PermanentExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// StorageError reports an object-store or metadata-store failure.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationWarning is a non-fatal diagnostic accumulated during processing.
// Warnings are recorded in the filing's data-integrity map and never abort a run.
type ValidationWarning struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (w ValidationWarning) String() string {
	return w.Code + ": " + w.Detail
}

// IsTransient reports whether the error (or anything in its chain) is safe to
// retry: an explicit TransientFetchError, a network timeout, or a connection
// level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientFetchError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsPermanent reports whether the error chain carries a failure that retrying
// cannot fix.
func IsPermanent(err error) bool {
	var pf *PermanentFetchError
	var pe *PermanentExtractError
	return errors.As(err, &pf) || errors.As(err, &pe)
}

// IsTransientHTTPStatus reports whether the HTTP status indicates a
// server-side condition worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
