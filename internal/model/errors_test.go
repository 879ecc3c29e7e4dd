package model

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient fetch", &TransientFetchError{URL: "https://www.sec.gov/x", StatusCode: 503, Attempts: 5}, true},
		{"wrapped transient", fmt.Errorf("pipeline: %w", &TransientFetchError{URL: "u", StatusCode: 429}), true},
		{"permanent fetch", &PermanentFetchError{URL: "u", StatusCode: 404}, false},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"string timeout", errors.New("read tcp: i/o timeout"), true},
		{"plain error", errors.New("parse failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPermanent(&PermanentFetchError{URL: "u", StatusCode: 403}))
	assert.True(t, IsPermanent(fmt.Errorf("stage: %w", &PermanentExtractError{URL: "u", Reason: "not xbrl"})))
	assert.False(t, IsPermanent(&TransientFetchError{URL: "u", StatusCode: 500}))
	assert.False(t, IsPermanent(errors.New("other")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 403, 404, 451} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	inner := errors.New("context deadline exceeded")
	te := &TransientFetchError{URL: "https://www.sec.gov/doc.htm", Attempts: 5, Err: inner}
	assert.Contains(t, te.Error(), "after 5 attempts")
	assert.ErrorIs(t, te, inner)

	le := &FiscalLookupError{Ticker: "AAPL", Date: "2099-01-01"}
	assert.Contains(t, le.Error(), "AAPL")
	assert.Contains(t, le.Error(), "2099-01-01")

	de := &InvalidDateFormatError{Input: "not-a-date"}
	assert.Contains(t, de.Error(), "not-a-date")

	se := &StorageError{Op: "put", Path: "companies/AAPL/x.txt", Err: inner}
	assert.ErrorIs(t, se, inner)
}
