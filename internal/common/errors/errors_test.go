package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Category
	}{
		{ErrCodeNoFlightsFound, CategoryNoData},
		{ErrCodeIntentNotRecognized, CategoryNoData},
		{ErrCodeAirportUnresolved, CategoryUnresolvedLocation},
		{ErrCodeFlightSearchFailed, CategoryPartialSearchFailure},
		{ErrCodeFlightSearchTimeout, CategoryPartialSearchFailure},
		{ErrCodeInvalidFlowState, CategoryInvalidState},
		{ErrCodeInvalidInput, CategoryMalformedInput},
		{ErrCodeFlowStateStoreFailed, CategoryInfrastructure},
		{ErrCodeInternal, CategoryInfrastructure},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetCategory(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable infrastructure error keeps its retry budget", func(t *testing.T) {
		stdErr := NewDirectoryLookupFailedError("org-1", fmt.Errorf("connection refused"))
		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "DIRECTORY_LOOKUP_FAILED", bpmnErr.Code)
		assert.True(t, bpmnErr.Retryable)
		assert.Equal(t, 3, bpmnErr.Retries)
		assert.Equal(t, "infrastructure", bpmnErr.ErrorVariables["errorCategory"])
	})

	t.Run("business error is never retried", func(t *testing.T) {
		stdErr := NewAirportUnresolvedError("Atlantis").WithMetadata("city", "Atlantis")
		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, 0, bpmnErr.Retries)
		vars := bpmnErr.ToErrorVariables()
		assert.Equal(t, "AIRPORT_UNRESOLVED", vars["errorCode"])
		assert.Equal(t, "Atlantis", vars["city"])
		assert.Equal(t, "unresolved-location", vars["errorCategory"])
	})
}

func TestStandardError_Chain(t *testing.T) {
	root := fmt.Errorf("dial tcp: timeout")
	wrapped := fmt.Errorf("load preferences: %w", NewPreferencesLookupFailedError("u-1", root))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodePreferencesLookupFailed, stdErr.Code)
	assert.ErrorIs(t, wrapped, root)
	assert.True(t, HasCode(wrapped, ErrCodePreferencesLookupFailed))
	assert.False(t, HasCode(wrapped, ErrCodeInvalidInput))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrCodeInvalidInput))
}

func TestNewFlightSearchTimeoutError(t *testing.T) {
	err := NewFlightSearchTimeoutError("JFK", 10*time.Second)
	assert.Contains(t, err.Error(), "FLIGHT_SEARCH_TIMEOUT")
	assert.Contains(t, err.Details, "JFK")
	assert.True(t, IsRetryableErrorCode(err.Code))
	assert.False(t, err.Timestamp.IsZero())
}
