// Package errors carries the structured error taxonomy shared by the travel workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

type ErrorCode string

const (
	// no-data
	ErrCodeNoFlightsFound      ErrorCode = "NO_FLIGHTS_FOUND"
	ErrCodeIntentNotRecognized ErrorCode = "INTENT_NOT_RECOGNIZED"

	// unresolved-location
	ErrCodeAirportUnresolved ErrorCode = "AIRPORT_UNRESOLVED"

	// partial-search-failure
	ErrCodeFlightSearchFailed  ErrorCode = "FLIGHT_SEARCH_FAILED"
	ErrCodeFlightSearchTimeout ErrorCode = "FLIGHT_SEARCH_TIMEOUT"

	// invalid-state
	ErrCodeInvalidFlowState ErrorCode = "INVALID_FLOW_STATE"

	// malformed-input
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// infrastructure
	ErrCodePreferencesLookupFailed ErrorCode = "PREFERENCES_LOOKUP_FAILED"
	ErrCodeDirectoryLookupFailed   ErrorCode = "DIRECTORY_LOOKUP_FAILED"
	ErrCodeFlowStateStoreFailed    ErrorCode = "FLOW_STATE_STORE_FAILED"
	ErrCodeNeedsAnalysisFailed     ErrorCode = "NEEDS_ANALYSIS_FAILED"
	ErrCodeNotificationSendFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Category groups error codes by how the caller is expected to recover.
type Category string

const (
	CategoryNoData               Category = "no-data"
	CategoryUnresolvedLocation   Category = "unresolved-location"
	CategoryPartialSearchFailure Category = "partial-search-failure"
	CategoryInvalidState         Category = "invalid-state"
	CategoryMalformedInput       Category = "malformed-input"
	CategoryInfrastructure       Category = "infrastructure"
)

// StandardError is the structured error every worker reports to the engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error and returns it for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is what gets thrown back to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables set on a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewNoFlightsFoundError(origin, destination string) *StandardError {
	return newError(ErrCodeNoFlightsFound, "No flights found",
		fmt.Sprintf("origin: %s, destination: %s", origin, destination), false, nil)
}

func NewIntentNotRecognizedError(message string) *StandardError {
	return newError(ErrCodeIntentNotRecognized, "Message did not match any known intent",
		fmt.Sprintf("message: %q", message), false, nil)
}

func NewAirportUnresolvedError(city string) *StandardError {
	return newError(ErrCodeAirportUnresolved, "Could not resolve an airport for the city",
		fmt.Sprintf("city: %s", city), false, nil)
}

func NewFlightSearchFailedError(origin string, err error) *StandardError {
	return newError(ErrCodeFlightSearchFailed, "Flight search failed",
		fmt.Sprintf("origin: %s, error: %s", origin, errText(err)), true, err)
}

func NewFlightSearchTimeoutError(origin string, timeout time.Duration) *StandardError {
	return newError(ErrCodeFlightSearchTimeout, "Flight search timed out",
		fmt.Sprintf("origin: %s, timeout: %s", origin, timeout), true, nil)
}

func NewInvalidFlowStateError(state string) *StandardError {
	return newError(ErrCodeInvalidFlowState, "Group flow is in an unrecognized state",
		fmt.Sprintf("state: %q", state), false, nil)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

func NewPreferencesLookupFailedError(userID string, err error) *StandardError {
	return newError(ErrCodePreferencesLookupFailed, "Preference lookup failed",
		fmt.Sprintf("userId: %s, error: %s", userID, errText(err)), true, err)
}

func NewDirectoryLookupFailedError(orgID string, err error) *StandardError {
	return newError(ErrCodeDirectoryLookupFailed, "Directory lookup failed",
		fmt.Sprintf("organizationId: %s, error: %s", orgID, errText(err)), true, err)
}

func NewFlowStateStoreFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeFlowStateStoreFailed, "Flow state store error",
		fmt.Sprintf("userId: %s, error: %s", userID, errText(err)), true, err)
}

func NewNeedsAnalysisFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeNeedsAnalysisFailed, "Travel need analysis failed",
		fmt.Sprintf("userId: %s, error: %s", userID, errText(err)), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errText(err)), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errText(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount is the retry budget for a code. Business errors get none.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeFlightSearchFailed,
		ErrCodePreferencesLookupFailed,
		ErrCodeDirectoryLookupFailed,
		ErrCodeFlowStateStoreFailed,
		ErrCodeNeedsAnalysisFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeFlightSearchTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     string(GetCategory(stdErr.Code)),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetCategory(code ErrorCode) Category {
	switch code {
	case ErrCodeNoFlightsFound, ErrCodeIntentNotRecognized:
		return CategoryNoData
	case ErrCodeAirportUnresolved:
		return CategoryUnresolvedLocation
	case ErrCodeFlightSearchFailed, ErrCodeFlightSearchTimeout:
		return CategoryPartialSearchFailure
	case ErrCodeInvalidFlowState:
		return CategoryInvalidState
	case ErrCodeInvalidInput:
		return CategoryMalformedInput
	default:
		return CategoryInfrastructure
	}
}

// AsStandardError finds a StandardError anywhere in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}
