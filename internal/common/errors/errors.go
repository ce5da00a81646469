// Package errors provides the shared error taxonomy and its mapping onto
// BPMN error codes and Zeebe retry policy.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is an internal error code. Codes double as BPMN error codes
// unless BPMNErrorMapping says otherwise.
type ErrorCode string

const (
	ErrCodeInvalidJobVariables ErrorCode = "INVALID_JOB_VARIABLES"
	ErrCodeSpecValidation      ErrorCode = "SPEC_VALIDATION_FAILED"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeEngineInvariantViolation ErrorCode = "ENGINE_INVARIANT_VIOLATION"

	ErrCodeWindZoneLookupFailed ErrorCode = "WIND_ZONE_LOOKUP_FAILED"
	ErrCodeWindZoneNotFound     ErrorCode = "WIND_ZONE_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeWorkflowEngine ErrorCode = "WORKFLOW_ENGINE_ERROR"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is a structured application error.
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// WithMetadata returns e after merging md into its metadata.
func (e *StandardError) WithMetadata(md map[string]interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(md))
	}
	for k, v := range md {
		e.Metadata[k] = v
	}
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

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is an error thrown to the Camunda workflow engine.
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

// ToErrorVariables returns the process variables set alongside a thrown or
// failed job.
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

func NewInvalidJobVariablesError(err error) *StandardError {
	return newError(ErrCodeInvalidJobVariables, "Job variables could not be parsed", err.Error(), false, err)
}

// NewSpecValidationError carries the rejected fields in metadata so they
// reach the process as error variables.
func NewSpecValidationError(details string, fields interface{}, cause error) *StandardError {
	e := newError(ErrCodeSpecValidation, "Project specifications failed validation", details, false, cause)
	if fields != nil {
		e.Metadata = map[string]interface{}{"invalidFields": fields}
	}
	return e
}

func NewTemplateNotFoundError(templateID string, cause error) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in catalog",
		fmt.Sprintf("templateId: %s", templateID), false, cause)
}

func NewEngineInvariantError(err error) *StandardError {
	return newError(ErrCodeEngineInvariantViolation, "Template engine configuration is inconsistent", err.Error(), false, err)
}

func NewWindZoneLookupFailedError(jurisdiction string, err error) *StandardError {
	return newError(ErrCodeWindZoneLookupFailed, "Wind zone lookup failed",
		fmt.Sprintf("jurisdiction: %s, error: %s", jurisdiction, err.Error()), true, err)
}

func NewWindZoneNotFoundError(jurisdiction string) *StandardError {
	return newError(ErrCodeWindZoneNotFound, "No wind zone data for jurisdiction",
		fmt.Sprintf("jurisdiction: %s", jurisdiction), false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("operation: %s", operation), true, err)
}

func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed",
		fmt.Sprintf("table: %s, error: %s", table, err.Error()), true, err)
}

// NewWorkflowEngineError wraps a failed Zeebe gateway call.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeWorkflowEngine, "Workflow engine request failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), retryable, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the codes modelled on BPMN
// boundary events. Codes not listed are thrown as-is.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidJobVariables:      "SPEC_VALIDATION_FAILED",
	ErrCodeSpecValidation:           "SPEC_VALIDATION_FAILED",
	ErrCodeTemplateNotFound:         "TEMPLATE_NOT_FOUND",
	ErrCodeEngineInvariantViolation: "ENGINE_INVARIANT_VIOLATION",
	ErrCodeWindZoneLookupFailed:     "WIND_ZONE_LOOKUP_FAILED",
	ErrCodeWindZoneNotFound:         "WIND_ZONE_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "WIND_ZONE_LOOKUP_FAILED",
	ErrCodeQueryTimeout:             "WIND_ZONE_LOOKUP_FAILED",
}

// GetRetryCount returns how many times Zeebe should retry a job failing
// with code before the error is thrown to the process.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeWindZoneLookupFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeWorkflowEngine:
		return 3
	case ErrCodeQueryTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
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

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	s := string(code)
	switch {
	case strings.Contains(s, "SPEC") || strings.Contains(s, "VARIABLES"):
		return "VALIDATION"
	case strings.Contains(s, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(s, "TEMPLATE") || strings.Contains(s, "ENGINE"):
		return "TEMPLATE"
	case strings.Contains(s, "WIND_ZONE"):
		return "JURISDICTION"
	case strings.Contains(s, "DATABASE") || strings.Contains(s, "QUERY"):
		return "DATABASE"
	default:
		return "OTHER"
	}
}
