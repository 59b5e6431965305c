// Package errors provides standardized error handling for BPMN workflow integration.
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

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Card request pipeline errors
const (
	ErrCodeFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrCodeReadError     ErrorCode = "READ_ERROR"
	ErrCodeEmptyFile     ErrorCode = "EMPTY_FILE"
	ErrCodeMalformedLine ErrorCode = "MALFORMED_LINE"
	ErrCodeInvalidSalary ErrorCode = "INVALID_SALARY"
	ErrCodeNoApprovals   ErrorCode = "NO_APPROVALS"
)

// Criteria table errors
const (
	ErrCodeCriteriaInvalid    ErrorCode = "CRITERIA_INVALID"
	ErrCodeCriteriaLoadFailed ErrorCode = "CRITERIA_LOAD_FAILED"
)

// Worker / job errors
const (
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

// NewFileNotFoundError reports a card request file that does not exist.
func NewFileNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileNotFound,
		Message:   fmt.Sprintf("Error: file not exist. %s", path),
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewReadError wraps a platform failure while reading a card request file.
func NewReadError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReadError,
		Message:   fmt.Sprintf("Error: cannot read file. %s", path),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyFileError reports a file with no data lines once blanks and header are removed.
func NewEmptyFileError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyFile,
		Message:   "Error: File has not content",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedLineError reports a data line without three non-empty fields.
func NewMalformedLineError(lineNumber int, line string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedLine,
		Message:   "Error: File is corrupted",
		Details:   fmt.Sprintf("line %d: %q", lineNumber, line),
		Retryable: false,
		Metadata:  map[string]interface{}{"line": lineNumber},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSalaryError reports a non-numeric salary when strict parsing is enabled.
func NewInvalidSalaryError(lineNumber int, value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSalary,
		Message:   "Error: salary is not a number",
		Details:   fmt.Sprintf("line %d: %q", lineNumber, value),
		Retryable: false,
		Metadata:  map[string]interface{}{"line": lineNumber},
		Timestamp: time.Now().UTC(),
	}
}

// NewNoApprovalsError reports a classified file in which no request matched a tier.
func NewNoApprovalsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoApprovals,
		Message:   "Error: Found unknown reject",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCriteriaInvalidError reports a criteria table that cannot be used.
func NewCriteriaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCriteriaInvalid,
		Message:   "Card criteria table is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCriteriaLoadFailedError creates a retryable criteria storage error.
func NewCriteriaLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCriteriaLoadFailed,
		Message:   "Failed to load card criteria",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputParsingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCriteriaLoadFailed:
		return 3
	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes are identical to the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
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

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "FILE") || code == ErrCodeReadError:
		return "FILE"
	case code == ErrCodeMalformedLine || code == ErrCodeInvalidSalary:
		return "PARSE"
	case code == ErrCodeNoApprovals:
		return "CLASSIFICATION"
	case strings.Contains(codeStr, "CRITERIA"):
		return "CRITERIA"
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
