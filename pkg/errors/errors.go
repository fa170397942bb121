// Package errors defines the categorized error taxonomy used across the
// reconciler. Errors carry a category, a stable code, an optional
// suggestion for the operator, and free-form context. Fatal conditions
// (malformed structural input) are expressed through this package and
// propagate to the caller; per-row parse problems are never errors, they
// surface as warnings or review reasons on the parsed file instead.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that raised them.
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryExtract       ErrorCategory = "extract"
	CategoryParse         ErrorCategory = "parse"
	CategoryIdentity      ErrorCategory = "identity"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryMatching      ErrorCategory = "matching"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileUnreadable ErrorCode = "file_unreadable"

	// Extraction errors
	CodeNoTextLayer   ErrorCode = "no_text_layer"
	CodeGarbageText   ErrorCode = "garbage_text"
	CodeUnsupported   ErrorCode = "unsupported_input"

	// Parse errors (structural, not per-row)
	CodeEmptyInput      ErrorCode = "empty_input"
	CodeMissingFileID   ErrorCode = "missing_file_id"
	CodeMissingTemplate ErrorCode = "missing_template"

	// Validation errors
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidValue ErrorCode = "invalid_value"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Matching errors
	CodeMalformedTransaction ErrorCode = "malformed_transaction"
	CodeNoInput              ErrorCode = "no_input"

	// Store errors
	CodeStoreOpen  ErrorCode = "store_open"
	CodeStoreQuery ErrorCode = "store_query"

	// Internal errors
	CodeUnexpected ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional information about the error.
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category to a process exit code.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile, CategoryExtract:
		return 2
	case CategoryParse, CategoryIdentity, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryMatching, CategoryInternal:
		return 5
	case CategoryStore:
		return 6
	default:
		return 1
	}
}

// WithContext adds a key/value pair to the error context.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches an operator-facing hint for fixing the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with reconciler context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-access error.
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the statement file path is correct"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	result := wrapOrNew(err, CategoryFile, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ExtractError creates a text-extraction error.
func ExtractError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeNoTextLayer:
		message = fmt.Sprintf("no extractable text layer in %s", path)
		suggestion = "scanned or image-only PDFs are not supported; supply the statement as plain text"
	case CodeGarbageText:
		message = fmt.Sprintf("extracted text from %s is not readable", path)
		suggestion = "the PDF may use custom font encodings; copy the text out manually and re-run on the .txt file"
	case CodeUnsupported:
		message = fmt.Sprintf("unsupported input type: %s", path)
		suggestion = "supported inputs are .pdf and .txt statement files"
	default:
		message = fmt.Sprintf("extraction error: %s", path)
		suggestion = "check the input file"
	}

	result := wrapOrNew(err, CategoryExtract, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a file-level parse error. Only structural problems
// (empty input, missing file identity) use this; bad rows never do.
func ParseError(code ErrorCode, fileID string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeEmptyInput:
		message = fmt.Sprintf("statement text for %s is empty", fileID)
		suggestion = "verify text extraction produced content for this file"
	case CodeMissingFileID:
		message = "statement input is missing a file identifier"
		suggestion = "every parse request must carry a stable file id"
	case CodeMissingTemplate:
		message = fmt.Sprintf("no template id supplied for %s", fileID)
		suggestion = "pass a template id; unknown ids still parse but are flagged for review"
	default:
		message = fmt.Sprintf("parse error for %s", fileID)
		suggestion = "check the statement text and template"
	}

	result := wrapOrNew(err, CategoryParse, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file_id", fileID)
}

// ValidationError creates a field-validation error.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidValue:
		message = fmt.Sprintf("invalid value in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value"
	}

	result := wrapOrNew(err, CategoryValidation, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the flag or config file value"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, env or config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration"
	}

	result := wrapOrNew(err, CategoryConfiguration, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// MatchingError creates a matching-engine error. The engine only fails
// for malformed structural input; candidate pairs always resolve to
// matched, uncertain or ignored instead.
func MatchingError(code ErrorCode, detail string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMalformedTransaction:
		message = fmt.Sprintf("malformed transaction in matching input: %s", detail)
		suggestion = "transactions must carry id, account and date before matching"
	case CodeNoInput:
		message = "matching called without input"
		suggestion = "load parsed transactions before running the matcher"
	default:
		message = fmt.Sprintf("matching error: %s", detail)
		suggestion = "review the matching input"
	}

	result := wrapOrNew(err, CategoryMatching, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("detail", detail)
}

// StoreError creates a persistence error.
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeStoreOpen:
		message = fmt.Sprintf("could not open store during %s", operation)
		suggestion = "check the database path and permissions"
	case CodeStoreQuery:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "the database file may be corrupt; re-ingest the statements"
	default:
		message = fmt.Sprintf("store error during %s", operation)
		suggestion = "check the database"
	}

	result := wrapOrNew(err, CategoryStore, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error.
func InternalError(operation string, err error) *ReconcilerError {
	result := wrapOrNew(err, CategoryInternal, CodeUnexpected,
		fmt.Sprintf("unexpected error during %s", operation))
	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

func wrapOrNew(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// ErrorSummary aggregates multiple errors for batch operations.
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReconcilerError    `json:"errors"`
}

// NewErrorSummary creates a summary over the given errors.
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks whether the summary contains errors of the category.
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// GetExitCode returns the highest-priority exit code across all errors.
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps err unless it already is a ReconcilerError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
