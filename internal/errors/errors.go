package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RulesNotFound indicates the rule document does not exist
	RulesNotFound ErrorCode = "RULES_NOT_FOUND"
	// RulesInvalid indicates the rule document failed schema validation
	RulesInvalid ErrorCode = "RULES_INVALID"
	// UnsupportedVersion indicates an unknown rule document version
	UnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"
	// StoreUnavailable indicates the index database cannot be opened
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// StoreQueryFailed indicates a read against the index database failed
	StoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	// ExportFailed indicates the report could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// ArchError represents an archlint error with code, message, and suggestions
type ArchError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new ArchError
func New(code ErrorCode, message string, cause error) *ArchError {
	return &ArchError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *ArchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ArchError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ArchError) WithDetails(details interface{}) *ArchError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RulesNotFound: {
		{
			Type:        RunCommand,
			Command:     "archlint rules validate --rules <path>",
			Safe:        true,
			Description: "Point archlint at an existing rule document",
		},
	},
	RulesInvalid: {
		{
			Type:        RunCommand,
			Command:     "archlint rules validate",
			Safe:        true,
			Description: "Show the first schema error in the rule document",
		},
	},
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "archlint index",
			Safe:        true,
			Description: "Build the index database before checking rules",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
