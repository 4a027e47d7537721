// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeDiscoveryFailed    ErrorCode = "DISCOVERY_FAILED"
	ErrCodeCompetitorNotFound ErrorCode = "COMPETITOR_NOT_FOUND"

	ErrCodeAnalysisFailed      ErrorCode = "ANALYSIS_FAILED"
	ErrCodeAnalysisTimeout     ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeInsightsUnavailable ErrorCode = "INSIGHTS_UNAVAILABLE"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"

	ErrCodePostGenerationFailed  ErrorCode = "POST_GENERATION_FAILED"
	ErrCodePostNotFound          ErrorCode = "POST_NOT_FOUND"
	ErrCodePublishFailed         ErrorCode = "PUBLISH_FAILED"
	ErrCodeImageGenerationFailed ErrorCode = "IMAGE_GENERATION_FAILED"

	ErrCodePlatformConfigInvalid ErrorCode = "PLATFORM_CONFIG_INVALID"

	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"

	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeDatabaseWriteFailed    ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewDiscoveryFailedError(err error) *StandardError {
	return newError(ErrCodeDiscoveryFailed, "Competitor discovery failed", err.Error(), true)
}

func NewCompetitorNotFoundError(competitorID string) *StandardError {
	return newError(ErrCodeCompetitorNotFound, "Competitor not found",
		fmt.Sprintf("competitorId: %s", competitorID), false)
}

func NewAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisFailed, "Marketing analysis request failed", err.Error(), true)
}

func NewAnalysisTimeoutError(analysisID string) *StandardError {
	return newError(ErrCodeAnalysisTimeout, "Marketing analysis timed out",
		fmt.Sprintf("analysisId: %s", analysisID), true)
}

func NewInsightsUnavailableError(analysisID string, err error) *StandardError {
	return newError(ErrCodeInsightsUnavailable, "Marketing insights unavailable",
		fmt.Sprintf("analysisId: %s, error: %s", analysisID, err.Error()), true)
}

func NewSearchFailedError(err error) *StandardError {
	return newError(ErrCodeSearchFailed, "Insights search failed", err.Error(), true)
}

func NewPostGenerationFailedError(err error) *StandardError {
	return newError(ErrCodePostGenerationFailed, "Social post generation failed", err.Error(), true)
}

func NewPostNotFoundError(postID string) *StandardError {
	return newError(ErrCodePostNotFound, "Social post not found",
		fmt.Sprintf("postId: %s", postID), false)
}

func NewPublishFailedError(platform string, err error) *StandardError {
	return newError(ErrCodePublishFailed, "Publishing to platform failed",
		fmt.Sprintf("platform: %s, error: %s", platform, err.Error()), true)
}

func NewImageGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeImageGenerationFailed, "Image generation failed", err.Error(), true)
}

func NewPlatformConfigInvalidError(details string) *StandardError {
	return newError(ErrCodePlatformConfigInvalid, "Platform configuration invalid", details, false)
}

func NewParseFailedError(section string, err error) *StandardError {
	return newError(ErrCodeParseFailed, "Unable to parse analysis text",
		fmt.Sprintf("section: %s, error: %s", section, err.Error()), false)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", err.Error(), true)
}

func NewDatabaseWriteFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseWriteFailed, "Database write failed", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

// ==========================
// 4. Mapping and Classification
// ==========================

// GetRetryCount is the number of Zeebe retries a failed job gets for the code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDiscoveryFailed,
		ErrCodeAnalysisFailed,
		ErrCodePostGenerationFailed,
		ErrCodePublishFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeAnalysisTimeout,
		ErrCodeInsightsUnavailable,
		ErrCodeSearchFailed,
		ErrCodeImageGenerationFailed,
		ErrCodeTimeout:
		return 2

	case ErrCodeCacheUnavailable:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the BPMN error thrown to the engine.
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

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and logs.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DISCOVERY") || strings.Contains(codeStr, "COMPETITOR"):
		return "COMPETITOR"
	case strings.Contains(codeStr, "ANALYSIS") || strings.Contains(codeStr, "INSIGHTS") || strings.Contains(codeStr, "SEARCH"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "POST") || strings.Contains(codeStr, "PUBLISH") || strings.Contains(codeStr, "IMAGE"):
		return "CONTENT"
	case strings.Contains(codeStr, "PLATFORM"):
		return "PLATFORM"
	case strings.Contains(codeStr, "PARSE"):
		return "PARSING"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "DATABASE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}
