package entity

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type ErrorKind string

const (
	ErrorKindValidation         ErrorKind = "validation"
	ErrorKindQuality            ErrorKind = "quality"
	ErrorKindExtraction         ErrorKind = "extraction"
	ErrorKindTrim               ErrorKind = "trim"
	ErrorKindConfiguration      ErrorKind = "configuration"
	ErrorKindProvider           ErrorKind = "provider"
	ErrorKindParse              ErrorKind = "parse"
	ErrorKindInsufficientCredit ErrorKind = "insufficient_credit"
	ErrorKindInternal           ErrorKind = "internal"
)

// ValidationError reports a request with a bad shape or range.
type ValidationError struct {
	Field string
	Msg   string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// QualityError carries every issue the quality gate found.
type QualityError struct {
	Issues []string
}

func (e *QualityError) Error() string {
	return "quality: " + strings.Join(e.Issues, "; ")
}

// ExtractionError means the media could not be probed or decoded.
type ExtractionError struct {
	Msg string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction: " + e.Msg
	}
	return fmt.Sprintf("extraction: %s: %v", e.Msg, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TrimError wraps an encoder failure together with its diagnostic output.
type TrimError struct {
	Diagnostic string
	Err        error
}

func (e *TrimError) Error() string {
	return fmt.Sprintf("trim: %v: %s", e.Err, strings.TrimSpace(e.Diagnostic))
}

func (e *TrimError) Unwrap() error { return e.Err }

// ConfigurationError is raised for unknown provider or sport keys.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// ProviderError is a remote call or activation failure. It is the only kind a
// higher layer may retry.
type ProviderError struct {
	Provider ProviderName
	Stage    Stage
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

const parseExcerptLen = 200

// ParseError reports provider output that is not exactly one JSON object.
type ParseError struct {
	Provider ProviderName
	Excerpt  string
	Err      error
}

func NewParseError(provider ProviderName, raw string, err error) *ParseError {
	excerpt := raw
	if len(excerpt) > parseExcerptLen {
		cut := parseExcerptLen
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	return &ParseError{Provider: provider, Excerpt: excerpt, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v (raw: %q)", e.Provider, e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InsufficientCreditError is returned when the ledger refuses to reserve a credit.
type InsufficientCreditError struct {
	UserID  string
	Balance int64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit for user %s: balance %d", e.UserID, e.Balance)
}

// KindOf classifies err. Errors outside the taxonomy are internal.
func KindOf(err error) ErrorKind {
	var (
		validationErr *ValidationError
		qualityErr    *QualityError
		extractionErr *ExtractionError
		trimErr       *TrimError
		configErr     *ConfigurationError
		providerErr   *ProviderError
		parseErr      *ParseError
		creditErr     *InsufficientCreditError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &qualityErr):
		return ErrorKindQuality
	case errors.As(err, &validationErr):
		return ErrorKindValidation
	case errors.As(err, &trimErr):
		return ErrorKindTrim
	case errors.As(err, &extractionErr):
		return ErrorKindExtraction
	case errors.As(err, &configErr):
		return ErrorKindConfiguration
	case errors.As(err, &parseErr):
		return ErrorKindParse
	case errors.As(err, &providerErr):
		return ErrorKindProvider
	case errors.As(err, &creditErr):
		return ErrorKindInsufficientCredit
	}
	return ErrorKindInternal
}

// IsClientError reports failures caused by the request or its media.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrorKindValidation, ErrorKindQuality, ErrorKindInsufficientCredit:
		return true
	}
	return false
}

// ErrContention marks a write that kept losing optimistic races. Nothing was
// written, so the request may be retried.
var ErrContention = errors.New("write contention")

// IsRetryable reports whether a whole request may be retried.
func IsRetryable(err error) bool {
	return KindOf(err) == ErrorKindProvider || errors.Is(err, ErrContention)
}
