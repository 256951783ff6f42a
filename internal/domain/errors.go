package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
	ErrTimeout       = fmt.Errorf("operation timed out")
)

// Sentinel errors for the domain layer.
var (
	ErrUnsupportedFormat  = fmt.Errorf("unsupported file format")
	ErrEmptyDocument      = fmt.Errorf("no text could be extracted")
	ErrInputTooLarge      = fmt.Errorf("input exceeds configured limit")
	ErrDimensionMismatch  = fmt.Errorf("embedding dimension mismatch")
	ErrEmbeddingFailed    = fmt.Errorf("embedding generation failed")
	ErrCredentialMissing  = fmt.Errorf("credential not configured")
	ErrMalformedResponse  = fmt.Errorf("malformed model response")
	ErrPromptTemplate     = fmt.Errorf("invalid prompt template")
	ErrProviderNotFound   = fmt.Errorf("llm provider not found")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrDecryption         = fmt.Errorf("decryption failed")
	ErrEncryption         = fmt.Errorf("encryption operation failed")
	ErrCircuitOpen        = fmt.Errorf("circuit breaker open")
	ErrAllProvidersFailed = fmt.Errorf("all llm providers failed")
	ErrAuditWrite         = fmt.Errorf("audit write failed")

	// Gateway / RPC errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")

	// Resilience errors.
	ErrContextOverflow = fmt.Errorf("context window exceeded")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Detector.Classify")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// ValidationError rejects a request whose input is missing or malformed.
// Its message is meant to be shown to the caller as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// UnsupportedFormatError reports a document extension the extractor cannot read.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file format: %s. Please upload .txt or .docx", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DimensionMismatchError reports two embedding vectors of different lengths.
type DimensionMismatchError struct {
	Left, Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %d != %d", ErrDimensionMismatch, e.Left, e.Right)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the service or one of its backends.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyDocument) ||
		errors.Is(err, ErrInputTooLarge)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	CodeEmptyDocument     ErrorCode = "EMPTY_DOCUMENT"
	CodeInputTooLarge     ErrorCode = "INPUT_TOO_LARGE"
	CodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	CodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"
	CodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodePromptTemplate    ErrorCode = "PROMPT_TEMPLATE"
	CodeProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeEncryption        ErrorCode = "ENCRYPTION"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeAllProviders      ErrorCode = "ALL_PROVIDERS_FAILED"
	CodeAuditWrite        ErrorCode = "AUDIT_WRITE"
	CodeGatewayAuth       ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload ErrorCode = "RPC_INVALID_PAYLOAD"
	CodeContextOverflow   ErrorCode = "CONTEXT_OVERFLOW"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:       CodeInvalidInput,
	ErrProviderError:      CodeProviderError,
	ErrTimeout:            CodeTimeout,
	ErrUnsupportedFormat:  CodeUnsupportedFormat,
	ErrEmptyDocument:      CodeEmptyDocument,
	ErrInputTooLarge:      CodeInputTooLarge,
	ErrDimensionMismatch:  CodeDimensionMismatch,
	ErrEmbeddingFailed:    CodeEmbeddingFailed,
	ErrCredentialMissing:  CodeCredentialMissing,
	ErrMalformedResponse:  CodeMalformedResponse,
	ErrPromptTemplate:     CodePromptTemplate,
	ErrProviderNotFound:   CodeProviderNotFound,
	ErrConfigLoad:         CodeConfigLoad,
	ErrDecryption:         CodeDecryption,
	ErrEncryption:         CodeEncryption,
	ErrCircuitOpen:        CodeCircuitOpen,
	ErrAllProvidersFailed: CodeAllProviders,
	ErrAuditWrite:         CodeAuditWrite,
	ErrGatewayAuthFailed:  CodeGatewayAuth,
	ErrRPCMethodNotFound:  CodeRPCMethodNotFound,
	ErrRPCInvalidPayload:  CodeRPCInvalidPayload,
	ErrContextOverflow:    CodeContextOverflow,
	ErrRateLimit:          CodeRateLimit,
	ErrAuthInvalid:        CodeAuthInvalid,
}

// codePriority lists sentinels in the order ErrorCodeOf checks them when
// walking a wrapped chain. More specific sentinels come first so that
// ErrGatewayAuthFailed wins over the ErrAuthInvalid it wraps.
var codePriority = []error{
	ErrGatewayAuthFailed,
	ErrUnsupportedFormat,
	ErrEmptyDocument,
	ErrInputTooLarge,
	ErrDimensionMismatch,
	ErrEmbeddingFailed,
	ErrCredentialMissing,
	ErrMalformedResponse,
	ErrPromptTemplate,
	ErrProviderNotFound,
	ErrConfigLoad,
	ErrDecryption,
	ErrEncryption,
	ErrCircuitOpen,
	ErrAllProvidersFailed,
	ErrAuditWrite,
	ErrRPCMethodNotFound,
	ErrRPCInvalidPayload,
	ErrContextOverflow,
	ErrRateLimit,
	ErrAuthInvalid,
	ErrTimeout,
	ErrInvalidInput,
	ErrProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for _, sentinel := range codePriority {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying error.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
