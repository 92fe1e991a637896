// Package apperrors is the centralized error taxonomy for HTTP-facing
// failures: a code, a message, and the status it maps to.
package apperrors

// ErrorCode identifies a distinct failure kind.
type ErrorCode string

const (
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrorCodeConflict        ErrorCode = "CONFLICT"

	// Domain error kinds.
	ErrorCodeSpeakerUnreachable ErrorCode = "SPEAKER_UNREACHABLE"
	ErrorCodeSoapFault          ErrorCode = "SOAP_FAULT"
	ErrorCodeSubscribeFailed    ErrorCode = "SUBSCRIBE_FAILED"
	ErrorCodeSourceStolen       ErrorCode = "SOURCE_STOLEN"
	ErrorCodeProducerStalled    ErrorCode = "PRODUCER_STALLED"
	ErrorCodeInvariantViolated  ErrorCode = "INVARIANT_VIOLATED"
	ErrorCodeTooManyStreams     ErrorCode = "TOO_MANY_STREAMS"
	ErrorCodeUnsupportedCodec   ErrorCode = "UNSUPPORTED_CODEC"
)

// ErrorType categorizes errors the way the Stripe API does.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeAPIError       ErrorType = "api_error"
)

// StripeErrorBody is the wire shape for every error response:
// {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type StripeErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// AppError is the base error type for HTTP and WS ERROR responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

func (err *AppError) Error() string { return err.Message }

// StripeErrorBody renders the error in the wire envelope.
func (err *AppError) StripeErrorBody() StripeErrorBody {
	errType := ErrorTypeAPIError
	if err.StatusCode >= 400 && err.StatusCode < 500 {
		errType = ErrorTypeInvalidRequest
	}
	return StripeErrorBody{Type: errType, Code: string(err.Code), Message: err.Message}
}

func NewAppError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrorCodeForbidden, message, 403)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrorCodeConflict, message, 409)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500)
}

func NewTooManyStreamsError() *AppError {
	return NewAppError(ErrorCodeTooManyStreams, "TooManyStreams", 503)
}

// EnsureAppError converts an arbitrary error into an AppError, collapsing
// anything unrecognized into a generic internal error so internals never
// leak into a response.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("internal server error")
}
