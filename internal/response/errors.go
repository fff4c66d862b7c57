package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidKind    ErrCode = "INVALID_KIND"

	// ─── Interview ─────────────────────────────────────────────────────
	ErrNoQuestions    ErrCode = "NO_QUESTIONS"
	ErrEmptyAnswer    ErrCode = "EMPTY_ANSWER"
	ErrSessionActive  ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrUnknownAction  ErrCode = "UNKNOWN_ACTION"
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrServiceOffline ErrCode = "SERVICE_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Request payload is invalid."
	case ErrInvalidKind:
		return "Unknown interview kind."

	case ErrNoQuestions:
		return "No questions are available for this interview."
	case ErrEmptyAnswer:
		return "Answer cannot be empty."
	case ErrSessionActive:
		return "An interview session is already open for this account."
	case ErrUnknownAction:
		return "Unknown session action."
	case ErrNotFound:
		return "Resource not found."
	case ErrServiceOffline:
		return "A required backing service is unavailable."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
