package domain

import "errors"

// Error kinds. Every coded error below unwraps to exactly one of these so the
// transport layer can pick a status without knowing each individual code.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("auth error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("state error")
	ErrDependency = errors.New("dependency error")
)

// Error is a caller-visible failure with a stable code.
type Error struct {
	Code string
	Msg  string
	Kind error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Is matches any *Error with the same code, so an error carrying a detailed
// message still satisfies errors.Is against the bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of e with a caller-facing message.
func (e *Error) WithDetail(msg string) *Error {
	return &Error{Code: e.Code, Msg: msg, Kind: e.Kind}
}

func newError(code, msg string, kind error) *Error {
	return &Error{Code: code, Msg: msg, Kind: kind}
}

// Coded errors. Services wrap these with fmt.Errorf("...: %w", ...) and
// handlers discriminate with errors.Is / errors.As.
var (
	ErrInvalidInput   = newError("InvalidInput", "invalid input", ErrValidation)
	ErrInvalidContent = newError("InvalidContent", "message content is invalid", ErrValidation)

	ErrNotVerified    = newError("NotVerified", "account is not verified", ErrAuth)
	ErrBadCredentials = newError("BadCredentials", "invalid credentials", ErrAuth)
	ErrUnauthorized   = newError("Unauthorized", "not allowed to act on this account", ErrAuth)
	ErrInvalidSession = newError("InvalidSession", "invalid or expired session", ErrAuth)

	ErrAccountNotFound   = newError("NotFound", "account not found", ErrNotFound)
	ErrRecipientNotFound = newError("RecipientNotFound", "recipient not found", ErrNotFound)
	ErrMessageNotFound   = newError("MessageNotFound", "message not found", ErrNotFound)

	ErrDuplicateHandle = newError("DuplicateHandle", "handle is already taken", ErrConflict)
	ErrDuplicateEmail  = newError("DuplicateEmail", "email is already registered", ErrConflict)
	ErrSignupConflict  = newError("SignupConflict", "signup raced with another request, retry", ErrConflict)

	ErrMessagesClosed = newError("MessagesClosed", "recipient is not accepting messages", ErrState)
	ErrExpiredCode    = newError("ExpiredCode", "verification code has expired, request a new one", ErrState)
	ErrCodeMismatch   = newError("CodeMismatch", "verification code is incorrect", ErrState)

	ErrDeliveryFailed        = newError("DeliveryFailed", "verification email could not be sent", ErrDependency)
	ErrSuggestionUnavailable = newError("SuggestionUnavailable", "suggestions are unavailable right now", ErrDependency)
	ErrExportUnavailable     = newError("ExportUnavailable", "inbox export is unavailable right now", ErrDependency)
)

// ErrCredentialCorrupt has no kind: a stored hash that cannot be parsed is an
// internal failure and must surface as a generic 500.
var ErrCredentialCorrupt = errors.New("stored credential is corrupt")
