package model

import "fmt"

// Codes reported by identity providers.
const (
	ProviderCodeEmailInUse          = "auth/email-already-in-use"
	ProviderCodeInvalidEmail        = "auth/invalid-email"
	ProviderCodeOperationNotAllowed = "auth/operation-not-allowed"
	ProviderCodeWeakPassword        = "auth/weak-password"
	ProviderCodeUserDisabled        = "auth/user-disabled"
	ProviderCodeUserNotFound        = "auth/user-not-found"
	ProviderCodeWrongPassword       = "auth/wrong-password"
	ProviderCodeInvalidCredential   = "auth/invalid-credential"
	ProviderCodeTooManyRequests     = "auth/too-many-requests"
	ProviderCodeInternal            = "auth/internal-error"
)

// ProviderError is a failure reported by an identity provider.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

// NewProviderError creates a ProviderError.
func NewProviderError(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorCode is the application's classification of an identity failure.
type ErrorCode string

const (
	ErrorAccountAlreadyExists ErrorCode = "account-already-exists"
	ErrorInvalidEmail         ErrorCode = "invalid-email"
	ErrorOperationDisabled    ErrorCode = "operation-disabled"
	ErrorWeakCredential       ErrorCode = "weak-credential"
	ErrorAccountDisabled      ErrorCode = "account-disabled"
	ErrorAccountNotFound      ErrorCode = "account-not-found"
	ErrorBadCredential        ErrorCode = "bad-credential"
	ErrorRateLimited          ErrorCode = "rate-limited"
	ErrorUnknown              ErrorCode = "unknown"
)

// AuthError is the user-facing outcome of a failed auth operation.
type AuthError struct {
	Code         ErrorCode `json:"code"`
	ProviderCode string    `json:"providerCode,omitempty"`
	Message      string    `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// Result is returned by every Session Store operation.
type Result struct {
	Success bool       `json:"success"`
	Error   *AuthError `json:"error,omitempty"`
}
