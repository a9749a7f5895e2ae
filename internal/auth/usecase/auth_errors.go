package usecase

import (
	"errors"

	"gym-assistant/internal/auth/domain/model"
)

// DefaultErrorMessage is used when a failure carries no message of its own.
const DefaultErrorMessage = "An error occurred. Please try again."

type classification struct {
	code    model.ErrorCode
	message string
}

var providerCodes = map[string]classification{
	model.ProviderCodeEmailInUse:          {model.ErrorAccountAlreadyExists, "This email is already registered. Please login instead."},
	model.ProviderCodeInvalidEmail:        {model.ErrorInvalidEmail, "Invalid email address."},
	model.ProviderCodeOperationNotAllowed: {model.ErrorOperationDisabled, "Email/password authentication is not enabled."},
	model.ProviderCodeWeakPassword:        {model.ErrorWeakCredential, "Password is too weak. Please use at least 6 characters."},
	model.ProviderCodeUserDisabled:        {model.ErrorAccountDisabled, "This account has been disabled."},
	model.ProviderCodeUserNotFound:        {model.ErrorAccountNotFound, "No account found with this email."},
	model.ProviderCodeWrongPassword:       {model.ErrorBadCredential, "Incorrect password."},
	model.ProviderCodeInvalidCredential:   {model.ErrorBadCredential, "Invalid email or password."},
	model.ProviderCodeTooManyRequests:     {model.ErrorRateLimited, "Too many failed attempts. Please try again later."},
}

// ClassifyError maps a provider failure to its user-facing AuthError.
// Unknown codes keep the provider's own message.
func ClassifyError(err error) *model.AuthError {
	if err == nil {
		return nil
	}

	var perr *model.ProviderError
	if errors.As(err, &perr) {
		if c, ok := providerCodes[perr.Code]; ok {
			return &model.AuthError{Code: c.code, ProviderCode: perr.Code, Message: c.message}
		}
		return &model.AuthError{Code: model.ErrorUnknown, ProviderCode: perr.Code, Message: fallbackMessage(perr.Message)}
	}
	return &model.AuthError{Code: model.ErrorUnknown, Message: fallbackMessage(err.Error())}
}

func fallbackMessage(msg string) string {
	if msg == "" {
		return DefaultErrorMessage
	}
	return msg
}
