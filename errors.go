package jobs

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidClient is the single opaque rejection for every credential
// failure; it never distinguishes a wrong secret from an unknown identity.
var ErrInvalidClient = goerrors.New("invalid client credentials or unauthorized scopes or disabled client", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INVALID_CLIENT")

// ErrTokenTheftSuspected signals a client-binding signature mismatch on a
// refresh or remember-me exchange. Stored tokens are always cleared first.
var ErrTokenTheftSuspected = goerrors.New("client signature mismatch on token exchange", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_THEFT_SUSPECTED")

// ErrNotFoundOrForbidden merges not-found and forbidden so ownership failures
// never leak row existence.
var ErrNotFoundOrForbidden = goerrors.New("record not found or access denied", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("NOT_FOUND")

var ErrEmailAlreadyExists = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("EMAIL_EXISTS")

var ErrInvalidPassword = goerrors.New("password does not meet the password policy", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("INVALID_PASSWORD")

// ErrSendingFailed wraps failures reported by the Mailer collaborator. It is
// surfaced to callers but is non-fatal to the mutation that triggered it.
var ErrSendingFailed = goerrors.New("email could not be sent", goerrors.CategoryOperation).
	WithTextCode("EMAIL_SENDING_FAILED")

var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

var ErrTokenMalformed = goerrors.New("token is malformed or has an invalid signature", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

var ErrInvalidActivationKey = goerrors.New("activation key missing or invalid", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("INVALID_ACTIVATION_KEY")

// MissingRequiredField builds the field-specific validation rejection. The
// offending field name travels both in the message and in metadata so HTTP
// handlers can surface it without string parsing.
func MissingRequiredField(field string) *goerrors.Error {
	return goerrors.New("missing required field: "+field, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode("MISSING_FIELD").
		WithMetadata(map[string]any{"field": field})
}

// MissingFieldName extracts the field name from a MissingRequiredField error,
// or returns "" when err is anything else.
func MissingFieldName(err error) string {
	return fieldFromMetadata(err, "MISSING_FIELD")
}

// InvalidFieldValue rejects a value outside a field's closed enumeration.
func InvalidFieldValue(field, value string) *goerrors.Error {
	return goerrors.New("invalid value for field "+field+": "+value, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode("INVALID_FIELD_VALUE").
		WithMetadata(map[string]any{"field": field, "value": value})
}

// InvalidFieldName extracts the field name from an InvalidFieldValue error,
// or returns "" when err is anything else.
func InvalidFieldName(err error) string {
	return fieldFromMetadata(err, "INVALID_FIELD_VALUE")
}

func fieldFromMetadata(err error, textCode string) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ""
	}
	if richErr.TextCode != textCode {
		return ""
	}
	if field, ok := richErr.Metadata["field"].(string); ok {
		return field
	}
	return ""
}
