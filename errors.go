package authclient

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMalformedToken = "MALFORMED_TOKEN"
	TextCodeTokenExpired   = "TOKEN_EXPIRED"
	TextCodeHardAuth       = "HARD_AUTH_FAILURE"
	TextCodeSoftAuth       = "SOFT_AUTH_FAILURE"
	TextCodeTokenStore     = "TOKEN_STORE_FAILURE"
)

// ErrMalformedToken is returned when a token cannot be decoded locally.
var ErrMalformedToken = goerrors.New("token is malformed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedToken).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned when a token expiry claim is in the past or missing.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrHardAuth marks a verification failure that invalidates the credential (401/403).
var ErrHardAuth = goerrors.New("authentication rejected", goerrors.CategoryAuth).
	WithTextCode(TextCodeHardAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrSoftAuth marks a transient verification failure (network, 5xx, provider hiccup).
var ErrSoftAuth = goerrors.New("authentication temporarily unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeSoftAuth).
	WithCode(http.StatusServiceUnavailable)

// ErrTokenStore wraps failures of the underlying token persistence.
var ErrTokenStore = goerrors.New("token store failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeTokenStore).
	WithCode(goerrors.CodeInternal)

// StatusCoder is implemented by errors that carry an HTTP-like status.
type StatusCoder interface {
	StatusCode() int
}

// StatusFromError extracts an HTTP-like status from err. It returns 0 when
// the error carries none (transport failures, context cancellation).
func StatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.Code
	}

	return 0
}

// IsHardStatus reports whether status invalidates the credential.
func IsHardStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsHardAuthError reports whether err was classified as a hard failure.
func IsHardAuthError(err error) bool {
	return hasTextCode(err, TextCodeHardAuth)
}

// IsSoftAuthError reports whether err was classified as a soft failure.
func IsSoftAuthError(err error) bool {
	return hasTextCode(err, TextCodeSoftAuth)
}

// IsTokenExpiredError reports whether err comes from a local expiry check.
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedTokenError reports whether err comes from a local decode failure.
func IsMalformedTokenError(err error) bool {
	return hasTextCode(err, TextCodeMalformedToken)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.TextCode == code
	}
	return false
}

// classifyVerification turns a verifier error into ErrHardAuth or ErrSoftAuth.
// Errors already classified are returned untouched.
func classifyVerification(err error) error {
	if err == nil {
		return nil
	}
	if IsHardAuthError(err) || IsSoftAuthError(err) {
		return err
	}

	status := StatusFromError(err)
	base := ErrSoftAuth
	if IsHardStatus(status) {
		base = ErrHardAuth
	}

	return wrapWith(base, err, map[string]any{
		"status": status,
		"error":  err.Error(),
	})
}

func wrapWith(base *goerrors.Error, err error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}
