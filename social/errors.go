package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "social_provider_not_found"
	TextCodeInvalidState      = "social_invalid_state"
	TextCodeStateExpired      = "social_state_expired"
	TextCodeTokenExchangeFail = "social_token_exchange_failed"
	TextCodeUserInfoFail      = "social_user_info_failed"
	TextCodeProviderDenied    = "social_provider_denied"
	TextCodeMissingCode       = "social_missing_code"
	TextCodeUntrustedOrigin   = "social_untrusted_origin"
	TextCodeUnknownMessage    = "social_unknown_message"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when fetching the provider profile fails.
var ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrProviderDenied is returned when the provider redirected back with an error.
var ErrProviderDenied = errors.New("provider denied authorization", errors.CategoryAuth).
	WithTextCode(TextCodeProviderDenied).
	WithCode(errors.CodeForbidden)

// ErrMissingCode is returned when the callback carries neither a code nor an error.
var ErrMissingCode = errors.New("authorization code missing", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCode).
	WithCode(errors.CodeBadRequest)

// ErrUntrustedOrigin is returned by Receiver for messages from an origin
// outside the allow-list.
var ErrUntrustedOrigin = errors.New("untrusted message origin", errors.CategoryAuthz).
	WithTextCode(TextCodeUntrustedOrigin).
	WithCode(errors.CodeForbidden)

// ErrUnknownMessage is returned by Receiver for payloads that are not auth messages.
var ErrUnknownMessage = errors.New("unknown auth message", errors.CategoryValidation).
	WithTextCode(TextCodeUnknownMessage).
	WithCode(errors.CodeBadRequest)

func withMeta(base *errors.Error, source error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var rich *errors.Error
	if errors.As(err, &rich) && rich != nil {
		return rich.TextCode == code
	}
	return false
}
