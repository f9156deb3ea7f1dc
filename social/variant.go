package social

import (
	"errors"
	"strings"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
)

// UserBuilder turns a normalized profile into the user payload of a
// success message.
type UserBuilder func(profile *Profile) any

// Variant is the per provider entry of the capability table: message
// family, payload shape and whether the provider needs state.
type Variant struct {
	Provider      string
	MessagePrefix string
	// IncludeAccessToken adds the provider access token to success messages.
	IncludeAccessToken bool
	// RequiresState makes the callback reject requests without a valid state.
	RequiresState bool
	// PKCE sends an S256 code challenge and verifier, requires a StateManager.
	PKCE      bool
	BuildUser UserBuilder
}

// GenericUser is the user payload of providers without a dedicated variant.
type GenericUser struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// BuildGenericUser is the default UserBuilder.
func BuildGenericUser(p *Profile) any {
	if p == nil {
		return nil
	}
	return GenericUser{
		ID:        p.ProviderUserID,
		Email:     p.Email,
		Name:      p.Name,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		Provider:  p.Provider,
	}
}

// GenericVariant derives a variant from the provider name: "google" posts
// GOOGLE_AUTH_SUCCESS / GOOGLE_AUTH_ERROR with the access token included.
func GenericVariant(provider string) Variant {
	return Variant{
		Provider:           provider,
		MessagePrefix:      MessagePrefix(provider),
		IncludeAccessToken: true,
		BuildUser:          BuildGenericUser,
	}
}

// MessagePrefix upper cases name and replaces anything that is not a
// letter or digit with an underscore.
func MessagePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "OAUTH"
	}
	return b.String()
}

func (v Variant) normalize(provider string) Variant {
	if v.Provider == "" {
		v.Provider = provider
	}
	if v.MessagePrefix == "" {
		v.MessagePrefix = MessagePrefix(v.Provider)
	}
	if v.BuildUser == nil {
		v.BuildUser = BuildGenericUser
	}
	return v
}

// SuccessType returns the success message type.
func (v Variant) SuccessType() string {
	return v.MessagePrefix + SuccessSuffix
}

// ErrorType returns the error message type.
func (v Variant) ErrorType() string {
	return v.MessagePrefix + ErrorSuffix
}

// Success builds the success message for a completed exchange.
func (v Variant) Success(token *Token, profile *Profile) Message {
	msg := Message{
		Type:     v.SuccessType(),
		Provider: v.Provider,
		User:     v.BuildUser(profile),
	}
	if v.IncludeAccessToken && token != nil {
		msg.AccessToken = token.AccessToken
	}
	return msg
}

// Failure builds the error message for err.
func (v Variant) Failure(err error) Message {
	msg := Message{
		Type:     v.ErrorType(),
		Provider: v.Provider,
	}

	var denied *CallbackError
	var perr *ProviderError
	var rich *goerrors.Error
	switch {
	case errors.As(err, &denied):
		msg.Error = denied.Reason()
		msg.ErrorDescription = denied.Description
	case errors.As(err, &perr):
		msg.Error = perr.Reason()
		msg.Status = perr.Status
	case errors.As(err, &rich):
		msg.Error = rich.Message
	case err != nil:
		msg.Error = err.Error()
	default:
		msg.Error = "authentication failed"
	}

	return msg
}
