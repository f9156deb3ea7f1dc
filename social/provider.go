package social

import (
	"context"
	"time"
)

// Provider is an OAuth2 popup login provider.
type Provider interface {
	// Name returns the provider identifier (e.g., "instagram", "naver").
	Name() string

	// AuthCodeURL returns the authorization URL the popup is sent to.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)

	// UserInfo fetches the user's profile using the access token.
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// VariantProvider is implemented by providers that ship their own message
// variant. Providers without one use GenericVariant.
type VariantProvider interface {
	Variant() Variant
}

// AuthCodeOption configures the authorization URL.
type AuthCodeOption func(*authCodeConfig)

// WithScopes sets additional scopes for the auth request.
func WithScopes(scopes ...string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// WithPKCE enables PKCE with the given code challenge.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.codeChallenge = codeChallenge
		c.codeChallengeMethod = method
	}
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for token exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

// WithExchangeState forwards the callback state to providers that expect it
// in the token request.
func WithExchangeState(state string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.state = state
	}
}

type authCodeConfig struct {
	scopes              []string
	codeChallenge       string
	codeChallengeMethod string
}

type exchangeConfig struct {
	codeVerifier string
	state        string
}

// AuthCodeConfig is the resolved form of AuthCodeOption values.
type AuthCodeConfig struct {
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ExchangeConfig is the resolved form of ExchangeOption values.
type ExchangeConfig struct {
	CodeVerifier string
	State        string
}

// ApplyAuthCodeOptions applies AuthCodeOption values on top of scopes.
func ApplyAuthCodeOptions(scopes []string, opts ...AuthCodeOption) AuthCodeConfig {
	cfg := authCodeConfig{scopes: append([]string(nil), scopes...)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return AuthCodeConfig{
		Scopes:              cfg.scopes,
		CodeChallenge:       cfg.codeChallenge,
		CodeChallengeMethod: cfg.codeChallengeMethod,
	}
}

// ApplyExchangeOptions applies ExchangeOption values.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return ExchangeConfig{
		CodeVerifier: cfg.codeVerifier,
		State:        cfg.state,
	}
}

// Token is an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	Raw          map[string]any
}

// Profile is the normalized provider profile.
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	Name           string
	Username       string
	AvatarURL      string
	// AccountType is PERSONAL, BUSINESS or CREATOR for Instagram.
	AccountType string
	MediaCount  int
	Raw         map[string]any
}
