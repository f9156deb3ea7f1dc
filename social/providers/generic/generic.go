// Package generic implements a configurable OAuth2 authorization code
// provider for identity providers without a dedicated variant.
package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-auth-client/social"
)

// FieldMap names the profile response fields, dotted paths walk nested
// objects ("response.id").
type FieldMap struct {
	ID        string
	Email     string
	Name      string
	Username  string
	AvatarURL string
}

// DefaultFieldMap matches OpenID Connect userinfo responses.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		ID:        "sub",
		Email:     "email",
		Name:      "name",
		Username:  "preferred_username",
		AvatarURL: "picture",
	}
}

// Config holds the generic provider configuration.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	Fields FieldMap
	// PKCE sends an S256 code challenge, requires a state manager.
	PKCE bool
	// SendState forwards the callback state to the token endpoint.
	SendState bool

	HTTPClient *http.Client
}

// Validate checks the required fields.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.AuthURL, validation.Required, is.URL),
		validation.Field(&c.TokenURL, validation.Required, is.URL),
		validation.Field(&c.ProfileURL, validation.Required, is.URL),
	)
}

// Provider implements social.Provider from configuration.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.VariantProvider = (*Provider)(nil)

// New validates cfg and creates a provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	defaults := DefaultFieldMap()
	if cfg.Fields.ID == "" {
		cfg.Fields.ID = defaults.ID
	}
	if cfg.Fields.Email == "" {
		cfg.Fields.Email = defaults.Email
	}
	if cfg.Fields.Name == "" {
		cfg.Fields.Name = defaults.Name
	}
	if cfg.Fields.Username == "" {
		cfg.Fields.Username = defaults.Username
	}
	if cfg.Fields.AvatarURL == "" {
		cfg.Fields.AvatarURL = defaults.AvatarURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{config: cfg, httpClient: client}, nil
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return p.config.Name
}

// Variant implements social.VariantProvider.
func (p *Provider) Variant() social.Variant {
	v := social.GenericVariant(p.config.Name)
	v.PKCE = p.config.PKCE
	v.RequiresState = p.config.SendState
	return v
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
	}
	if len(cfg.Scopes) > 0 {
		params.Set("scope", strings.Join(cfg.Scopes, " "))
	}
	if state != "" {
		params.Set("state", state)
	}
	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	sep := "?"
	if strings.Contains(p.config.AuthURL, "?") {
		sep = "&"
	}
	return p.config.AuthURL + sep + params.Encode()
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.config.CallbackURL},
		"code":          {code},
	}
	if p.config.SendState && cfg.State != "" {
		data.Set("state", cfg.State)
	}
	if cfg.CodeVerifier != "" {
		data.Set("code_verifier", cfg.CodeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, p.providerError("exchange", 0, "", "", err, nil)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, p.providerError("exchange", status, "invalid_response", "failed to decode token response", err, nil)
	}

	if status < 200 || status > 299 || lookupString(raw, "error") != "" {
		return nil, p.providerError("exchange", status, lookupString(raw, "error"), lookupString(raw, "error_description"), nil, raw)
	}

	token := &social.Token{
		AccessToken:  lookupString(raw, "access_token"),
		TokenType:    lookupString(raw, "token_type"),
		RefreshToken: lookupString(raw, "refresh_token"),
		Raw:          raw,
	}
	if token.AccessToken == "" {
		return nil, p.providerError("exchange", status, "missing_access_token", "missing access token", nil, nil)
	}
	if secs := lookupInt(raw, "expires_in"); secs > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return token, nil
}

// UserInfo implements social.Provider.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProfileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, p.providerError("user_info", 0, "", "", err, nil)
	}

	if status < 200 || status > 299 {
		return nil, p.providerError("user_info", status, "", apiErrorMessage(body), nil, nil)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, p.providerError("user_info", status, "invalid_response", "failed to decode profile response", err, nil)
	}

	f := p.config.Fields
	profile := &social.Profile{
		ProviderUserID: lookupString(raw, f.ID),
		Provider:       p.config.Name,
		Email:          lookupString(raw, f.Email),
		Name:           lookupString(raw, f.Name),
		Username:       lookupString(raw, f.Username),
		AvatarURL:      lookupString(raw, f.AvatarURL),
		Raw:            raw,
	}
	if profile.ProviderUserID == "" {
		return nil, p.providerError("user_info", status, "missing_id", "profile has no "+f.ID, nil, raw)
	}
	return profile, nil
}

func (p *Provider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (p *Provider) providerError(operation string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    p.config.Name,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}

func lookup(raw map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func lookupString(raw map[string]any, path string) string {
	v, ok := lookup(raw, path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

func lookupInt(raw map[string]any, path string) int64 {
	v, ok := lookup(raw, path)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		var n int64
		if _, err := fmt.Sscan(t, &n); err == nil {
			return n
		}
	}
	return 0
}

func apiErrorMessage(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		for _, key := range []string{"error_description", "message", "error.message", "error"} {
			if msg := lookupString(raw, key); msg != "" {
				return msg
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "request failed"
	}
	return msg
}
