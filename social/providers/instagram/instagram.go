package instagram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/social"
)

// Name is the provider identifier.
const Name = "instagram"

const (
	defaultAuthURL    = "https://api.instagram.com/oauth/authorize"
	defaultTokenURL   = "https://api.instagram.com/oauth/access_token"
	defaultProfileURL = "https://graph.instagram.com/me"
	profileFields     = "id,username,account_type,media_count"
)

// Config holds Instagram OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Instagram scopes.
func DefaultScopes() []string {
	return []string{"user_profile", "user_media"}
}

// Provider implements social.Provider for Instagram.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.VariantProvider = (*Provider)(nil)

// New creates a new Instagram provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return Name
}

// Variant implements social.VariantProvider. Success messages carry the
// access token and a user with business verification attached.
func (p *Provider) Variant() social.Variant {
	return Variant()
}

// Variant returns the Instagram message variant.
func Variant() social.Variant {
	return social.Variant{
		Provider:           Name,
		MessagePrefix:      "INSTAGRAM",
		IncludeAccessToken: true,
		BuildUser:          BuildUser,
	}
}

// User is the user payload of INSTAGRAM_AUTH_SUCCESS.
type User struct {
	ID                   string                          `json:"id"`
	Username             string                          `json:"username"`
	AccountType          string                          `json:"accountType"`
	MediaCount           int                             `json:"mediaCount"`
	Provider             string                          `json:"provider"`
	BusinessVerification authclient.BusinessVerification `json:"businessVerification"`
}

// BuildUser maps a profile to the success payload and derives business
// verification from the account type.
func BuildUser(profile *social.Profile) any {
	if profile == nil {
		return nil
	}
	return User{
		ID:                   profile.ProviderUserID,
		Username:             profile.Username,
		AccountType:          profile.AccountType,
		MediaCount:           profile.MediaCount,
		Provider:             Name,
		BusinessVerification: social.DeriveBusinessVerification(profile.AccountType),
	}
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"scope":         {strings.Join(cfg.Scopes, ",")},
		"response_type": {"code"},
	}
	if state != "" {
		params.Set("state", state)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.config.CallbackURL},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, providerError("exchange", 0, "", "", err)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, providerError("exchange", status, "invalid_response", "failed to decode token response", err)
	}

	if status != http.StatusOK {
		return nil, providerError("exchange", status, tokenResp.errorCode(), tokenResp.errorMessage(), nil)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("exchange", status, "missing_access_token", "missing access token", nil)
	}

	return &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   "bearer",
		UserID:      tokenResp.userID(),
	}, nil
}

// UserInfo implements social.Provider.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.Profile, error) {
	params := url.Values{
		"fields":       {profileFields},
		"access_token": {token.AccessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProfileURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, providerError("user_info", 0, "", "", err)
	}

	if status != http.StatusOK {
		return nil, providerError("user_info", status, "", graphErrorMessage(body), nil)
	}

	var me profileResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, providerError("user_info", status, "invalid_response", "failed to decode profile response", err)
	}

	return &social.Profile{
		ProviderUserID: me.ID,
		Provider:       Name,
		Username:       me.Username,
		Name:           me.Username,
		AccountType:    strings.ToUpper(me.AccountType),
		MediaCount:     me.MediaCount,
	}, nil
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

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	UserID       json.Number     `json:"user_id"`
	ErrorType    string          `json:"error_type"`
	Code         int             `json:"code"`
	ErrorMessage string          `json:"error_message"`
	Error        json.RawMessage `json:"error"`
}

func (r tokenResponse) userID() string {
	return r.UserID.String()
}

func (r tokenResponse) errorCode() string {
	if r.ErrorType != "" {
		return r.ErrorType
	}
	var code string
	if err := json.Unmarshal(r.Error, &code); err == nil {
		return code
	}
	return ""
}

func (r tokenResponse) errorMessage() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	var nested graphError
	if err := json.Unmarshal(r.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	return "token request failed"
}

type profileResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
	MediaCount  int    `json:"media_count"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func graphErrorMessage(body []byte) string {
	var envelope struct {
		Error graphError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "instagram request failed"
	}
	return msg
}

func providerError(operation string, status int, code, description string, err error) *social.ProviderError {
	return &social.ProviderError{
		Provider:    Name,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
