package naver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-auth-client/social"
)

// Name is the provider identifier.
const Name = "naver"

// ResultCodeOK is the resultcode of a successful profile response.
const ResultCodeOK = "00"

const (
	defaultAuthURL    = "https://nid.naver.com/oauth2.0/authorize"
	defaultTokenURL   = "https://nid.naver.com/oauth2.0/token"
	defaultProfileURL = "https://openapi.naver.com/v1/nid/me"
)

// Config holds Naver OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	HTTPClient *http.Client
}

// Provider implements social.Provider for Naver Login.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.VariantProvider = (*Provider)(nil)

// New creates a new Naver provider.
func New(cfg Config) *Provider {
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

// Variant implements social.VariantProvider.
func (p *Provider) Variant() social.Variant {
	return Variant()
}

// Variant returns the Naver message variant: no access token in the
// message, state is mandatory.
func Variant() social.Variant {
	return social.Variant{
		Provider:      Name,
		MessagePrefix: "NAVER",
		RequiresState: true,
		BuildUser:     BuildUser,
	}
}

// User is the user payload of NAVER_AUTH_SUCCESS.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image"`
}

// BuildUser maps a profile to the success payload.
func BuildUser(profile *social.Profile) any {
	if profile == nil {
		return nil
	}
	return User{
		ID:           profile.ProviderUserID,
		Email:        profile.Email,
		Name:         profile.Name,
		ProfileImage: profile.AvatarURL,
	}
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"state":         {state},
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.Provider. Naver expects the callback state in
// the token request.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.config.CallbackURL},
		"code":          {code},
		"state":         {cfg.State},
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

	if status != http.StatusOK || tokenResp.Error != "" {
		return nil, providerError("exchange", status, tokenResp.Error, tokenResp.ErrorDesc, nil)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("exchange", status, "missing_access_token", "missing access token", nil)
	}

	token := &social.Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
	}
	if secs := tokenResp.expiresIn(); secs > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return token, nil
}

// UserInfo implements social.Provider. A resultcode other than "00" is a
// failure even when the HTTP status is 200.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProfileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, providerError("user_info", 0, "", "", err)
	}

	var me profileResponse
	if err := json.Unmarshal(body, &me); err != nil {
		if status != http.StatusOK {
			return nil, providerError("user_info", status, "", strings.TrimSpace(string(body)), nil)
		}
		return nil, providerError("user_info", status, "invalid_response", "failed to decode profile response", err)
	}

	if status != http.StatusOK || me.ResultCode != ResultCodeOK {
		return nil, providerError("user_info", status, me.ResultCode, me.Message, nil)
	}

	return &social.Profile{
		ProviderUserID: me.Response.ID,
		Provider:       Name,
		Email:          me.Response.Email,
		Name:           me.Response.Name,
		Username:       me.Response.Nickname,
		AvatarURL:      me.Response.ProfileImage,
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
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    json.Number `json:"expires_in"`
	Error        string      `json:"error"`
	ErrorDesc    string      `json:"error_description"`
}

// expires_in comes back as a string from Naver.
func (r tokenResponse) expiresIn() int64 {
	n, err := r.ExpiresIn.Int64()
	if err != nil {
		return 0
	}
	return n
}

type profileResponse struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Name         string `json:"name"`
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
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
