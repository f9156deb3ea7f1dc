package social

import (
	"context"
	"net/url"
	"sync"
	"time"
)

var (
	testEncKey  = []byte("0123456789abcdef0123456789abcdef")
	testHMACKey = []byte("fedcba9876543210fedcba9876543210")
)

type stubProvider struct {
	name        string
	variant     *Variant
	authBase    string
	token       *Token
	profile     *Profile
	exchangeErr error
	userInfoErr error
	// exchangeHook runs inside Exchange, before it returns.
	exchangeHook func()

	mu            sync.Mutex
	lastState     string
	lastAuthOpts  AuthCodeConfig
	lastExchange  ExchangeConfig
	exchangeCalls int
	userInfoCalls int
}

func (p *stubProvider) Name() string {
	return p.name
}

func (p *stubProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastState = state
	p.lastAuthOpts = ApplyAuthCodeOptions(nil, opts...)
	return p.authBase + "?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	p.lastExchange = ApplyExchangeOptions(opts...)
	if p.exchangeHook != nil {
		p.exchangeHook()
	}
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *stubProvider) UserInfo(ctx context.Context, token *Token) (*Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoCalls++
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

type variantStub struct {
	*stubProvider
}

func (v variantStub) Variant() Variant {
	return *v.variant
}

func newStub(name string) *stubProvider {
	return &stubProvider{
		name:     name,
		authBase: "https://idp.example.com/authorize",
		token:    &Token{AccessToken: "access-token"},
		profile: &Profile{
			ProviderUserID: "provider-user-1",
			Email:          "person@example.com",
			Name:           "Person",
		},
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
