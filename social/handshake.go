package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-print"
)

// Phase is a step of a single popup handshake.
type Phase string

const (
	PhaseAwaitingRedirect Phase = "awaiting_redirect"
	PhaseCodeReceived     Phase = "code_received"
	PhaseErrorReceived    Phase = "error_received"
	PhaseExchanging       Phase = "exchanging"
	PhaseSuccess          Phase = "success"
	PhaseFailure          Phase = "failure"
)

// CallbackParams are the query parameters the provider redirects back with.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
}

// HasError reports whether the provider redirected with an error.
func (p CallbackParams) HasError() bool {
	return p.Error != "" || p.ErrorReason != "" || p.ErrorDescription != ""
}

// CallbackError is the error a provider redirected the popup with.
type CallbackError struct {
	Provider    string
	Code        string
	ErrReason   string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s authorization failed: %s (%s)", e.Provider, e.Reason(), e.Description)
	}
	return fmt.Sprintf("%s authorization failed: %s", e.Provider, e.Reason())
}

// Reason returns the error code, falling back to error_reason.
func (e *CallbackError) Reason() string {
	switch {
	case e.Code != "":
		return e.Code
	case e.ErrReason != "":
		return e.ErrReason
	default:
		return e.Description
	}
}

// Exchange is the ephemeral context of one popup. It is never persisted.
type Exchange struct {
	Provider string
	Phase    Phase
	History  []Phase
	Code     string
	State    *OAuthState
	Token    *Token
	Profile  *Profile
	Err      error
	Message  Message
	// Duration covers the token exchange and profile fetch.
	Duration time.Duration

	started time.Time
}

// RedirectURL is the local path sealed into the state at Begin, if any.
func (e *Exchange) RedirectURL() string {
	if e == nil || e.State == nil || !authclient.IsLocalRedirect(e.State.RedirectURL) {
		return ""
	}
	return e.State.RedirectURL
}

// Succeeded reports whether the handshake reached PhaseSuccess.
func (e *Exchange) Succeeded() bool {
	return e != nil && e.Phase == PhaseSuccess
}

func (e *Exchange) advance(p Phase) {
	e.Phase = p
	e.History = append(e.History, p)
}

// Observer is notified once per completed handshake.
type Observer interface {
	ObserveExchange(ex *Exchange)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ex *Exchange)

// ObserveExchange implements Observer.
func (f ObserverFunc) ObserveExchange(ex *Exchange) {
	if f != nil {
		f(ex)
	}
}

// HandshakerOption configures a Handshaker.
type HandshakerOption func(*Handshaker)

// WithProvider registers a provider. Its variant comes from VariantProvider
// or GenericVariant.
func WithProvider(p Provider) HandshakerOption {
	return func(h *Handshaker) {
		if p == nil {
			return
		}
		v := GenericVariant(p.Name())
		if vp, ok := p.(VariantProvider); ok {
			v = vp.Variant()
		}
		h.providers[p.Name()] = p
		h.variants[p.Name()] = v.normalize(p.Name())
	}
}

// WithStateManager enables sealed state for Begin and state checks on Complete.
func WithStateManager(sm StateManager) HandshakerOption {
	return func(h *Handshaker) {
		h.state = sm
	}
}

// WithHandshakeLogger sets the logger.
func WithHandshakeLogger(logger authclient.Logger) HandshakerOption {
	return func(h *Handshaker) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver adds an Observer.
func WithObserver(o Observer) HandshakerOption {
	return func(h *Handshaker) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// WithHandshakeClock injects the clock used to time exchanges.
func WithHandshakeClock(now func() time.Time) HandshakerOption {
	return func(h *Handshaker) {
		if now != nil {
			h.now = now
		}
	}
}

// Handshaker drives the popup protocol for the registered providers.
type Handshaker struct {
	mu        sync.RWMutex
	providers map[string]Provider
	variants  map[string]Variant
	state     StateManager
	logger    authclient.Logger
	observers []Observer
	now       func() time.Time
}

// NewHandshaker creates a Handshaker.
func NewHandshaker(opts ...HandshakerOption) *Handshaker {
	h := &Handshaker{
		providers: map[string]Provider{},
		variants:  map[string]Variant{},
		logger:    authclient.DefaultLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register adds a provider after construction.
func (h *Handshaker) Register(p Provider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	WithProvider(p)(h)
}

// Providers lists registered provider names, sorted.
func (h *Handshaker) Providers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variant returns the variant of a registered provider.
func (h *Handshaker) Variant(name string) (Variant, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.variants[name]
	return v, ok
}

// Begin returns the authorization URL the popup should be sent to.
func (h *Handshaker) Begin(ctx context.Context, providerName, redirectURL string) (string, error) {
	p, variant, err := h.lookup(providerName)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if h.state == nil {
		if variant.RequiresState || variant.PKCE {
			return "", withMeta(ErrInvalidState, nil, map[string]any{
				"provider": providerName,
				"reason":   "state manager required",
			})
		}
		return p.AuthCodeURL(""), nil
	}

	if redirectURL != "" && !authclient.IsLocalRedirect(redirectURL) {
		h.logger.Warn("oauth %s: ignoring off-site redirect %q", providerName, redirectURL)
		redirectURL = ""
	}

	st := &OAuthState{Provider: providerName, RedirectURL: redirectURL}
	var opts []AuthCodeOption
	if variant.PKCE {
		verifier, err := GenerateCodeVerifier()
		if err != nil {
			return "", err
		}
		st.CodeVerifier = verifier
		opts = append(opts, WithPKCE(CodeChallenge(verifier), "S256"))
	}

	sealed, err := h.state.Encode(st)
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(sealed, opts...), nil
}

// Complete runs the callback half of the protocol and always returns an
// Exchange carrying exactly one message for the opener.
func (h *Handshaker) Complete(ctx context.Context, providerName string, params CallbackParams) *Exchange {
	ex := &Exchange{Provider: providerName}
	ex.advance(PhaseAwaitingRedirect)

	p, variant, err := h.lookup(providerName)
	if err != nil {
		ex.advance(PhaseErrorReceived)
		return h.fail(ex, GenericVariant(providerName).normalize(providerName), err)
	}

	if params.HasError() {
		ex.advance(PhaseErrorReceived)
		denied := &CallbackError{
			Provider:    providerName,
			Code:        params.Error,
			ErrReason:   params.ErrorReason,
			Description: params.ErrorDescription,
		}
		return h.fail(ex, variant, withMeta(ErrProviderDenied, denied, map[string]any{
			"provider": providerName,
			"error":    denied.Reason(),
		}))
	}

	if strings.TrimSpace(params.Code) == "" {
		ex.advance(PhaseErrorReceived)
		return h.fail(ex, variant, withMeta(ErrMissingCode, nil, map[string]any{"provider": providerName}))
	}

	ex.Code = params.Code
	ex.advance(PhaseCodeReceived)

	st, err := h.checkState(providerName, variant, params.State)
	if err != nil {
		return h.fail(ex, variant, err)
	}
	ex.State = st

	opts := []ExchangeOption{}
	if params.State != "" {
		opts = append(opts, WithExchangeState(params.State))
	}
	if st != nil && st.CodeVerifier != "" {
		opts = append(opts, WithCodeVerifier(st.CodeVerifier))
	}

	ex.advance(PhaseExchanging)
	ex.started = h.now()

	token, err := p.Exchange(ctx, params.Code, opts...)
	if err != nil {
		return h.fail(ex, variant, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err))
	}
	if token == nil || token.AccessToken == "" {
		return h.fail(ex, variant, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange",
			&ProviderError{Provider: providerName, Operation: "exchange", Description: "empty access token"}))
	}
	ex.Token = token

	profile, err := p.UserInfo(ctx, token)
	if err != nil {
		return h.fail(ex, variant, wrapProviderError(ErrUserInfoFailed, providerName, "userinfo", err))
	}
	if profile == nil {
		return h.fail(ex, variant, wrapProviderError(ErrUserInfoFailed, providerName, "userinfo",
			&ProviderError{Provider: providerName, Operation: "userinfo", Description: "empty profile"}))
	}
	if profile.Provider == "" {
		profile.Provider = providerName
	}
	ex.Profile = profile

	ex.Message = variant.Success(token, profile)
	ex.advance(PhaseSuccess)
	h.stopClock(ex)
	h.logger.Info("oauth %s: handshake succeeded for %s", providerName, profile.ProviderUserID)
	h.observe(ex)
	return ex
}

func (h *Handshaker) checkState(providerName string, variant Variant, raw string) (*OAuthState, error) {
	if h.state == nil {
		if variant.RequiresState && raw == "" {
			return nil, withMeta(ErrInvalidState, nil, map[string]any{"provider": providerName, "reason": "missing state"})
		}
		return nil, nil
	}

	if raw == "" {
		if variant.RequiresState || variant.PKCE {
			return nil, withMeta(ErrInvalidState, nil, map[string]any{"provider": providerName, "reason": "missing state"})
		}
		return nil, nil
	}

	st, err := h.state.Decode(raw)
	if err != nil {
		return nil, err
	}
	if st.Provider != providerName {
		return nil, withMeta(ErrInvalidState, nil, map[string]any{
			"provider": providerName,
			"reason":   "provider mismatch",
		})
	}
	return st, nil
}

func (h *Handshaker) lookup(name string) (Provider, Variant, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.providers[name]
	if !ok {
		return nil, Variant{}, withMeta(ErrProviderNotFound, nil, map[string]any{"provider": name})
	}
	return p, h.variants[name], nil
}

func (h *Handshaker) fail(ex *Exchange, variant Variant, err error) *Exchange {
	ex.Err = err
	ex.Message = variant.Failure(err)
	ex.advance(PhaseFailure)
	h.stopClock(ex)

	var perr *ProviderError
	if errors.As(err, &perr) {
		h.logger.Warn("oauth %s: handshake failed: %v details=%s", ex.Provider, err, print.MaybePrettyJSON(perr.Metadata()))
	} else {
		h.logger.Warn("oauth %s: handshake failed: %v", ex.Provider, err)
	}

	h.observe(ex)
	return ex
}

func (h *Handshaker) stopClock(ex *Exchange) {
	if !ex.started.IsZero() {
		ex.Duration = h.now().Sub(ex.started)
	}
}

func (h *Handshaker) observe(ex *Exchange) {
	for _, o := range h.observers {
		h.safeObserve(o, ex)
	}
}

func (h *Handshaker) safeObserve(o Observer, ex *Exchange) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("oauth observer panic: %v", r)
		}
	}()
	o.ObserveExchange(ex)
}
