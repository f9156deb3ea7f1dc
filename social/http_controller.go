package social

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	DefaultPathPrefix = "/auth/social"
	DefaultPopupView  = "auth/popup"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth/social")
	PathPrefix string

	// TrustedOrigin is the only origin the popup posts its message to.
	TrustedOrigin string

	// PopupView renders the callback page (default: "auth/popup")
	PopupView string

	// ErrorHandler handles Begin errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// HTTPController serves the begin and callback halves of the popup flow.
type HTTPController struct {
	handshaker *Handshaker
	config     HTTPConfig
}

// NewHTTPController creates a new popup HTTP controller.
func NewHTTPController(h *Handshaker, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	if cfg.PopupView == "" {
		cfg.PopupView = DefaultPopupView
	}

	return &HTTPController{
		handshaker: h,
		config:     cfg,
	}
}

// Config returns the resolved configuration.
func (c *HTTPController) Config() HTTPConfig {
	return c.config
}

// CallbackPath returns the public callback path for provider.
func (c *HTTPController) CallbackPath(provider string) string {
	return c.config.PathPrefix + "/" + provider + "/callback"
}

// RegisterRoutes registers the popup routes on group, mounted at PathPrefix.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/providers", c.ListProviders)
	group.Get("/:provider/callback", c.Callback)
	group.Get("/:provider", c.Begin)
}

// ListProviders returns the configured provider names.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"providers": c.handshaker.Providers(),
	})
}

// Begin redirects the popup to the provider authorization URL.
func (c *HTTPController) Begin(ctx router.Context) error {
	authURL, err := c.handshaker.Begin(ctx.Context(), ctx.Param("provider"), ctx.Query("redirect_url"))
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(authURL, http.StatusTemporaryRedirect)
}

// Callback completes the handshake and renders the popup page that posts
// exactly one message to the trusted origin and closes itself.
func (c *HTTPController) Callback(ctx router.Context) error {
	provider := ctx.Param("provider")
	ex := c.handshaker.Complete(ctx.Context(), provider, CallbackParams{
		Code:             ctx.Query("code"),
		State:            ctx.Query("state"),
		Error:            ctx.Query("error"),
		ErrorReason:      ctx.Query("error_reason"),
		ErrorDescription: ctx.Query("error_description"),
	})

	view, err := PopupViewContext(ex.Message, c.config.TrustedOrigin)
	if err != nil {
		return err
	}
	view["provider"] = provider
	view["phase"] = string(ex.Phase)
	view["redirect_url"] = ex.RedirectURL()

	return ctx.Render(c.config.PopupView, view)
}

// PopupViewContext builds the template bindings for a popup page. Values
// ending in _json are JSON literals safe for inline scripts.
func PopupViewContext(msg Message, targetOrigin string) (router.ViewContext, error) {
	payload, err := msg.JSON()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "encode popup message")
	}
	origin, err := json.Marshal(targetOrigin)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "encode target origin")
	}

	return router.ViewContext{
		"message_json":       payload,
		"target_origin_json": string(origin),
		"message_type":       msg.Type,
		"success":            msg.IsSuccess(),
	}, nil
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	status := router.StatusBadRequest
	if HasTextCode(err, TextCodeProviderNotFound) {
		status = http.StatusNotFound
	}

	return ctx.JSON(status, map[string]string{
		"error": err.Error(),
	})
}
