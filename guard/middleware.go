package guard

import (
	"net/http"
	"net/url"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
)

const (
	DefaultLoginPath         = "/login"
	DefaultLoadingView       = "auth/loading"
	DefaultRequestAccessView = "auth/request_access"
	DefaultDeniedView        = "auth/denied"
	DefaultNextParam         = "next"
)

// Config configures the route guard middleware.
type Config struct {
	// Source provides the session snapshot, typically *authclient.Controller.
	Source authclient.SnapshotSource
	Routes Routes
	Policy *authclient.Policy

	// LoginPath is the login entry point, always treated as public.
	LoginPath string
	// NextParam carries the original path to the login page, "" disables it.
	NextParam string

	LoadingView       string
	RequestAccessView string

	// LocalsKey is where the snapshot is exposed for downstream handlers
	// (default: authclient.DefaultLocalsKey).
	LocalsKey string

	// PathFunc extracts the navigation path (default: ctx.Path()).
	PathFunc func(router.Context) string

	Logger authclient.Logger
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Source == nil {
		panic("AUTHCLIENT: guard configuration: Source is required.")
	}
	if cfg.Policy == nil {
		cfg.Policy = authclient.DefaultPolicy
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.LoadingView == "" {
		cfg.LoadingView = DefaultLoadingView
	}
	if cfg.RequestAccessView == "" {
		cfg.RequestAccessView = DefaultRequestAccessView
	}
	if cfg.LocalsKey == "" {
		cfg.LocalsKey = authclient.DefaultLocalsKey
	}
	if cfg.PathFunc == nil {
		cfg.PathFunc = func(ctx router.Context) string { return ctx.Path() }
	}
	if cfg.Logger == nil {
		cfg.Logger = authclient.DefaultLogger()
	}

	cfg.Routes = cfg.Routes.With(cfg.LoginPath)

	return cfg
}

// Middleware guards every route that is not public.
func Middleware(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			snap := cfg.Source.Snapshot()
			path := cfg.PathFunc(ctx)
			decision := EvaluateWithPolicy(snap, path, cfg.Routes, cfg.Policy)

			switch decision.Outcome {
			case OutcomeLoading:
				return ctx.Render(cfg.LoadingView, router.ViewContext{
					"path": path,
				})
			case OutcomeRedirect:
				cfg.Logger.Debug("guard: redirecting %s to %s", path, cfg.LoginPath)
				return ctx.Redirect(cfg.loginURL(path), redirectStatus(ctx.Method()))
			case OutcomeRequestAccess:
				return ctx.Render(cfg.RequestAccessView, router.ViewContext{
					"path": path,
					"user": snap.User,
				})
			}

			ctx.Locals(cfg.LocalsKey, snap)
			return ctx.Next()
		}
	}
}

func (cfg Config) loginURL(path string) string {
	if cfg.NextParam == "" || path == "" || path == "/" {
		return cfg.LoginPath
	}

	parsed, err := url.Parse(cfg.LoginPath)
	if err != nil {
		return cfg.LoginPath
	}
	query := parsed.Query()
	query.Set(cfg.NextParam, path)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// redirectStatus keeps GET navigation as 302 and turns form posts into 303
// so the browser follows with a GET.
func redirectStatus(method string) int {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, "":
		return http.StatusFound
	default:
		return http.StatusSeeOther
	}
}
