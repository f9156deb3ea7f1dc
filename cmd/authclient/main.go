package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitylog"
	"github.com/goliatone/go-auth-client/backend"
	"github.com/goliatone/go-auth-client/config"
	"github.com/goliatone/go-auth-client/guard"
	"github.com/goliatone/go-auth-client/metrics"
	"github.com/goliatone/go-auth-client/social"
	"github.com/goliatone/go-auth-client/social/providers/generic"
	"github.com/goliatone/go-auth-client/social/providers/instagram"
	"github.com/goliatone/go-auth-client/social/providers/naver"
	"github.com/goliatone/go-auth-client/tokenstore"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config     *config.Config
	logger     authclient.Logger
	store      authclient.TokenStore
	activity   *activitylog.BunSink
	closers    []func() error
	registry   *prometheus.Registry
	collector  *metrics.Collector
	controller *authclient.Controller
	handshaker *social.Handshaker
	social     *social.HTTPController
	srv        router.Server[*fiber.App]
	metricsSrv *http.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: authclient.DefaultLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := WithTokenStore(ctx, app); err != nil {
		panic(err)
	}
	defer app.Close()

	WithMetrics(app)
	WithSession(app)

	if err := WithHandshaker(app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(app); err != nil {
		panic(err)
	}

	go app.controller.Initialize(ctx)
	go func() {
		if err := app.controller.Run(ctx); err != nil {
			app.logger.Error("expiry sweep stopped: %v", err)
		}
	}()

	WithMetricsServer(app)

	app.srv.Serve(cfg.Addr)

	sig := WaitExitSignal()
	app.logger.Info("received %s, shutting down", sig)
	cancel()

	if app.metricsSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := app.metricsSrv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("metrics shutdown: %v", err)
		}
	}
}

// Close releases the token store connections.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close: %v", err)
		}
	}
}

func WithTokenStore(ctx context.Context, app *App) error {
	cfg := app.config

	switch cfg.TokenStore {
	case config.StoreMemory:
		app.store = tokenstore.NewMemory()
	case config.StoreFile:
		app.store = tokenstore.NewFile(cfg.TokenFile)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		app.store = tokenstore.NewRedis(client,
			tokenstore.WithRedisKey(cfg.RedisKey),
			tokenstore.WithRedisTTL(cfg.RedisTTL),
		)
	case config.StoreSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
		if err != nil {
			return err
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		app.closers = append(app.closers, db.Close)

		store := tokenstore.NewBun(db, cfg.SQLiteSlot)
		if err := store.CreateTable(ctx); err != nil {
			return err
		}
		app.store = store

		app.activity = activitylog.NewBunSink(db)
		if err := app.activity.CreateTable(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}

	app.logger.Info("token store: %s", cfg.TokenStore)
	return nil
}

func WithMetrics(app *App) {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.collector = metrics.NewCollector(app.registry)
}

// WithMetricsServer exposes the registry on its own listener so scrapes
// never go through the session guard.
func WithMetricsServer(app *App) {
	if app.config.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(app.registry))
	app.metricsSrv = &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := app.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("metrics server: %v", err)
		}
	}()
}

func WithSession(app *App) {
	cfg := app.config

	verifier := backend.New(backend.Config{
		BaseURL:           cfg.BackendURL,
		Timeout:           cfg.BackendTimeout,
		RequestsPerSecond: cfg.BackendRPS,
		Burst:             cfg.BackendBurst,
		Logger:            app.logger,
	})

	policy := authclient.NewPolicy(cfg.AdminGroup, cfg.DefaultGroup, map[string]authclient.GroupRule{
		"beauty": {
			Capabilities: []authclient.Capability{authclient.CapabilityCreateModel, authclient.CapabilityCreatePost},
			Grants:       map[string][]string{"models": {"read", "create"}, "posts": {"read", "create"}},
		},
		"fashion": {
			Capabilities: []authclient.Capability{authclient.CapabilityCreatePost},
			Grants:       map[string][]string{"models": {"read"}, "posts": {"read", "create"}},
		},
		"editors": {
			Capabilities: []authclient.Capability{authclient.CapabilityManageContent},
			Grants:       map[string][]string{"posts": {authclient.Wildcard}},
		},
	})

	app.controller = authclient.NewController(app.store, verifier,
		authclient.WithPolicy(policy),
		authclient.WithSweepInterval(cfg.SweepInterval),
		authclient.WithLogger(app.logger),
		authclient.WithListener(app.collector.Listener()),
		authclient.WithActivitySink(activitySink(app)),
	)
}

func activitySink(app *App) authclient.ActivitySink {
	logSink := activitylog.LogSink(app.logger)
	if app.activity == nil {
		return logSink
	}
	return activitylog.Fanout(logSink, app.activity)
}

func WithHandshaker(app *App) error {
	cfg := app.config

	opts := []social.HandshakerOption{
		social.WithHandshakeLogger(app.logger),
		social.WithObserver(app.collector),
	}

	if cfg.HasState() {
		sm, err := social.NewSealedStateManager([]byte(cfg.StateKey), []byte(cfg.StateHMACKey), cfg.StateTTL)
		if err != nil {
			return err
		}
		opts = append(opts, social.WithStateManager(sm))
	}

	callbackURL := func(p config.Provider, name string) string {
		if p.CallbackURL != "" {
			return p.CallbackURL
		}
		return cfg.TrustedOrigin + social.DefaultPathPrefix + "/" + name + "/callback"
	}

	if cfg.Instagram.Enabled() {
		opts = append(opts, social.WithProvider(instagram.New(instagram.Config{
			ClientID:     cfg.Instagram.ClientID,
			ClientSecret: cfg.Instagram.ClientSecret,
			CallbackURL:  callbackURL(cfg.Instagram, instagram.Name),
		})))
	}

	if cfg.Naver.Enabled() {
		opts = append(opts, social.WithProvider(naver.New(naver.Config{
			ClientID:     cfg.Naver.ClientID,
			ClientSecret: cfg.Naver.ClientSecret,
			CallbackURL:  callbackURL(cfg.Naver, naver.Name),
		})))
	}

	if cfg.Generic.Enabled() {
		g := cfg.Generic
		p, err := generic.New(generic.Config{
			Name:         g.Name,
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			CallbackURL:  callbackURL(g.Provider, g.Name),
			Scopes:       g.Scopes,
			AuthURL:      g.AuthURL,
			TokenURL:     g.TokenURL,
			ProfileURL:   g.ProfileURL,
			PKCE:         g.PKCE && cfg.HasState(),
		})
		if err != nil {
			return err
		}
		opts = append(opts, social.WithProvider(p))
	}

	app.handshaker = social.NewHandshaker(opts...)
	app.social = social.NewHTTPController(app.handshaker, social.HTTPConfig{
		TrustedOrigin: cfg.TrustedOrigin,
	})

	app.logger.Info("oauth providers: %v", app.handshaker.Providers())
	return nil
}

func WithHTTPServer(app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}
	engine := django.NewFileSystem(http.FS(views), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	r := srv.Router()

	cfg := app.config
	r.Use(guard.CSRF(guard.CSRFConfig{
		Key:    []byte(cfg.CSRFKey),
		Source: app.controller,
	}))
	r.Use(guard.Middleware(guard.Config{
		Source:    app.controller,
		Routes:    guard.NewRoutes(cfg.PublicPrefixes...),
		Policy:    app.controller.Policy(),
		LoginPath: cfg.LoginPath,
		NextParam: guard.DefaultNextParam,
		Logger:    app.logger,
	}))

	r.Get(cfg.LoginPath, LoginShow(app))
	r.Post(cfg.LoginPath, LoginCreate(app))
	r.Post("/logout", LogoutCreate(app))

	app.social.RegisterRoutes(r.Group(social.DefaultPathPrefix))

	r.Get("/", Home(app))
	r.Get("/session", SessionShow(app))
	r.Get("/models/:owner", ModelShow(app))
	r.Get("/admin", AdminShow(app), guard.Gate(guard.Requirements{Admin: true}, guard.GateConfig{
		Policy:     app.controller.Policy(),
		DeniedView: guard.DefaultDeniedView,
	}))
	r.Get("/admin/activity", ActivityIndex(app), guard.Gate(guard.Requirements{Admin: true}, guard.GateConfig{
		Policy:     app.controller.Policy(),
		DeniedView: guard.DefaultDeniedView,
	}))
	r.Get("/posts/new", PostNew(app), guard.Gate(guard.Requirements{
		Permission: &guard.PermissionRequirement{Resource: "posts", Action: "create"},
	}, guard.GateConfig{Policy: app.controller.Policy()}))

	app.srv = srv
	return nil
}

// LoginPayload is the token login form.
type LoginPayload struct {
	Token string `form:"token" json:"token"`
	Next  string `form:"next" json:"next"`
}

// Validate implements validation.Validatable.
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
	)
}

func LoginShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		return ctx.Render("login", loginView(app, ctx, ctx.Query(guard.DefaultNextParam), ""))
	}
}

func LoginCreate(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		payload := &LoginPayload{
			Token: ctx.FormValue("token"),
			Next:  ctx.FormValue("next"),
		}
		if err := payload.Validate(); err != nil {
			return ctx.Render("login", loginView(app, ctx, payload.Next, err.Error()))
		}

		if _, err := app.controller.Login(ctx.Context(), payload.Token); err != nil {
			return ctx.Render("login", loginView(app, ctx, payload.Next, loginErrorMessage(err)))
		}

		return ctx.Redirect(afterLogin(payload.Next), router.StatusSeeOther)
	}
}

// afterLogin only honors next when it stays on this site.
func afterLogin(next string) string {
	if !authclient.IsLocalRedirect(next) {
		return "/"
	}
	return next
}

func LogoutCreate(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		app.controller.Logout(ctx.Context())
		return ctx.Redirect(app.config.LoginPath, router.StatusSeeOther)
	}
}

func Home(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		snap, _ := authclient.GetRouterSnapshot(ctx, authclient.DefaultLocalsKey)
		if snap.User == nil {
			return ctx.Redirect(app.config.LoginPath, router.StatusSeeOther)
		}
		policy := app.controller.Policy()
		perms := make([]string, 0, len(snap.User.Permissions))
		for _, p := range snap.User.Permissions {
			perms = append(perms, p.String())
		}
		return ctx.Render("home", router.ViewContext{
			"user":             snap.User,
			"is_admin":         policy.IsAdmin(snap.User),
			"can_create_model": policy.CanCreateModel(snap.User),
			"can_create_post":  policy.CanCreatePost(snap.User),
			"can_manage":       policy.CanManageContent(snap.User),
			"groups":           snap.User.GroupNames(),
			"permissions":      perms,
			"csrf_field":       guard.DefaultCSRFField,
			"csrf_token":       ctx.Locals(guard.DefaultCSRFLocalsKey),
		})
	}
}

func SessionShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		snap := app.controller.Snapshot()
		payload := map[string]any{
			"state":            snap.State,
			"is_authenticated": snap.IsAuthenticated,
			"is_loading":       snap.IsLoading,
			"user":             snap.User,
		}
		if snap.Err != nil {
			payload["error"] = snap.Err.Error()
		}
		return ctx.JSON(router.StatusOK, payload)
	}
}

// modelGroups stands in for the allowed groups stored with each model.
var modelGroups = map[string][]string{
	"public":  nil,
	"fashion": {"fashion"},
	"beauty":  {"beauty", "fashion"},
}

func ModelShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		snap, _ := authclient.GetRouterSnapshot(ctx, authclient.DefaultLocalsKey)
		owner := ctx.Param("owner")

		allowed, ok := modelGroups[owner]
		if !ok {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "model not found"})
		}
		if !app.controller.Policy().CanAccessModel(snap.User, allowed) {
			return ctx.JSON(router.StatusForbidden, map[string]any{
				"error":          guard.AccessDeniedMessage,
				"allowed_groups": allowed,
			})
		}
		return ctx.JSON(router.StatusOK, map[string]any{
			"model":          owner,
			"allowed_groups": allowed,
		})
	}
}

func AdminShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{
			"controller": app.controller.ID(),
			"providers":  app.handshaker.Providers(),
		})
	}
}

func ActivityIndex(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		if app.activity == nil {
			return ctx.JSON(router.StatusOK, map[string]any{"entries": []activitylog.Entry{}})
		}
		entries, err := app.activity.Recent(ctx.Context(), 50)
		if err != nil {
			return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(router.StatusOK, map[string]any{"entries": entries})
	}
}

func PostNew(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ready"})
	}
}

func loginView(app *App, ctx router.Context, next, errMsg string) router.ViewContext {
	return router.ViewContext{
		"csrf_field":     guard.DefaultCSRFField,
		"csrf_token":     ctx.Locals(guard.DefaultCSRFLocalsKey),
		"providers":      app.handshaker.Providers(),
		"path_prefix":    social.DefaultPathPrefix,
		"trusted_origin": app.config.TrustedOrigin,
		"next":           next,
		"error":          errMsg,
	}
}

func loginErrorMessage(err error) string {
	switch {
	case authclient.IsHardAuthError(err):
		return "this token was rejected, please sign in again"
	case authclient.IsSoftAuthError(err):
		return "the server could not verify your token right now, try again shortly"
	case authclient.IsTokenExpiredError(err):
		return "this token has expired"
	case authclient.IsMalformedTokenError(err):
		return "this does not look like a valid token"
	default:
		return err.Error()
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
