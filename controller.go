package authclient

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// DefaultSweepInterval is how often Run re-checks the stored token expiry.
const DefaultSweepInterval = 60 * time.Second

// SnapshotSource exposes the current session snapshot. Controller
// implements it, guards only depend on this.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// Listener is notified after every settle with the previous and the new
// snapshot.
type Listener func(prev, next Snapshot)

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithSweepInterval overrides the background expiry sweep interval.
func WithSweepInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger overrides the controller logger.
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

// WithPolicy sets the policy used to derive user permissions.
func WithPolicy(p *Policy) ControllerOption {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.addListener(l)
		}
	}
}

// Controller owns the session snapshot and drives initialize, login,
// logout and the expiry sweep. Create one per client process and pass it
// explicitly, see WithContext.
type Controller struct {
	id           string
	store        TokenStore
	verifier     Verifier
	policy       *Policy
	now          func() time.Time
	interval     time.Duration
	logger       Logger
	activitySink ActivitySink

	// opMu serializes transitions, mu guards snap so readers never wait on
	// a network call.
	opMu sync.Mutex
	mu   sync.RWMutex
	snap Snapshot

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewController returns a controller in the booting state.
func NewController(store TokenStore, verifier Verifier, opts ...ControllerOption) *Controller {
	c := &Controller{
		id:           uuid.NewString(),
		store:        store,
		verifier:     verifier,
		policy:       DefaultPolicy,
		now:          time.Now,
		interval:     DefaultSweepInterval,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		snap:         bootingSnapshot(),
		listeners:    map[int]Listener{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// ID identifies this controller instance in activity events.
func (c *Controller) ID() string {
	return c.id
}

// Snapshot returns the current session snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Policy returns the policy used to evaluate the session user.
func (c *Controller) Policy() *Policy {
	return c.policy
}

// Subscribe registers l and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	id := c.addListener(l)
	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Initialize resolves the session from the stored token. A locally expired
// token is removed without calling the verifier, a hard verification
// failure removes the token, a soft one keeps it for a later retry.
func (c *Controller) Initialize(ctx context.Context) Snapshot {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.markLoading()

	token, found, err := c.store.Get(ctx)
	if err != nil {
		storeErr := wrapWith(ErrTokenStore, err, map[string]any{"op": "get"})
		c.logger.Error("initialize: unable to read token store: %v", err)
		return c.settle(ctx, unauthenticatedSnapshot("", storeErr), ActivityEventInitialized)
	}

	if !found {
		return c.settle(ctx, unauthenticatedSnapshot("", nil), ActivityEventInitialized)
	}

	if IsExpired(token, c.now()) {
		c.removeToken(ctx, "initialize")
		return c.settle(ctx, unauthenticatedSnapshot("", ErrTokenExpired), ActivityEventExpired)
	}

	return c.verify(ctx, token, ActivityEventInitialized, ActivityEventVerifyFailed)
}

// Login persists token and verifies it. Every failure rejects the login and
// is returned to the caller; the token is only removed on hard failures.
func (c *Controller) Login(ctx context.Context, token string) (Snapshot, error) {
	token = strings.TrimSpace(token)

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if token == "" {
		err := wrapWith(ErrMalformedToken, nil, map[string]any{"reason": "empty token"})
		return c.settle(ctx, unauthenticatedSnapshot("", err), ActivityEventLoginFailure), err
	}

	if err := c.store.Set(ctx, token); err != nil {
		storeErr := wrapWith(ErrTokenStore, err, map[string]any{"op": "set"})
		c.logger.Error("login: unable to persist token: %v", err)
		return c.settle(ctx, unauthenticatedSnapshot("", storeErr), ActivityEventLoginFailure), storeErr
	}

	c.markLoading()

	if IsExpired(token, c.now()) {
		c.removeToken(ctx, "login")
		err := ErrTokenExpired.Clone()
		return c.settle(ctx, unauthenticatedSnapshot("", err), ActivityEventLoginFailure), err
	}

	snap := c.verify(ctx, token, ActivityEventLogin, ActivityEventLoginFailure)
	return snap, snap.Err
}

// Logout notifies the verifier best-effort, then always removes the token.
// Calling it on an already empty session is a no-op settle.
func (c *Controller) Logout(ctx context.Context) Snapshot {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.logout(ctx, ActivityEventLogout)
}

// SweepOnce logs out if the stored token is expired. It never calls the
// verifier to re-validate and reports whether a logout happened.
func (c *Controller) SweepOnce(ctx context.Context) bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	token, found, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn("sweep: unable to read token store: %v", err)
		return false
	}
	if !found || !IsExpired(token, c.now()) {
		return false
	}

	c.logger.Info("sweep: stored token expired, logging out")
	c.logout(ctx, ActivityEventExpired)
	return true
}

// Run executes SweepOnce on every interval tick until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.SweepOnce(ctx)
		}
	}
}

func (c *Controller) verify(ctx context.Context, token string, okEvent, failEvent ActivityEventType) Snapshot {
	user, err := c.verifier.VerifyToken(ctx, token)
	if err == nil && user == nil {
		err = wrapWith(ErrSoftAuth, nil, map[string]any{"reason": "verifier returned no user"})
	}

	if err != nil {
		classified := classifyVerification(err)
		kept := token
		if IsHardAuthError(classified) {
			c.removeToken(ctx, "verify")
			kept = ""
		}
		c.logger.Warn("verification failed (hard=%t): %v", kept == "", err)
		return c.settle(ctx, unauthenticatedSnapshot(kept, classified), failEvent)
	}

	return c.settle(ctx, authenticatedSnapshot(c.prepareUser(user), token), okEvent)
}

func (c *Controller) logout(ctx context.Context, event ActivityEventType) Snapshot {
	token, found, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn("logout: unable to read token store: %v", err)
	}
	if !found || token == "" {
		token = c.Snapshot().Token
	}

	if token != "" {
		if err := c.verifier.Logout(ctx, token); err != nil {
			c.logger.Warn("logout: remote invalidation failed: %v", err)
		}
	}

	c.removeToken(ctx, "logout")
	return c.settle(ctx, unauthenticatedSnapshot("", nil), event)
}

func (c *Controller) prepareUser(user *User) *User {
	u := user.Clone()
	if len(u.Permissions) == 0 {
		u.Permissions = c.policy.Resolve(u)
	}
	return u
}

func (c *Controller) removeToken(ctx context.Context, op string) {
	if err := c.store.Remove(ctx); err != nil {
		c.logger.Error("%s: unable to remove token: %v", op, err)
	}
}

func (c *Controller) markLoading() {
	c.mu.Lock()
	c.snap.IsLoading = true
	c.mu.Unlock()
}

func (c *Controller) settle(ctx context.Context, next Snapshot, event ActivityEventType) Snapshot {
	c.mu.Lock()
	prev := c.snap
	c.snap = next
	c.mu.Unlock()

	c.logger.Debug("session %s -> %s", prev.State, next.State)

	c.recordActivity(ctx, event, prev, next)
	c.notify(prev, next)

	return next
}

func (c *Controller) recordActivity(ctx context.Context, event ActivityEventType, prev, next Snapshot) {
	ev := ActivityEvent{
		EventType:  event,
		SessionID:  c.id,
		FromState:  prev.State,
		ToState:    next.State,
		OccurredAt: c.now(),
	}
	switch {
	case next.User != nil:
		ev.UserID = next.User.ID
	case prev.User != nil:
		ev.UserID = prev.User.ID
	}
	if next.Err != nil {
		ev.Metadata = map[string]any{
			"error": next.Err.Error(),
			"hard":  IsHardAuthError(next.Err),
			"soft":  IsSoftAuthError(next.Err),
		}
	}

	if err := c.activitySink.Record(ctx, ev); err != nil {
		c.logger.Warn("activity sink error: %v details=%s", err, print.MaybePrettyJSON(ev.Metadata))
	}
}

func (c *Controller) addListener(l Listener) int {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextID++
	c.listeners[c.nextID] = l
	return c.nextID
}

func (c *Controller) notify(prev, next Snapshot) {
	c.listenersMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.Unlock()

	for _, l := range listeners {
		c.safeNotify(l, prev, next)
	}
}

func (c *Controller) safeNotify(l Listener, prev, next Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("session listener panic: %v", r)
		}
	}()
	l(prev, next)
}
