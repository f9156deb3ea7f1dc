package guard

import (
	"fmt"
	"net/http"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
)

// Requirement names a single gate predicate.
type Requirement string

const (
	RequireAuth       Requirement = "auth"
	RequireAdmin      Requirement = "admin"
	RequirePermission Requirement = "permission"
	RequireGroup      Requirement = "group"
	RequireAnyGroup   Requirement = "any_group"
)

// AccessDeniedMessage is shown when no fallback renderer is configured and
// the failing predicate has no specific message.
const AccessDeniedMessage = "access denied"

// PermissionRequirement is a resource/action pair.
type PermissionRequirement struct {
	Resource string
	Action   string
}

// Requirements are combined with AND and checked in a fixed order:
// auth, admin, permission, group, any group.
type Requirements struct {
	Admin      bool
	Permission *PermissionRequirement
	Group      string
	AnyGroup   []string
}

// Result reports the first failing requirement, if any.
type Result struct {
	Allowed bool
	Loading bool
	Failed  Requirement
	Message string
}

// Check evaluates req against the snapshot. A loading snapshot never makes a
// permission decision.
func Check(snap authclient.Snapshot, req Requirements, policy *authclient.Policy) Result {
	if policy == nil {
		policy = authclient.DefaultPolicy
	}

	if snap.IsLoading {
		return Result{Loading: true}
	}

	user := snap.User
	if !snap.IsAuthenticated || user == nil {
		return denied(RequireAuth, "authentication required")
	}

	if req.Admin && !policy.IsAdmin(user) {
		return denied(RequireAdmin, "administrator access required")
	}

	if p := req.Permission; p != nil && !policy.HasPermission(user, p.Resource, p.Action) {
		return denied(RequirePermission, fmt.Sprintf("permission %s:%s required", p.Resource, p.Action))
	}

	if req.Group != "" && !policy.HasGroup(user, req.Group) {
		return denied(RequireGroup, fmt.Sprintf("membership in %q required", req.Group))
	}

	if len(req.AnyGroup) > 0 && !policy.HasAnyGroup(user, req.AnyGroup...) {
		return denied(RequireAnyGroup, fmt.Sprintf("membership in one of %s required", strings.Join(req.AnyGroup, ", ")))
	}

	return Result{Allowed: true}
}

func denied(req Requirement, msg string) Result {
	return Result{Failed: req, Message: msg}
}

// FallbackRenderer renders the response for a failed gate.
type FallbackRenderer func(ctx router.Context, result Result) error

// GateConfig configures Gate.
type GateConfig struct {
	// Source is used when the guard middleware did not store a snapshot.
	Source    authclient.SnapshotSource
	Policy    *authclient.Policy
	LocalsKey string

	Fallback    FallbackRenderer
	DeniedView  string
	LoadingView string
}

func gateConfigDefault(config ...GateConfig) GateConfig {
	var cfg GateConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Policy == nil {
		cfg.Policy = authclient.DefaultPolicy
	}
	if cfg.LocalsKey == "" {
		cfg.LocalsKey = authclient.DefaultLocalsKey
	}
	if cfg.LoadingView == "" {
		cfg.LoadingView = DefaultLoadingView
	}
	return cfg
}

// Gate enforces req on a single route.
func Gate(req Requirements, config ...GateConfig) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := gateConfigDefault(config...)

		return func(ctx router.Context) error {
			snap, ok := authclient.GetRouterSnapshot(ctx, cfg.LocalsKey)
			if !ok && cfg.Source != nil {
				snap = cfg.Source.Snapshot()
			}

			result := Check(snap, req, cfg.Policy)
			switch {
			case result.Allowed:
				return ctx.Next()
			case result.Loading:
				return ctx.Render(cfg.LoadingView, router.ViewContext{})
			case cfg.Fallback != nil:
				return cfg.Fallback(ctx, result)
			case cfg.DeniedView != "":
				return ctx.Render(cfg.DeniedView, router.ViewContext{
					"message":     result.Message,
					"requirement": string(result.Failed),
				})
			default:
				msg := result.Message
				if msg == "" {
					msg = AccessDeniedMessage
				}
				return ctx.JSON(http.StatusForbidden, map[string]string{
					"error":  AccessDeniedMessage,
					"reason": msg,
				})
			}
		}
	}
}
