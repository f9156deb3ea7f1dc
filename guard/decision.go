package guard

import (
	authclient "github.com/goliatone/go-auth-client"
)

// Outcome is what the guard decided to show for a navigation.
type Outcome int

const (
	// OutcomeRender shows the requested content.
	OutcomeRender Outcome = iota
	// OutcomeLoading shows a placeholder while the session settles.
	OutcomeLoading
	// OutcomeRedirect sends the visitor to the login entry point.
	OutcomeRedirect
	// OutcomeRequestAccess shows the terminal "request access" placeholder.
	OutcomeRequestAccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRender:
		return "render"
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRequestAccess:
		return "request_access"
	default:
		return "unknown"
	}
}

// Decision is the result of Evaluate.
type Decision struct {
	Outcome Outcome
	Public  bool
}

// Evaluate decides what to show for path using DefaultPolicy.
func Evaluate(snap authclient.Snapshot, path string, routes Routes) Decision {
	return EvaluateWithPolicy(snap, path, routes, authclient.DefaultPolicy)
}

// EvaluateWithPolicy is Evaluate with an explicit policy for the default
// team check. Public routes render even while the session is loading.
func EvaluateWithPolicy(snap authclient.Snapshot, path string, routes Routes, policy *authclient.Policy) Decision {
	if policy == nil {
		policy = authclient.DefaultPolicy
	}

	if routes.IsPublic(path) {
		return Decision{Outcome: OutcomeRender, Public: true}
	}

	switch {
	case snap.IsLoading:
		return Decision{Outcome: OutcomeLoading}
	case !snap.IsAuthenticated || snap.User == nil:
		return Decision{Outcome: OutcomeRedirect}
	case policy.IsDefaultTeam(snap.User):
		return Decision{Outcome: OutcomeRequestAccess}
	default:
		return Decision{Outcome: OutcomeRender}
	}
}
