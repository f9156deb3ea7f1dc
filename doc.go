// Package authclient is the client side of the authentication flow: it
// keeps the current session token, verifies it against the backend and
// exposes a single session snapshot to route guards and views.
//
// Session controller:
//   - Controller owns the snapshot. Initialize resolves a stored token,
//     Login persists and verifies a new one and Logout always clears local
//     state even when the backend cannot be reached.
//   - Verification failures are classified once. A 401/403 from the backend
//     is a hard failure that removes the token, anything else is soft and
//     leaves the token in place so a later Initialize can recover.
//   - Run drives the expiry sweep. It only inspects the local expiry claim
//     and never re-validates against the backend.
//
// Evaluator:
//   - Policy maps group memberships to permissions and capabilities. The
//     package level helpers (HasPermission, IsAdmin, CanAccessModel, ...)
//     evaluate against DefaultPolicy. Users that only belong to the default
//     team never pass a positive check.
//
// Activity sinks:
//   - ActivitySink receives one event per settle. Sinks run best-effort,
//     errors are logged and never change the session outcome.
package authclient
