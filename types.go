package authclient

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore persists the current opaque session token. Implementations
// overwrite on Set and never merge.
type TokenStore interface {
	// Get returns the stored token, found is false when nothing is stored.
	Get(ctx context.Context) (token string, found bool, err error)
	Set(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// Verifier is the backend collaborator that turns a token into an
// authoritative User. Errors should carry an HTTP-like status (see
// StatusFromError) so the controller can classify them.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*User, error)
	Logout(ctx context.Context, token string) error
}

// VerifierFuncs adapts plain functions into a Verifier.
type VerifierFuncs struct {
	VerifyFunc func(ctx context.Context, token string) (*User, error)
	LogoutFunc func(ctx context.Context, token string) error
}

// VerifyToken satisfies Verifier.
func (v VerifierFuncs) VerifyToken(ctx context.Context, token string) (*User, error) {
	if v.VerifyFunc == nil {
		return nil, ErrSoftAuth
	}
	return v.VerifyFunc(ctx, token)
}

// Logout satisfies Verifier.
func (v VerifierFuncs) Logout(ctx context.Context, token string) error {
	if v.LogoutFunc == nil {
		return nil
	}
	return v.LogoutFunc(ctx, token)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

// DefaultLogger returns the printf logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
