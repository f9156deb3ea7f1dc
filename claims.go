package authclient

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded in a session token.
type Claims struct {
	jwt.RegisteredClaims
	UID         string   `json:"uid,omitempty"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	Permissions []string `json:"perms,omitempty"` // resource:action
}

// UserID returns the uid claim falling back to sub.
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiry claim and whether it was present.
func (c *Claims) Expires() (time.Time, bool) {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.RegisteredClaims.ExpiresAt.Time, true
}

// IssuedAt returns the issued at claim or the zero time.
func (c *Claims) IssuedAt() time.Time {
	if c == nil || c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// Decode parses the token claims without verifying the signature and
// without touching the network. Signature checks belong to the backend.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, wrapWith(ErrMalformedToken, nil, map[string]any{"reason": "empty token"})
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, wrapWith(ErrMalformedToken, err, map[string]any{"reason": err.Error()})
	}

	return claims, nil
}

// IsExpired reports whether token must be treated as expired at now. Tokens
// that cannot be decoded or carry no expiry claim are expired.
func IsExpired(token string, now time.Time) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}

	exp, ok := claims.Expires()
	if !ok {
		return true
	}

	return !now.Before(exp)
}
