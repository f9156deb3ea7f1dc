package authclient

import (
	"net/url"
	"strings"
)

// IsLocalRedirect reports whether target is a path on this site. Scheme or
// host relative forms such as "//host" and "/\host" are rejected since
// browsers resolve them off-site.
func IsLocalRedirect(target string) bool {
	if target == "" || target[0] != '/' {
		return false
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	if strings.Contains(target, "\\") {
		return false
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}
