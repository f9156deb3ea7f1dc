package guard

import "strings"

// Routes classifies navigation paths. Anything that does not match a public
// prefix is protected.
type Routes struct {
	Public []string
}

// NewRoutes builds a route table from public path prefixes. Blank entries
// are ignored.
func NewRoutes(prefixes ...string) Routes {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return Routes{Public: out}
}

// With returns a copy of r extended with more public prefixes.
func (r Routes) With(prefixes ...string) Routes {
	return NewRoutes(append(append([]string(nil), r.Public...), prefixes...)...)
}

// IsPublic reports whether path starts with one of the public prefixes.
func (r Routes) IsPublic(path string) bool {
	for _, prefix := range r.Public {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
