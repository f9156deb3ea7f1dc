package authclient

import "sort"

// Capability is a role derived boolean a group can carry.
type Capability string

const (
	CapabilityCreateModel   Capability = "create_model"
	CapabilityCreatePost    Capability = "create_post"
	CapabilityManageContent Capability = "manage_content"
)

const (
	// DefaultAdminGroup is the distinguished administrator group.
	DefaultAdminGroup = "admin"
	// DefaultTeamGroup is the implicit team of users without elevated access.
	DefaultTeamGroup = "default"
	// Wildcard matches any resource or action in a GroupRule.
	Wildcard = "*"
)

// GroupRule describes what a group is allowed to do.
type GroupRule struct {
	Capabilities []Capability
	// Grants maps a resource (or Wildcard) to allowed actions (or Wildcard).
	Grants map[string][]string
}

// Policy holds the static group rules used by the evaluator.
type Policy struct {
	AdminGroup   string
	DefaultGroup string
	Rules        map[string]GroupRule
}

// DefaultPolicy is used by the package level evaluator functions.
var DefaultPolicy = NewPolicy(DefaultAdminGroup, DefaultTeamGroup, nil)

// NewPolicy builds a policy. The admin group always receives every
// capability and a wildcard grant, the default group never receives any.
func NewPolicy(adminGroup, defaultGroup string, rules map[string]GroupRule) *Policy {
	if adminGroup == "" {
		adminGroup = DefaultAdminGroup
	}
	if defaultGroup == "" {
		defaultGroup = DefaultTeamGroup
	}

	p := &Policy{
		AdminGroup:   adminGroup,
		DefaultGroup: defaultGroup,
		Rules:        make(map[string]GroupRule, len(rules)+1),
	}
	for name, rule := range rules {
		if name == defaultGroup {
			continue
		}
		p.Rules[name] = rule
	}
	p.Rules[adminGroup] = GroupRule{
		Capabilities: []Capability{CapabilityCreateModel, CapabilityCreatePost, CapabilityManageContent},
		Grants:       map[string][]string{Wildcard: {Wildcard}},
	}
	return p
}

// HasPermission is true iff any of the user's groups grants action on resource.
func (p *Policy) HasPermission(u *User, resource, action string) bool {
	if u == nil || p.IsDefaultTeam(u) {
		return false
	}
	for _, g := range u.Groups {
		if p.isDefaultGroup(g) {
			continue
		}
		if rule, ok := p.Rules[g.Name]; ok && rule.grants(resource, action) {
			return true
		}
	}
	return false
}

// HasGroup is an exact name membership test. Default team users never pass
// it, not even for the default group itself.
func (p *Policy) HasGroup(u *User, name string) bool {
	if u == nil || p.IsDefaultTeam(u) {
		return false
	}
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// HasAnyGroup is true if the user belongs to at least one of names.
func (p *Policy) HasAnyGroup(u *User, names ...string) bool {
	for _, name := range names {
		if p.HasGroup(u, name) {
			return true
		}
	}
	return false
}

// IsAdmin is true iff the user belongs to the administrator group.
func (p *Policy) IsAdmin(u *User) bool {
	return p.HasGroup(u, p.AdminGroup)
}

// CanAccessModel applies the content authorization rule: public when
// allowedGroups is empty, otherwise admin or a shared group is required.
func (p *Policy) CanAccessModel(u *User, allowedGroups []string) bool {
	if len(allowedGroups) == 0 {
		return true
	}
	if u == nil || p.IsDefaultTeam(u) {
		return false
	}
	if p.IsAdmin(u) {
		return true
	}
	return p.HasAnyGroup(u, allowedGroups...)
}

// IsDefaultTeam is true when every membership of the user is the default
// team. A user without memberships is treated the same way.
func (p *Policy) IsDefaultTeam(u *User) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		if !p.isDefaultGroup(g) {
			return false
		}
	}
	return true
}

// RequiresPermissionRequest drives the "request access" state.
func (p *Policy) RequiresPermissionRequest(u *User) bool {
	return p.IsDefaultTeam(u)
}

// CanCreateModel reports the create_model capability.
func (p *Policy) CanCreateModel(u *User) bool {
	return p.hasCapability(u, CapabilityCreateModel)
}

// CanCreatePost reports the create_post capability.
func (p *Policy) CanCreatePost(u *User) bool {
	return p.hasCapability(u, CapabilityCreatePost)
}

// CanManageContent reports the manage_content capability.
func (p *Policy) CanManageContent(u *User) bool {
	return p.hasCapability(u, CapabilityManageContent)
}

// Resolve returns the union of concrete permissions granted by the user's
// groups, sorted for stable output. Wildcard grants are kept as "*".
func (p *Policy) Resolve(u *User) []Permission {
	if u == nil || p.IsDefaultTeam(u) {
		return nil
	}

	seen := map[Permission]struct{}{}
	for _, g := range u.Groups {
		if p.isDefaultGroup(g) {
			continue
		}
		rule, ok := p.Rules[g.Name]
		if !ok {
			continue
		}
		for resource, actions := range rule.Grants {
			for _, action := range actions {
				seen[Permission{Resource: resource, Action: action}] = struct{}{}
			}
		}
	}

	out := make([]Permission, 0, len(seen))
	for perm := range seen {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource == out[j].Resource {
			return out[i].Action < out[j].Action
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}

func (p *Policy) hasCapability(u *User, capability Capability) bool {
	if u == nil || p.IsDefaultTeam(u) {
		return false
	}
	if p.IsAdmin(u) {
		return true
	}
	for _, g := range u.Groups {
		if p.isDefaultGroup(g) {
			continue
		}
		rule, ok := p.Rules[g.Name]
		if !ok {
			continue
		}
		for _, c := range rule.Capabilities {
			if c == capability {
				return true
			}
		}
	}
	return false
}

func (p *Policy) isDefaultGroup(g Group) bool {
	return g.IsDefault || g.Name == p.DefaultGroup
}

func (r GroupRule) grants(resource, action string) bool {
	for _, key := range []string{resource, Wildcard} {
		actions, ok := r.Grants[key]
		if !ok {
			continue
		}
		for _, a := range actions {
			if a == action || a == Wildcard {
				return true
			}
		}
	}
	return false
}

// HasPermission evaluates against DefaultPolicy.
func HasPermission(u *User, resource, action string) bool {
	return DefaultPolicy.HasPermission(u, resource, action)
}

// HasGroup evaluates against DefaultPolicy.
func HasGroup(u *User, name string) bool {
	return DefaultPolicy.HasGroup(u, name)
}

// HasAnyGroup evaluates against DefaultPolicy.
func HasAnyGroup(u *User, names ...string) bool {
	return DefaultPolicy.HasAnyGroup(u, names...)
}

// IsAdmin evaluates against DefaultPolicy.
func IsAdmin(u *User) bool {
	return DefaultPolicy.IsAdmin(u)
}

// CanAccessModel evaluates against DefaultPolicy.
func CanAccessModel(u *User, allowedGroups []string) bool {
	return DefaultPolicy.CanAccessModel(u, allowedGroups)
}

// IsDefaultTeam evaluates against DefaultPolicy.
func IsDefaultTeam(u *User) bool {
	return DefaultPolicy.IsDefaultTeam(u)
}

// RequiresPermissionRequest evaluates against DefaultPolicy.
func RequiresPermissionRequest(u *User) bool {
	return DefaultPolicy.RequiresPermissionRequest(u)
}

// CanCreateModel evaluates against DefaultPolicy.
func CanCreateModel(u *User) bool {
	return DefaultPolicy.CanCreateModel(u)
}

// CanCreatePost evaluates against DefaultPolicy.
func CanCreatePost(u *User) bool {
	return DefaultPolicy.CanCreatePost(u)
}

// CanManageContent evaluates against DefaultPolicy.
func CanManageContent(u *User) bool {
	return DefaultPolicy.CanManageContent(u)
}
