package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
)

func userWithGroups(names ...string) *authclient.User {
	u := &authclient.User{ID: "u"}
	for _, n := range names {
		u.Groups = append(u.Groups, authclient.Group{Name: n})
	}
	return u
}

func testPolicy() *authclient.Policy {
	return authclient.NewPolicy("admin", "default", map[string]authclient.GroupRule{
		"beauty": {
			Capabilities: []authclient.Capability{authclient.CapabilityCreatePost},
			Grants:       map[string][]string{"models": {"read"}, "posts": {"read", "create"}},
		},
		"fashion": {
			Capabilities: []authclient.Capability{authclient.CapabilityCreateModel},
			Grants:       map[string][]string{"models": {authclient.Wildcard}},
		},
		"default": {
			Capabilities: []authclient.Capability{authclient.CapabilityManageContent},
			Grants:       map[string][]string{authclient.Wildcard: {authclient.Wildcard}},
		},
	})
}

func TestCanAccessModel(t *testing.T) {
	beauty := userWithGroups("beauty")

	assert.False(t, authclient.CanAccessModel(beauty, []string{"fashion"}))
	assert.True(t, authclient.CanAccessModel(beauty, []string{"beauty", "fashion"}))

	for _, u := range []*authclient.User{nil, beauty, userWithGroups("default"), userWithGroups()} {
		assert.True(t, authclient.CanAccessModel(u, nil))
		assert.True(t, authclient.CanAccessModel(u, []string{}))
	}

	assert.True(t, authclient.CanAccessModel(userWithGroups("admin"), []string{"fashion"}))
	assert.True(t, authclient.CanAccessModel(userWithGroups("fashion"), []string{"fashion"}))
	assert.False(t, authclient.CanAccessModel(nil, []string{"fashion"}))
	assert.False(t, authclient.CanAccessModel(userWithGroups("default"), []string{"default"}))
}

func TestHasPermission(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name     string
		user     *authclient.User
		resource string
		action   string
		want     bool
	}{
		{name: "absent user", user: nil, resource: "models", action: "read"},
		{name: "granted action", user: userWithGroups("beauty"), resource: "posts", action: "create", want: true},
		{name: "missing action", user: userWithGroups("beauty"), resource: "models", action: "delete"},
		{name: "wildcard action", user: userWithGroups("fashion"), resource: "models", action: "delete", want: true},
		{name: "union of groups", user: userWithGroups("beauty", "fashion"), resource: "models", action: "delete", want: true},
		{name: "admin wildcard", user: userWithGroups("admin"), resource: "anything", action: "delete", want: true},
		{name: "default team never granted", user: userWithGroups("default"), resource: "models", action: "read"},
		{name: "unknown group", user: userWithGroups("marketing"), resource: "models", action: "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.HasPermission(tt.user, tt.resource, tt.action))
		})
	}
}

func TestGroupHelpers(t *testing.T) {
	u := userWithGroups("beauty", "admin")

	assert.True(t, authclient.HasGroup(u, "beauty"))
	assert.False(t, authclient.HasGroup(u, "Beauty"))
	assert.False(t, authclient.HasGroup(nil, "beauty"))
	assert.True(t, authclient.HasAnyGroup(u, "fashion", "beauty"))
	assert.False(t, authclient.HasAnyGroup(u))
	assert.False(t, authclient.HasAnyGroup(nil, "beauty"))
	assert.True(t, authclient.IsAdmin(u))
	assert.False(t, authclient.IsAdmin(userWithGroups("beauty")))
	assert.False(t, authclient.IsAdmin(nil))
}

func TestGroupHelpersRejectDefaultTeam(t *testing.T) {
	u := userWithGroups("default")

	assert.False(t, authclient.HasGroup(u, "default"))
	assert.False(t, authclient.HasAnyGroup(u, "default", "beauty"))
	assert.False(t, authclient.CanAccessModel(u, []string{"default"}))

	// a real membership next to the default team still counts
	mixed := userWithGroups("default", "beauty")
	assert.True(t, authclient.HasGroup(mixed, "beauty"))
	assert.True(t, authclient.HasAnyGroup(mixed, "beauty"))
}

func TestDefaultTeam(t *testing.T) {
	tests := []struct {
		name string
		user *authclient.User
		want bool
	}{
		{name: "absent user", user: nil},
		{name: "only default", user: userWithGroups("default"), want: true},
		{name: "no memberships", user: userWithGroups(), want: true},
		{
			name: "flagged default group",
			user: &authclient.User{Groups: []authclient.Group{{Name: "newcomers", IsDefault: true}}},
			want: true,
		},
		{name: "default plus team", user: userWithGroups("default", "beauty")},
		{name: "regular team", user: userWithGroups("beauty")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authclient.IsDefaultTeam(tt.user))
			if tt.want {
				assert.True(t, authclient.RequiresPermissionRequest(tt.user))
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	p := testPolicy()

	admin := userWithGroups("admin")
	assert.True(t, p.CanCreateModel(admin))
	assert.True(t, p.CanCreatePost(admin))
	assert.True(t, p.CanManageContent(admin))

	beauty := userWithGroups("beauty")
	assert.False(t, p.CanCreateModel(beauty))
	assert.True(t, p.CanCreatePost(beauty))
	assert.False(t, p.CanManageContent(beauty))

	both := userWithGroups("beauty", "fashion")
	assert.True(t, p.CanCreateModel(both))
	assert.True(t, p.CanCreatePost(both))

	// rules registered for the default group are ignored
	def := userWithGroups("default")
	assert.False(t, p.CanManageContent(def))
	assert.False(t, p.CanCreatePost(def))
	assert.False(t, p.CanCreateModel(nil))
}

func TestPolicyResolve(t *testing.T) {
	p := testPolicy()

	assert.Nil(t, p.Resolve(nil))
	assert.Nil(t, p.Resolve(userWithGroups("default")))

	got := p.Resolve(userWithGroups("beauty", "fashion"))
	assert.Equal(t, []authclient.Permission{
		{Resource: "models", Action: "*"},
		{Resource: "models", Action: "read"},
		{Resource: "posts", Action: "create"},
		{Resource: "posts", Action: "read"},
	}, got)

	assert.Equal(t, "posts:create", got[2].String())
}
