package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
)

func TestUserClone(t *testing.T) {
	u := &authclient.User{
		ID:          "u1",
		Groups:      []authclient.Group{{Name: "beauty", Members: []string{"u1"}}},
		Permissions: []authclient.Permission{{Resource: "models", Action: "read"}},
		Business:    &authclient.BusinessVerification{AccountType: "BUSINESS", Recommendations: []string{"a"}},
		Extensions:  map[string]any{"k": "v"},
	}

	c := u.Clone()
	assert.Equal(t, u, c)

	c.Groups[0].Name = "fashion"
	c.Groups[0].Members[0] = "other"
	c.Permissions[0].Action = "delete"
	c.Business.Recommendations[0] = "b"
	c.Extensions["k"] = "changed"

	assert.Equal(t, "beauty", u.Groups[0].Name)
	assert.Equal(t, "u1", u.Groups[0].Members[0])
	assert.Equal(t, "read", u.Permissions[0].Action)
	assert.Equal(t, "a", u.Business.Recommendations[0])
	assert.Equal(t, "v", u.Extensions["k"])

	var nilUser *authclient.User
	assert.Nil(t, nilUser.Clone())
	assert.Nil(t, nilUser.GroupNames())
	assert.Equal(t, []string{"beauty"}, u.GroupNames())
}

func TestSnapshotString(t *testing.T) {
	snap := authclient.Snapshot{State: authclient.StateAuthenticated, User: &authclient.User{ID: "u1"}, Token: "t", IsAuthenticated: true}
	assert.Equal(t, "state=authenticated user=u1 authenticated=true loading=false token=true", snap.String())
}
