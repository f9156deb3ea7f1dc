package authclient_test

import (
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	token := signToken(nil, "beauty", "fashion")

	claims, err := authclient.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, []string{"beauty", "fashion"}, claims.Groups)
	assert.Equal(t, testNow.Add(-time.Hour), claims.IssuedAt().UTC())

	_, ok := claims.Expires()
	assert.False(t, ok)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "blank", token: "   "},
		{name: "not a jwt", token: "opaque-token"},
		{name: "bad segments", token: "a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := authclient.Decode(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, authclient.IsMalformedTokenError(err))
		})
	}
}

func TestIsExpired(t *testing.T) {
	past := testNow.Add(-time.Second)
	future := testNow.Add(time.Minute)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "expiry in the past", token: signToken(&past), want: true},
		{name: "expiry equal to now", token: signToken(&testNow), want: true},
		{name: "expiry in the future", token: signToken(&future), want: false},
		{name: "missing expiry", token: signToken(nil), want: true},
		{name: "malformed", token: "garbage", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authclient.IsExpired(tt.token, testNow))
		})
	}
}

func TestIsExpiredUsesInjectedClock(t *testing.T) {
	exp := testNow.Add(time.Minute)
	token := signToken(&exp)

	assert.False(t, authclient.IsExpired(token, testNow))
	assert.True(t, authclient.IsExpired(token, testNow.Add(2*time.Minute)))
}
