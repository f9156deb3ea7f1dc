package guard

import (
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

func newCSRFContext(method, ip string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Method").Return(method)
	ctx.On("IP").Return(ip)
	ctx.On("Locals", DefaultCSRFLocalsKey, mock.Anything).Return(nil)
	ctx.On("Locals", DefaultCSRFLocalsKey+"_field", mock.Anything).Return(nil)
	return ctx
}

func csrfHandler(t *testing.T, now *time.Time, captured *error) router.HandlerFunc {
	t.Helper()
	return CSRF(CSRFConfig{
		Key: testCSRFKey,
		TTL: time.Hour,
		Now: func() time.Time { return *now },
		ErrorHandler: func(ctx router.Context, err error) error {
			*captured = err
			return err
		},
	})(func(ctx router.Context) error { return nil })
}

func issuedToken(t *testing.T, handler router.HandlerFunc, ip string) string {
	t.Helper()
	ctx := newCSRFContext("GET", ip)
	require.NoError(t, handler(ctx))
	token, ok := ctx.LocalsMock[DefaultCSRFLocalsKey].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	assert.Equal(t, DefaultCSRFField, ctx.LocalsMock[DefaultCSRFLocalsKey+"_field"])
	return token
}

func TestCSRFRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var captured error
	handler := csrfHandler(t, &now, &captured)

	token := issuedToken(t, handler, "10.0.0.1")

	post := newCSRFContext("POST", "10.0.0.1")
	post.On("FormValue", DefaultCSRFField).Return(token)
	require.NoError(t, handler(post))
	assert.NoError(t, captured)
	assert.True(t, post.NextCalled)
}

func TestCSRFRejections(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing", func(t *testing.T) {
		var captured error
		handler := csrfHandler(t, &now, &captured)

		post := newCSRFContext("POST", "10.0.0.1")
		post.On("FormValue", DefaultCSRFField).Return("")
		require.Error(t, handler(post))
		assert.ErrorIs(t, captured, ErrCSRFMissing)
	})

	t.Run("tampered", func(t *testing.T) {
		var captured error
		handler := csrfHandler(t, &now, &captured)

		post := newCSRFContext("POST", "10.0.0.1")
		post.On("FormValue", DefaultCSRFField).Return("not-a-token")
		require.Error(t, handler(post))
		assert.ErrorIs(t, captured, ErrCSRFMismatch)
	})

	t.Run("other client", func(t *testing.T) {
		var captured error
		handler := csrfHandler(t, &now, &captured)
		token := issuedToken(t, handler, "10.0.0.1")

		post := newCSRFContext("POST", "10.0.0.2")
		post.On("FormValue", DefaultCSRFField).Return(token)
		require.Error(t, handler(post))
		assert.ErrorIs(t, captured, ErrCSRFMismatch)
	})

	t.Run("expired", func(t *testing.T) {
		var captured error
		clock := now
		handler := csrfHandler(t, &clock, &captured)
		token := issuedToken(t, handler, "10.0.0.1")

		clock = clock.Add(2 * time.Hour)
		post := newCSRFContext("POST", "10.0.0.1")
		post.On("FormValue", DefaultCSRFField).Return(token)
		require.Error(t, handler(post))
		assert.ErrorIs(t, captured, ErrCSRFExpired)
	})
}

func TestCSRFBindsToSessionUser(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var captured error
	handler := csrfHandler(t, &now, &captured)

	get := newCSRFContext("GET", "10.0.0.1")
	get.LocalsMock[authclient.DefaultLocalsKey] = authed("beauty")
	require.NoError(t, handler(get))
	token := get.LocalsMock[DefaultCSRFLocalsKey].(string)

	// same user from a different address still validates
	post := newCSRFContext("POST", "10.9.9.9")
	post.LocalsMock[authclient.DefaultLocalsKey] = authed("beauty")
	post.On("FormValue", DefaultCSRFField).Return(token)
	require.NoError(t, handler(post))

	anon := newCSRFContext("POST", "10.0.0.1")
	anon.On("FormValue", DefaultCSRFField).Return(token)
	require.Error(t, handler(anon))
	assert.ErrorIs(t, captured, ErrCSRFMismatch)
}

func TestCSRFUsesSourceWithoutSnapshot(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	handler := CSRF(CSRFConfig{
		Key:    testCSRFKey,
		Source: staticSource{snap: authed("beauty")},
		Now:    func() time.Time { return now },
	})(func(ctx router.Context) error { return nil })

	get := newCSRFContext("GET", "10.0.0.1")
	require.NoError(t, handler(get))
	token := get.LocalsMock[DefaultCSRFLocalsKey].(string)

	post := newCSRFContext("POST", "10.9.9.9")
	post.On("FormValue", DefaultCSRFField).Return(token)
	require.NoError(t, handler(post))
}

func TestCSRFShortKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		CSRF(CSRFConfig{Key: []byte("short")})
	})
}
