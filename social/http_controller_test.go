package social

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPControllerBeginRedirects(t *testing.T) {
	sm, err := NewSealedStateManager(testEncKey, testHMACKey, 0)
	require.NoError(t, err)

	provider := newStub("naver")
	h := newTestHandshaker(t, WithProvider(provider), WithStateManager(sm))
	controller := NewHTTPController(h, HTTPConfig{TrustedOrigin: "https://app.example.com"})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "naver"
	ctx.QueriesM["redirect_url"] = "/after"
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	require.NoError(t, controller.Begin(ctx))
	assert.True(t, strings.HasPrefix(redirectURL, "https://idp.example.com/authorize?state="))

	st, err := sm.Decode(provider.lastState)
	require.NoError(t, err)
	assert.Equal(t, "/after", st.RedirectURL)
	assert.Equal(t, "naver", st.Provider)
}

func TestHTTPControllerBeginUnknownProvider(t *testing.T) {
	controller := NewHTTPController(newTestHandshaker(t), HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "nope"
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", http.StatusNotFound, mock.Anything).Return(nil)

	require.NoError(t, controller.Begin(ctx))
	ctx.AssertCalled(t, "JSON", http.StatusNotFound, mock.Anything)
}

func TestHTTPControllerCallbackRendersError(t *testing.T) {
	provider := newStub("instagram")
	h := newTestHandshaker(t, WithProvider(provider))
	controller := NewHTTPController(h, HTTPConfig{TrustedOrigin: "https://app.example.com"})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "instagram"
	ctx.QueriesM["error"] = "access_denied"
	ctx.QueriesM["error_reason"] = "user_denied"
	ctx.On("Context").Return(context.Background())

	var view router.ViewContext
	ctx.On("Render", DefaultPopupView, mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, controller.Callback(ctx))
	require.NotNil(t, view)

	assert.Equal(t, false, view["success"])
	assert.Equal(t, "INSTAGRAM_AUTH_ERROR", view["message_type"])
	assert.Equal(t, `"https://app.example.com"`, view["target_origin_json"])
	assert.Contains(t, view["message_json"], `"error":"access_denied"`)
	assert.Equal(t, string(PhaseFailure), view["phase"])
	assert.Zero(t, provider.exchangeCalls)
}

func TestHTTPControllerCallbackRendersSuccess(t *testing.T) {
	provider := newStub("acme")
	h := newTestHandshaker(t, WithProvider(provider))
	controller := NewHTTPController(h, HTTPConfig{TrustedOrigin: "https://app.example.com", PopupView: "popup"})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "acme"
	ctx.QueriesM["code"] = "auth-code"
	ctx.On("Context").Return(context.Background())

	var view router.ViewContext
	ctx.On("Render", "popup", mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, controller.Callback(ctx))
	assert.Equal(t, true, view["success"])
	assert.Equal(t, "ACME_AUTH_SUCCESS", view["message_type"])
	assert.Contains(t, view["message_json"], `"accessToken":"access-token"`)
	assert.Equal(t, "/auth/social/acme/callback", controller.CallbackPath("acme"))
}

func TestHTTPControllerListProviders(t *testing.T) {
	h := newTestHandshaker(t, WithProvider(newStub("naver")), WithProvider(newStub("instagram")))
	controller := NewHTTPController(h, HTTPConfig{})

	ctx := router.NewMockContext()
	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.ListProviders(ctx))
	assert.Equal(t, []string{"instagram", "naver"}, payload["providers"])
}

func TestHTTPControllerRedirectRoundTrip(t *testing.T) {
	sm, err := NewSealedStateManager(testEncKey, testHMACKey, 0)
	require.NoError(t, err)

	provider := newStub("naver")
	h := newTestHandshaker(t, WithProvider(provider), WithStateManager(sm))
	controller := NewHTTPController(h, HTTPConfig{TrustedOrigin: "https://app.example.com"})

	begin := func(redirect string) string {
		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "naver"
		ctx.QueriesM["redirect_url"] = redirect
		ctx.On("Context").Return(context.Background())
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Return(nil)
		require.NoError(t, controller.Begin(ctx))
		return provider.lastState
	}

	callback := func(state string) router.ViewContext {
		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "naver"
		ctx.QueriesM["code"] = "auth-code"
		ctx.QueriesM["state"] = state
		ctx.On("Context").Return(context.Background())

		var view router.ViewContext
		ctx.On("Render", DefaultPopupView, mock.Anything).Run(func(args mock.Arguments) {
			view = args.Get(1).(router.ViewContext)
		}).Return(nil)
		require.NoError(t, controller.Callback(ctx))
		return view
	}

	view := callback(begin("/models/beauty"))
	assert.Equal(t, true, view["success"])
	assert.Equal(t, "/models/beauty", view["redirect_url"])

	for _, offsite := range []string{"//evil.example", "/\\evil.example", "https://evil.example/"} {
		state := begin(offsite)
		st, err := sm.Decode(state)
		require.NoError(t, err)
		assert.Empty(t, st.RedirectURL, offsite)
		assert.Equal(t, "", callback(state)["redirect_url"], offsite)
	}
}
