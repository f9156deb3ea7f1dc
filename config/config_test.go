package config

import (
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"AUTHCLIENT_BACKEND_URL":    "https://api.example.com",
		"AUTHCLIENT_TRUSTED_ORIGIN": "https://app.example.com/",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, ":8572", cfg.Addr)
	assert.Equal(t, ":9572", cfg.MetricsAddr)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, StoreFile, cfg.TokenStore)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, []string{"/login", "/auth/social"}, cfg.PublicPrefixes)
	assert.Equal(t, "https://app.example.com", cfg.TrustedOrigin)
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.False(t, cfg.HasState())
	assert.False(t, cfg.Instagram.Enabled())
}

func TestLoadProviders(t *testing.T) {
	environ := baseEnv()
	environ["AUTHCLIENT_TOKEN_STORE"] = "Redis"
	environ["AUTHCLIENT_REDIS_ADDR"] = "localhost:6379"
	environ["AUTHCLIENT_STATE_KEY"] = strings.Repeat("k", 32)
	environ["AUTHCLIENT_STATE_HMAC_KEY"] = strings.Repeat("h", 32)
	environ["AUTHCLIENT_INSTAGRAM_CLIENT_ID"] = "ig-id"
	environ["AUTHCLIENT_INSTAGRAM_CLIENT_SECRET"] = "ig-secret"
	environ["AUTHCLIENT_NAVER_CLIENT_ID"] = "naver-id"
	environ["AUTHCLIENT_GENERIC_CLIENT_ID"] = "google-id"
	environ["AUTHCLIENT_GENERIC_NAME"] = "google"
	environ["AUTHCLIENT_GENERIC_AUTH_URL"] = "https://accounts.google.com/o/oauth2/v2/auth"
	environ["AUTHCLIENT_GENERIC_TOKEN_URL"] = "https://oauth2.googleapis.com/token"
	environ["AUTHCLIENT_GENERIC_PROFILE_URL"] = "https://openidconnect.googleapis.com/v1/userinfo"
	environ["AUTHCLIENT_GENERIC_SCOPES"] = "openid,email"

	cfg, err := LoadFrom(environ)
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.TokenStore)
	assert.True(t, cfg.HasState())
	assert.Equal(t, "ig-secret", cfg.Instagram.ClientSecret)
	assert.True(t, cfg.Naver.Enabled())
	assert.Equal(t, "google-id", cfg.Generic.ClientID)
	assert.Equal(t, []string{"openid", "email"}, cfg.Generic.Scopes)

	safe := cfg.Redacted()
	assert.Equal(t, redacted, safe.Instagram.ClientSecret)
	assert.Equal(t, redacted, safe.StateKey)
	assert.Equal(t, "ig-secret", cfg.Instagram.ClientSecret)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]string
		field string
	}{
		{"missing backend", map[string]string{"AUTHCLIENT_BACKEND_URL": ""}, "backend_url"},
		{"unknown store", map[string]string{"AUTHCLIENT_TOKEN_STORE": "cookie"}, "token_store"},
		{"redis without addr", map[string]string{"AUTHCLIENT_TOKEN_STORE": "redis"}, "redis_addr"},
		{"short state key", map[string]string{"AUTHCLIENT_STATE_KEY": "short", "AUTHCLIENT_STATE_HMAC_KEY": strings.Repeat("h", 32)}, "state_key"},
		{"state key without hmac", map[string]string{"AUTHCLIENT_STATE_KEY": strings.Repeat("k", 32)}, "state_hmac_key"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			environ := baseEnv()
			for k, v := range tc.patch {
				environ[k] = v
			}

			_, err := LoadFrom(environ)
			require.Error(t, err)

			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs, tc.field)
		})
	}
}

func TestNaverRequiresState(t *testing.T) {
	environ := baseEnv()
	environ["AUTHCLIENT_NAVER_CLIENT_ID"] = "naver-id"

	_, err := LoadFrom(environ)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATE_KEY")
}
