package social

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManager_EncryptDecrypt(t *testing.T) {
	sm, err := NewSealedStateManager(testEncKey, testHMACKey, 10*time.Minute)
	require.NoError(t, err)

	state := &OAuthState{
		Provider:     "naver",
		RedirectURL:  "/dashboard",
		CodeVerifier: "test-verifier",
	}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "dashboard")

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, state.Provider, decoded.Provider)
	assert.Equal(t, state.RedirectURL, decoded.RedirectURL)
	assert.Equal(t, state.CodeVerifier, decoded.CodeVerifier)
	assert.NotEmpty(t, decoded.Nonce)
}

func TestStateManager_ExpiredState(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	sm, err := NewSealedStateManager(testEncKey, testHMACKey, 0, WithStateClock(clock.Now))
	require.NoError(t, err)

	encoded, err := sm.Encode(&OAuthState{Provider: "naver"})
	require.NoError(t, err)

	clock.Advance(DefaultStateTTL - time.Second)
	_, err = sm.Decode(encoded)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManager_Tampered(t *testing.T) {
	sm, err := NewSealedStateManager(testEncKey, testHMACKey, 0)
	require.NoError(t, err)

	encoded, err := sm.Encode(&OAuthState{Provider: "naver"})
	require.NoError(t, err)

	flipped := []byte(encoded)
	mid := len(flipped) / 2
	if flipped[mid] == 'A' {
		flipped[mid] = 'B'
	} else {
		flipped[mid] = 'A'
	}

	_, err = sm.Decode(string(flipped))
	assert.ErrorIs(t, err, ErrInvalidState)

	other, err := NewSealedStateManager(testEncKey, []byte(strings.Repeat("x", 32)), 0)
	require.NoError(t, err)
	_, err = other.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = sm.Decode("%%%")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_RejectsBadKeys(t *testing.T) {
	_, err := NewSealedStateManager([]byte("short"), testHMACKey, 0)
	assert.Error(t, err)

	_, err = NewSealedStateManager(testEncKey, nil, 0)
	assert.Error(t, err)
}

func TestCodeChallenge(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, verifier, 43)

	// RFC 7636 appendix B
	assert.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallenge("dBjftJeZ4CVP-mB92K9uhvuoawsPMOK9jcqKirM0Xf8"),
	)
}
