package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverAcceptsTrustedOrigin(t *testing.T) {
	r := NewReceiver("https://app.example.com/")

	msg, err := r.Receive("https://app.example.com", []byte(`{"type":"NAVER_AUTH_SUCCESS","user":{"id":"n-1","email":"a@b.c","name":"A","profile_image":"x"}}`))
	require.NoError(t, err)
	assert.True(t, msg.IsSuccess())

	var user struct {
		ID           string `json:"id"`
		ProfileImage string `json:"profile_image"`
	}
	require.NoError(t, msg.DecodeUser(&user))
	assert.Equal(t, "n-1", user.ID)
	assert.Equal(t, "x", user.ProfileImage)
}

func TestReceiverRejectsBeforeDecoding(t *testing.T) {
	r := NewReceiver("https://app.example.com")

	_, err := r.Receive("https://evil.example.com", []byte(`not json at all`))
	assert.True(t, HasTextCode(err, TextCodeUntrustedOrigin))

	_, err = r.Receive("https://app.example.com.evil.com", []byte(`{"type":"NAVER_AUTH_SUCCESS"}`))
	assert.True(t, HasTextCode(err, TextCodeUntrustedOrigin))

	_, err = r.Receive("http://app.example.com", []byte(`{"type":"NAVER_AUTH_SUCCESS"}`))
	assert.True(t, HasTextCode(err, TextCodeUntrustedOrigin))
}

func TestReceiverRejectsUnknownMessages(t *testing.T) {
	r := NewReceiver("https://app.example.com").Expect("instagram", "naver")

	_, err := r.Receive("https://app.example.com", []byte(`{"type":"PING"}`))
	assert.True(t, HasTextCode(err, TextCodeUnknownMessage))

	_, err = r.Receive("https://app.example.com", []byte(`{"type":"GOOGLE_AUTH_SUCCESS"}`))
	assert.True(t, HasTextCode(err, TextCodeUnknownMessage))

	_, err = r.Receive("https://app.example.com", []byte(`{`))
	assert.True(t, HasTextCode(err, TextCodeUnknownMessage))

	msg, err := r.Receive("https://app.example.com", []byte(`{"type":"INSTAGRAM_AUTH_ERROR","error":"access_denied"}`))
	require.NoError(t, err)
	assert.Equal(t, "access_denied", msg.Error)
}
