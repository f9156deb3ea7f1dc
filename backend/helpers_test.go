package backend

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	token string
	found bool
}

func (m *memoryStore) Get(context.Context) (string, bool, error) { return m.token, m.found, nil }
func (m *memoryStore) Set(_ context.Context, token string) error {
	m.token, m.found = token, true
	return nil
}
func (m *memoryStore) Remove(context.Context) error {
	m.token, m.found = "", false
	return nil
}

func testToken(t *testing.T, exp int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}
