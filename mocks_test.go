package authclient_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyToken(ctx context.Context, token string) (*authclient.User, error) {
	args := m.Called(ctx, token)
	var user *authclient.User
	if v := args.Get(0); v != nil {
		user = v.(*authclient.User)
	}
	return user, args.Error(1)
}

func (m *MockVerifier) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// memStore is a minimal TokenStore that records how often it was touched.
type memStore struct {
	mu      sync.Mutex
	token   string
	found   bool
	gets    int
	sets    int
	removes int
	getErr  error
	setErr  error
}

func (s *memStore) Get(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.token, s.found, nil
}

func (s *memStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.token, s.found = token, true
	return nil
}

func (s *memStore) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	s.token, s.found = "", false
	return nil
}

func (s *memStore) stored() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.found
}

type statusErr struct {
	status int
}

func (e statusErr) Error() string   { return "backend status" }
func (e statusErr) StatusCode() int { return e.status }

var errNetwork = errors.New("dial tcp: connection refused")

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func signToken(exp *time.Time, groups ...string) string {
	claims := authclient.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "user-1",
			IssuedAt: jwt.NewNumericDate(testNow.Add(-time.Hour)),
		},
		Email:  "user@example.com",
		Groups: groups,
	}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func validToken() string {
	exp := testNow.Add(time.Hour)
	return signToken(&exp, "beauty")
}

func expiredToken() string {
	exp := testNow.Add(-time.Minute)
	return signToken(&exp)
}

func beautyUser() *authclient.User {
	return &authclient.User{
		ID:     "user-1",
		Email:  "user@example.com",
		Groups: []authclient.Group{{Name: "beauty"}},
	}
}
