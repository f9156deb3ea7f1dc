package social

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long a popup may take to come back.
const DefaultStateTTL = 10 * time.Minute

// StateManager seals and opens the OAuth state parameter.
type StateManager interface {
	Encode(state *OAuthState) (string, error)
	Decode(token string) (*OAuthState, error)
}

// OAuthState is the payload carried through the provider redirect.
type OAuthState struct {
	Nonce        string `json:"n"`
	Provider     string `json:"p"`
	RedirectURL  string `json:"r,omitempty"`
	CodeVerifier string `json:"cv,omitempty"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// SealedStateManager encrypts the state with AES-GCM and signs the
// ciphertext with HMAC-SHA256.
type SealedStateManager struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
	now           func() time.Time
}

// StateOption customizes a SealedStateManager.
type StateOption func(*SealedStateManager)

// WithStateClock injects the clock used for issue and expiry checks.
func WithStateClock(now func() time.Time) StateOption {
	return func(sm *SealedStateManager) {
		if now != nil {
			sm.now = now
		}
	}
}

// NewSealedStateManager returns a state manager. encryptionKey must be 16,
// 24 or 32 bytes. A zero ttl uses DefaultStateTTL.
func NewSealedStateManager(encryptionKey, hmacKey []byte, ttl time.Duration, opts ...StateOption) (*SealedStateManager, error) {
	if _, err := aes.NewCipher(encryptionKey); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid state encryption key")
	}
	if len(hmacKey) == 0 {
		return nil, goerrors.New("state hmac key is required", goerrors.CategoryBadInput)
	}
	if ttl == 0 {
		ttl = DefaultStateTTL
	}

	sm := &SealedStateManager{
		encryptionKey: encryptionKey,
		hmacKey:       hmacKey,
		ttl:           ttl,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}
	return sm, nil
}

// Encode fills in nonce and timestamps when missing, then seals state.
func (sm *SealedStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}

	now := sm.now()
	if state.IssuedAt == 0 {
		state.IssuedAt = now.Unix()
	}
	if state.ExpiresAt == 0 {
		state.ExpiresAt = now.Add(sm.ttl).Unix()
	}
	if state.Nonce == "" {
		state.Nonce = uuid.NewString()
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "marshal oauth state")
	}

	gcm, err := sm.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "generate state nonce")
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	sealed := append(sm.sign(ciphertext), ciphertext...)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode verifies the signature, decrypts and checks expiry.
func (sm *SealedStateManager) Decode(token string) (*OAuthState, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(data) < sha256.Size {
		return nil, ErrInvalidState
	}

	signature, ciphertext := data[:sha256.Size], data[sha256.Size:]
	if !hmac.Equal(signature, sm.sign(ciphertext)) {
		return nil, ErrInvalidState
	}

	gcm, err := sm.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidState
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidState
	}

	var state OAuthState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, ErrInvalidState
	}

	if sm.now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	return &state, nil
}

func (sm *SealedStateManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sm.encryptionKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create state cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create state gcm")
	}
	return gcm, nil
}

func (sm *SealedStateManager) sign(ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, sm.hmacKey)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

// GenerateCodeVerifier returns a random PKCE code verifier.
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CodeChallenge returns the S256 challenge for verifier.
func CodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
