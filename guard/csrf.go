package guard

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	DefaultCSRFField     = "_token"
	DefaultCSRFLocalsKey = "csrf_token"
	DefaultCSRFTTL       = 2 * time.Hour

	minCSRFKeyLen = 32
	csrfNonceLen  = 16
)

var (
	ErrCSRFMissing = goerrors.New("csrf token missing", goerrors.CategoryBadInput).
			WithTextCode("CSRF_MISSING").
			WithCode(router.StatusBadRequest)

	ErrCSRFMismatch = goerrors.New("csrf token mismatch", goerrors.CategoryAuthz).
			WithTextCode("CSRF_MISMATCH").
			WithCode(router.StatusForbidden)

	ErrCSRFExpired = goerrors.New("csrf token expired", goerrors.CategoryAuthz).
			WithTextCode("CSRF_EXPIRED").
			WithCode(router.StatusForbidden)
)

// CSRFConfig configures the form token middleware that protects the login
// and logout forms. Tokens are stateless: an HMAC over issue time, a nonce
// and the requester binding.
type CSRFConfig struct {
	// Key signs tokens and must be at least 32 bytes. A random key is
	// generated when empty, which invalidates tokens on restart.
	Key []byte

	FieldName string
	LocalsKey string
	// Source binds tokens to the session user when the route guard has not
	// stored a snapshot yet.
	Source authclient.SnapshotSource
	// SnapshotKey is where the route guard stored the session snapshot.
	SnapshotKey string
	TTL         time.Duration

	ErrorHandler router.ErrorHandler
	Now          func() time.Time
}

func csrfConfigDefault(config ...CSRFConfig) CSRFConfig {
	var cfg CSRFConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.FieldName == "" {
		cfg.FieldName = DefaultCSRFField
	}
	if cfg.LocalsKey == "" {
		cfg.LocalsKey = DefaultCSRFLocalsKey
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = authclient.DefaultLocalsKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCSRFTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultCSRFErrorHandler
	}

	switch {
	case len(cfg.Key) == 0:
		cfg.Key = make([]byte, minCSRFKeyLen)
		if _, err := io.ReadFull(rand.Reader, cfg.Key); err != nil {
			panic(fmt.Errorf("AUTHCLIENT: csrf: unable to generate key: %w", err))
		}
	case len(cfg.Key) < minCSRFKeyLen:
		panic(fmt.Errorf("AUTHCLIENT: csrf: key must be at least %d bytes, got %d", minCSRFKeyLen, len(cfg.Key)))
	}

	return cfg
}

// CSRF issues a token on every request under LocalsKey and validates the
// form field on unsafe methods.
func CSRF(config ...CSRFConfig) router.MiddlewareFunc {
	cfg := csrfConfigDefault(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			binding := cfg.binding(ctx)

			token, err := cfg.issue(binding)
			if err != nil {
				return cfg.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "issue csrf token"))
			}
			ctx.Locals(cfg.LocalsKey, token)
			ctx.Locals(cfg.LocalsKey+"_field", cfg.FieldName)

			if isSafeMethod(ctx.Method()) {
				return ctx.Next()
			}

			if err := cfg.validate(ctx.FormValue(cfg.FieldName), binding); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			return ctx.Next()
		}
	}
}

func (cfg CSRFConfig) issue(binding string) (string, error) {
	nonce := make([]byte, csrfNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := strconv.FormatInt(cfg.Now().UTC().Unix(), 10) + "." + hex.EncodeToString(nonce)
	sig := cfg.sign(payload, binding)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "." + hex.EncodeToString(sig))), nil
}

func (cfg CSRFConfig) validate(token, binding string) error {
	if token == "" {
		return ErrCSRFMissing
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrCSRFMismatch
	}

	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return ErrCSRFMismatch
	}

	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrCSRFMismatch
	}

	sig, err := hex.DecodeString(parts[2])
	if err != nil {
		return ErrCSRFMismatch
	}
	if !hmac.Equal(sig, cfg.sign(parts[0]+"."+parts[1], binding)) {
		return ErrCSRFMismatch
	}

	if cfg.Now().UTC().After(time.Unix(issued, 0).Add(cfg.TTL)) {
		return ErrCSRFExpired
	}
	return nil
}

func (cfg CSRFConfig) sign(payload, binding string) []byte {
	mac := hmac.New(sha256.New, cfg.Key)
	mac.Write([]byte(payload))
	mac.Write([]byte{0})
	mac.Write([]byte(binding))
	return mac.Sum(nil)
}

// binding ties a token to the session user, or to the client address
// before login.
func (cfg CSRFConfig) binding(ctx router.Context) string {
	snap, ok := authclient.GetRouterSnapshot(ctx, cfg.SnapshotKey)
	if !ok && cfg.Source != nil {
		snap = cfg.Source.Snapshot()
	}
	if snap.User != nil && snap.User.ID != "" {
		return "user:" + snap.User.ID
	}
	return "ip:" + ctx.IP()
}

func isSafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS", "TRACE":
		return true
	}
	return false
}

func defaultCSRFErrorHandler(ctx router.Context, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return ctx.Status(rich.Code).SendString(rich.Message)
	}
	return ctx.Status(router.StatusInternalServerError).SendString("csrf validation error")
}
