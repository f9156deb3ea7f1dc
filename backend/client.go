// Package backend is the HTTP implementation of the verification
// collaborator consumed by the session controller.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

const (
	DefaultVerifyPath = "/auth/verify"
	DefaultLogoutPath = "/auth/logout"
	DefaultTimeout    = 10 * time.Second

	maxErrorBody = 4 << 10
)

// StatusError is returned for non-2xx backend responses. The controller
// reads Status through StatusCode to classify the failure.
type StatusError struct {
	Operation string
	Status    int
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s failed: %d %s", e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s failed: %d", e.Operation, e.Status)
}

// StatusCode implements authclient.StatusCoder.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Config configures the HTTP verifier.
type Config struct {
	BaseURL    string
	VerifyPath string
	LogoutPath string
	Timeout    time.Duration

	// RequestsPerSecond throttles outgoing calls, zero disables the limiter.
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
	Logger     authclient.Logger
}

// Client calls the backend verify and logout endpoints.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     authclient.Logger
}

var _ authclient.Verifier = (*Client)(nil)

// New creates a backend client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VerifyPath == "" {
		cfg.VerifyPath = DefaultVerifyPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = DefaultLogoutPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = authclient.DefaultLogger()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		limiter:    limiter,
		logger:     logger,
	}
}

type verifyResponse struct {
	User *authclient.User `json:"user"`
}

// VerifyToken implements authclient.Verifier.
func (c *Client) VerifyToken(ctx context.Context, token string) (*authclient.User, error) {
	body, err := c.do(ctx, "verify", http.MethodGet, c.config.VerifyPath, token)
	if err != nil {
		return nil, err
	}

	var envelope verifyResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode verify response")
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var user authclient.User
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return nil, goerrors.New("verify response carried no user", goerrors.CategoryOperation)
	}
	return &user, nil
}

// Logout implements authclient.Verifier.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, "logout", http.MethodPost, c.config.LogoutPath, token)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path, token string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "backend "+op+" throttled")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build backend request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "backend "+op+" request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug("backend %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read backend response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Operation: op,
			Status:    resp.StatusCode,
			Message:   errorMessage(body),
		}
	}

	return body, nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorMessage(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
