// Package cloud talks to the control plane: it drives asynchronous instance
// operations to completion and aggregates the live status of every instance.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"evalgo.org/portico/internal/config"
	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/internal/version"
	"evalgo.org/portico/models"
)

// Client is an authenticated accessor for the control plane API. One client
// is built per command invocation and passed to every component that needs it.
type Client struct {
	baseURL     *url.URL
	cloudDomain string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
	keySource   func() (string, error)

	mu        sync.RWMutex
	secretKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// WithKeySource replaces where the secret key is read from on construction
// and on Reinit.
func WithKeySource(fn func() (string, error)) Option {
	return func(c *Client) { c.keySource = fn }
}

// NewClient creates a client for the configured API URL and loads the secret key.
func NewClient(cfg config.CloudConfig, opts ...Option) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("cloud api_url is required")
	}
	base, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cloud api_url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	limit := rate.Inf
	if cfg.RequestRate > 0 {
		limit = rate.Limit(cfg.RequestRate)
	}

	c := &Client{
		baseURL:     base,
		cloudDomain: strings.TrimPrefix(base.Hostname(), "api."),
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter:     rate.NewLimiter(limit, 1),
		logger:      zap.NewNop(),
		keySource:   cfg.ReadSecretKey,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Reinit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reinit reloads the secret key, typically after a login.
func (c *Client) Reinit() error {
	key, err := c.keySource()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.secretKey = strings.TrimSpace(key)
	c.mu.Unlock()
	return nil
}

// SecretKey returns the current secret key.
func (c *Client) SecretKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secretKey
}

// EnsureAuthenticated checks that a secret key is present and, when it is a
// JWT, that it has not expired. The signature is not verified here; the
// control plane does that on every request.
func (c *Client) EnsureAuthenticated() error {
	key := c.SecretKey()
	if key == "" {
		return ErrNotAuthenticated
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		// Opaque keys are accepted as-is.
		return nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: secret key expired at %s", ErrNotAuthenticated, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// CloudHost routes an instance name to its connection host.
func (c *Client) CloudHost(org, name string) string {
	return fmt.Sprintf("%s--%s.%s", name, org, c.cloudDomain)
}

// Get fetches path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body to path and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete deletes path and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid API path %q: %w", path, err)
	}
	target := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.Get().UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := c.SecretKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("cloud api request",
		zap.String("method", method),
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrNotAuthenticated, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *models.APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &models.APIError{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
		apiErr.Details = strings.TrimSpace(string(data))
	}
	apiErr.Code = resp.StatusCode
	return apiErr
}

// IsNotFound reports whether err is a control plane 404.
func IsNotFound(err error) bool {
	var apiErr *models.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
