// Package client is the Go SDK for the World Connector backend. It carries a
// session token across HTTP calls and opens websocket subscriptions that
// deliver full-state snapshots.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"worldconnector/internal/domain"
)

// Config controls how the client reaches the backend.
type Config struct {
	// ServerURL is the backend base URL, e.g. http://localhost:8080.
	ServerURL string

	// HTTPClient is used for REST calls. A default with a sane timeout is
	// installed when nil.
	HTTPClient *http.Client

	// OnSignedOut is invoked whenever the backend rejects the session token.
	// The client drops its token first, so calls made from the callback see
	// the signed-out state.
	OnSignedOut func()
}

// DefaultConfig returns a config pointed at a local backend.
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
	}
}

// Client talks to one backend on behalf of one identity.
type Client struct {
	serverURL   string
	httpc       *http.Client
	onSignedOut func()

	mu        sync.RWMutex
	identity  string
	token     string
	namespace string
}

// New creates a client. No session exists until one of the sign-in calls
// succeeds.
func New(cfg Config) *Client {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		serverURL:   cfg.ServerURL,
		httpc:       httpc,
		onSignedOut: cfg.OnSignedOut,
	}
}

// authPayload mirrors the backend's auth responses.
type authPayload struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Namespace string    `json:"namespace"`
}

// SignInAnonymous establishes a fresh anonymous session and returns its
// identity.
func (c *Client) SignInAnonymous(ctx context.Context) (string, error) {
	var payload authPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/anonymous", nil, &payload); err != nil {
		return "", fmt.Errorf("anonymous sign-in: %w", err)
	}
	c.storeSession(payload)
	return payload.Identity, nil
}

// ExchangeToken trades a bootstrap credential for a session and returns the
// identity the credential named.
func (c *Client) ExchangeToken(ctx context.Context, credential string) (string, error) {
	body := map[string]string{"credential": credential}

	var payload authPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/exchange", body, &payload); err != nil {
		return "", fmt.Errorf("exchange credential: %w", err)
	}
	c.storeSession(payload)
	return payload.Identity, nil
}

func (c *Client) storeSession(payload authPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = payload.Identity
	c.token = payload.Token
	c.namespace = payload.Namespace
}

// Identity returns the signed-in identity, or "" before sign-in.
func (c *Client) Identity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Client) session() (token, identity, namespace string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.identity, c.namespace
}

// handleSignedOut drops the session and fires the callback.
func (c *Client) handleSignedOut() {
	c.mu.Lock()
	c.identity = ""
	c.token = ""
	c.mu.Unlock()

	if c.onSignedOut != nil {
		c.onSignedOut()
	}
}

// APIError is a non-2xx backend response. Known codes unwrap to the domain
// sentinels so callers can use errors.Is.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "signed_out":
		return domain.ErrSignedOut
	case "no_profile":
		return domain.ErrNoProfile
	}
	return nil
}

// doJSON runs one REST call: bearer token attached when present, request and
// response bodies as JSON.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, _, _ := c.session(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "unknown"}
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			apiErr.Code = errBody.Error
		}
		if resp.StatusCode == http.StatusUnauthorized {
			apiErr.Code = "signed_out"
			c.handleSignedOut()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
