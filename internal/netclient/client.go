// Package netclient is the authenticated request primitive for the remote
// analysis backend. It attaches the bearer credential, refreshes an expired
// access token at most once per call, and classifies failures into a small
// error taxonomy.
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"calotrack/internal/shared/telemetry"
)

const refreshPath = "/auth/refresh"

// Client performs request/response cycles against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore
}

// New constructs a Client.
func New(baseURL string, timeout time.Duration, tokens *TokenStore) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// Tokens exposes the credential store backing this client.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// Do sends one request and decodes a 2xx response body into out (which may
// be nil). When requiresAuth is set and the response is unauthorized, it
// performs exactly one token refresh and retries the original request once;
// a second unauthorized response, or a missing refresh token, fails with
// ErrUnauthorized. There is no further retry loop.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, requiresAuth bool) error {
	status, data, err := c.send(ctx, method, path, body, requiresAuth)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && requiresAuth {
		if err := c.refreshOnce(ctx); err != nil {
			return err
		}
		status, data, err = c.send(ctx, method, path, body, requiresAuth)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
	}

	if status < 200 || status > 299 {
		return classifyStatus(status, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, attachAuth bool) (int, []byte, error) {
	endpoint, err := c.buildURL(path)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if attachAuth {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrInvalidResponse, err)
	}
	return resp.StatusCode, data, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// refreshOnce exchanges the refresh token for a new pair. Bounded to one
// attempt per Do call so a permanently invalid refresh token cannot recurse.
func (c *Client) refreshOnce(ctx context.Context) error {
	refresh := c.tokens.RefreshToken()
	if refresh == "" {
		return ErrUnauthorized
	}

	status, data, err := c.send(ctx, http.MethodPost, refreshPath, refreshRequest{RefreshToken: refresh}, false)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return ErrUnauthorized
	}

	var pair refreshResponse
	if err := json.Unmarshal(data, &pair); err != nil || pair.AccessToken == "" {
		return ErrUnauthorized
	}
	c.tokens.SetPair(ctx, pair.AccessToken, pair.RefreshToken, pair.UserID)
	telemetry.Info("netclient.token_refreshed", map[string]any{"user_id": pair.UserID})
	return nil
}

func (c *Client) buildURL(path string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: empty base url", ErrInvalidURL)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := c.baseURL + path
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return endpoint, nil
}

// errorBody matches both the backend's {"detail": "..."} shape and the
// nested {"error": {"message": "..."}} shape.
type errorBody struct {
	Detail string `json:"detail"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func classifyStatus(status int, data []byte) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	var parsed errorBody
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Detail != "" {
			return &ServerError{Status: status, Message: parsed.Detail}
		}
		if parsed.Error != nil && parsed.Error.Message != "" {
			return &ServerError{Status: status, Message: parsed.Error.Message}
		}
	}
	return &HTTPError{Status: status}
}
