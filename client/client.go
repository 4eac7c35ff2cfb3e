// Package client is a thin typed wrapper around the HTTP API, used by the
// desktop frontend and the integration tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tripspend/trip_tracker/internal/dialog"
)

// APIError is any non-2xx response. The body is kept verbatim so the
// caller can show the server's message as is.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// Multipart marks a request body that is already encoded; it passes
// through untouched with its own content type.
type Multipart struct {
	ContentType string
	Body        io.Reader
}

type Client struct {
	baseURL string
	http    *http.Client

	// Dialogs holds which modal the frontend currently shows; at most one
	// is ever open.
	Dialogs *dialog.Store

	mu    sync.Mutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		Dialogs: dialog.NewStore(),
	}
}

// SetToken installs the bearer token sent with every following request.
// An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Request sends one API call. A nil body sends no payload, a *Multipart
// body passes through raw, anything else is JSON-encoded. The raw
// response body is returned for 2xx statuses; everything else becomes an
// *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	contentType := ""

	switch payload := body.(type) {
	case nil:
	case *Multipart:
		reader = payload.Body
		contentType = payload.ContentType
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}

// do runs Request and decodes the JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	respBody, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
