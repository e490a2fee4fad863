// Package marketplace is the HTTP client for the marketplace product API.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/bulkimport/internal/auth"
	"github.com/JonMunkholm/bulkimport/internal/core"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// APIError is a non-2xx response from the marketplace.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace api error (status %d): %s", e.Status, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	BulkPath        string
	CurrentUserPath string

	// Token is sent when the request context carries no caller token.
	Token string

	// RequestTimeout bounds identity lookups. Bulk requests are bounded by
	// their context only.
	RequestTimeout time.Duration

	HTTPClient *http.Client
}

// Client talks to the marketplace API.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient creates a client. A nil HTTPClient uses a client without a
// global timeout.
func NewClient(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BulkPath == "" {
		opts.BulkPath = "/products/bulk-upload"
	}
	if opts.CurrentUserPath == "" {
		opts.CurrentUserPath = "/auth/me"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{opts: opts, http: hc}
}

type bulkRequest struct {
	Products []core.Product `json:"products"`
}

// BulkCreateProducts posts one batch of products.
func (c *Client) BulkCreateProducts(ctx context.Context, products []core.Product) (*core.BatchResponse, error) {
	body, err := json.Marshal(bulkRequest{Products: products})
	if err != nil {
		return nil, fmt.Errorf("encode products: %w", err)
	}

	var resp core.BatchResponse
	if err := c.do(ctx, http.MethodPost, c.opts.BulkPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser returns the seller the request token belongs to. The
// response may be the user object itself or wrapped as {"user": {...}}.
func (c *Client) CurrentUser(ctx context.Context) (auth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.opts.CurrentUserPath, nil, &raw); err != nil {
		return auth.User{}, err
	}

	var wrapped struct {
		User *remoteUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User.toUser(), nil
	}

	var flat remoteUser
	if err := json.Unmarshal(raw, &flat); err != nil {
		return auth.User{}, fmt.Errorf("decode current user: %w", err)
	}
	return flat.toUser(), nil
}

type remoteUser struct {
	ID      string `json:"id"`
	MongoID string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

func (r remoteUser) toUser() auth.User {
	id := r.ID
	if id == "" {
		id = r.MongoID
	}
	return auth.User{ID: id, Name: r.Name, Email: r.Email, Role: r.Role}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode marketplace response: %w", err)
	}
	return nil
}

// requestID reuses the inbound request ID so marketplace logs correlate
// with ours, generating one for calls made outside a request.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) token(ctx context.Context) string {
	if t := auth.TokenFromContext(ctx); t != "" {
		return t
	}
	return c.opts.Token
}

// decodeError builds an APIError from the response body, preferring the
// "error" field, then "message", then the status text.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
