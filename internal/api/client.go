// Package api is the transport adapter for the analytics backend. Every
// failure is mapped onto the syncerr taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/syncerr"
)

// ErrUnauthorized is wrapped by the TransportError of a 401 response
var ErrUnauthorized = errors.New("unauthorized")

var validate = validator.New()

// Client calls the analytics backend
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient creates a client for cfg.BaseURL. tokens may be nil.
func NewClient(cfg *config.APIConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	resource    string
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, resource string, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query, resource: resource}, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, resource string, out any) error {
	req := request{method: http.MethodPost, path: path, resource: resource}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.body = bytes.NewReader(body)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	op := r.method + " " + r.path

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("failed to get bearer token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return syncerr.Canceled(op, err)
		}
		return &syncerr.TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return syncerr.Canceled(op, err)
		}
		return &syncerr.TransportError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
		c.logger.Warn("Backend rejected credentials", zap.String("op", op), zap.String("request_id", requestID))
		return &syncerr.TransportError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Err: ErrUnauthorized}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &syncerr.TransportError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Err: errorDetail(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &syncerr.DecodeError{Resource: r.resource, Err: err}
	}
	if err := validateShape(out); err != nil {
		return &syncerr.DecodeError{Resource: r.resource, Err: err}
	}

	c.logger.Debug("Backend request completed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)),
		zap.String("request_id", requestID))
	return nil
}

// errorDetail extracts the "detail" message of an error body
func errorDetail(body []byte) error {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		return fmt.Errorf("%v", payload.Detail)
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return errors.New(strings.TrimSpace(string(body)))
}

// validateShape checks struct tags of a decoded value or of each element of a
// decoded slice
func validateShape(out any) error {
	v := reflect.Indirect(reflect.ValueOf(out))
	switch v.Kind() {
	case reflect.Struct:
		return validate.Struct(v.Interface())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			elem := reflect.Indirect(v.Index(i))
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(elem.Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}
