// Package api is the JSON client for the MaherKar backend endpoints used by
// the session: OTP login and registration, token refresh and identity.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

// Client talks to the backend. The zero value is not usable; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	localizer  Localizer
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLocalizer(l Localizer) ClientOption {
	return func(c *Client) {
		c.localizer = l
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: timeout}
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		localizer:  NewLocalizer(LocaleFa),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the environment configuration.
func NewClientFromConfig(cfg config.EnvConfig) *Client {
	return NewClient(cfg.GetAPIBaseURL(),
		WithTimeout(cfg.GetRequestTimeout()),
		WithLocalizer(NewLocalizer(cfg.GetLocale())),
	)
}

// HTTPClient returns the underlying http client, for wrapping.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// With returns a copy of c with options applied, typically to swap in an
// authenticating http client.
func (c *Client) With(options ...ClientOption) *Client {
	clone := *c
	for _, opt := range options {
		opt(&clone)
	}
	return &clone
}

func (c *Client) Localizer() Localizer {
	return c.localizer
}

type response struct {
	status  int
	payload []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) send(ctx context.Context, method, path string, in any, decorate func(*http.Request)) (response, error) {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return response{}, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if decorate != nil {
		decorate(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, c.transportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response{}, c.transportError(err)
	}
	return response{status: resp.StatusCode, payload: payload}, nil
}
