package webdriver

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

	"github.com/nao1215/a11yscan/internal/model"
)

// Client speaks the W3C WebDriver protocol to a single driver endpoint.
// One Client serves one engine; sessions created through it share the
// endpoint and the HTTP transport.
//
// Design decision: We don't contact the driver in the constructor because:
// 1. It allows creating the client even when the driver isn't running yet
// 2. It separates object creation from network operations
// 3. It allows for better testing with httptest servers
type Client struct {
	// endpoint is the driver base URL without a trailing slash,
	// e.g. "http://127.0.0.1:9515".
	endpoint string

	// engine is the rendering engine this endpoint drives.
	engine model.EngineKind

	// httpClient executes protocol requests. Driver commands are local
	// and quick; the timeout mainly guards against a wedged driver.
	httpClient *http.Client
}

// NewClient creates a client for the given driver endpoint.
// The endpoint must be an absolute http or https URL. The timeout applies
// to every protocol request issued through this client.
func NewClient(engine model.EngineKind, endpoint string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		engine:   engine,
		httpClient: &http.Client{
			Timeout: timeout,
			// Drivers are single local processes; a small idle pool is
			// enough and keeps file descriptors in check.
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}, nil
}

// Engine returns the rendering engine this client drives.
func (c *Client) Engine() model.EngineKind {
	return c.engine
}

// Endpoint returns the configured driver base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// statusValue is the payload of the GET /status response.
type statusValue struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Status checks whether the driver is running and accepting sessions.
// It returns nil when the driver reports ready, ErrNotReady when the
// driver answered but refuses new sessions, and a transport error when
// the endpoint is unreachable.
func (c *Client) Status(ctx context.Context) error {
	var value statusValue
	if err := c.do(ctx, http.MethodGet, "/status", nil, &value); err != nil {
		return err
	}
	if !value.Ready {
		if value.Message != "" {
			return fmt.Errorf("%w: %s", ErrNotReady, value.Message)
		}
		return ErrNotReady
	}
	return nil
}

// newSessionValue is the payload of the POST /session response.
type newSessionValue struct {
	SessionID string `json:"sessionId"`
}

// NewSession starts a browser session and returns its handle.
// The session runs headless where the engine supports it.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": capabilitiesFor(c.engine),
		},
	}

	var value newSessionValue
	if err := c.do(ctx, http.MethodPost, "/session", body, &value); err != nil {
		return nil, fmt.Errorf("failed to create %s session: %w", c.engine, err)
	}
	if value.SessionID == "" {
		return nil, fmt.Errorf("driver returned an empty session ID for %s", c.engine)
	}

	return &Session{client: c, id: value.SessionID}, nil
}

// capabilitiesFor builds the W3C alwaysMatch capabilities for an engine.
// Chromium-family engines and Firefox run headless so scan machines need
// no display server. Safari has no headless mode; safaridriver opens a
// window.
func capabilitiesFor(engine model.EngineKind) map[string]any {
	switch engine {
	case model.EngineChrome:
		return map[string]any{
			"browserName": "chrome",
			"goog:chromeOptions": map[string]any{
				"args": []string{"--headless=new", "--disable-gpu"},
			},
		}
	case model.EngineFirefox:
		return map[string]any{
			"browserName": "firefox",
			"moz:firefoxOptions": map[string]any{
				"args": []string{"-headless"},
			},
		}
	case model.EngineEdge:
		return map[string]any{
			"browserName": "MicrosoftEdge",
			"ms:edgeOptions": map[string]any{
				"args": []string{"--headless=new", "--disable-gpu"},
			},
		}
	case model.EngineSafari:
		return map[string]any{
			"browserName": "safari",
		}
	default:
		return map[string]any{
			"browserName": string(engine),
		}
	}
}

// responseEnvelope is the W3C response wrapper. Every response carries its
// payload under "value"; errors carry an error object there instead.
type responseEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// errorValue is the W3C error payload decoded from failed responses.
type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do executes one protocol command and decodes the response value into out.
// Pass a nil body for commands without parameters and a nil out to discard
// the response value.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode webdriver request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build webdriver request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close on read path

	// Most protocol responses are tiny, but page source replies can run
	// to megabytes. 16MB bounds a misbehaving driver without truncating
	// real documents.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return fmt.Errorf("failed to read webdriver response: %w", err)
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode webdriver response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ev errorValue
		// The error payload is best effort; some drivers return plain
		// text on crashes.
		_ = json.Unmarshal(envelope.Value, &ev) //nolint:errcheck
		if ev.Error == "" {
			ev.Error = "unknown error"
		}
		return &Error{Code: ev.Error, Message: ev.Message, HTTPStatus: resp.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Value, out); err != nil {
			return fmt.Errorf("failed to decode webdriver value: %w", err)
		}
	}

	return nil
}
