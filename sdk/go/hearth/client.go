package hearth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

const defaultBaseURL = "http://127.0.0.1:8470"

// Client talks to a hearthd instance. Safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.baseURL, "/"),
		hc:      hc,
	}, nil
}

// CreateCapability submits a synthesis request. A compile failure comes
// back as a normal result with Success=false, not as an error.
func (c *Client) CreateCapability(ctx context.Context, spec model.CapabilitySpec) (*model.SynthesisResult, error) {
	var res model.SynthesisResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/forge/create", spec, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SafetyStatus returns the governor mode.
func (c *Client) SafetyStatus(ctx context.Context) (*SafetyStatus, error) {
	var st SafetyStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/forge/safety-status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetSafety toggles autonomous mode. Enabling requires a warrant id.
func (c *Client) SetSafety(ctx context.Context, enabled bool, warrantID string) (*SafetyStatus, error) {
	req := map[string]any{"enabled": enabled, "warrant": warrantID}
	var st SafetyStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/forge/safety", req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// KillSwitch forces HITL mode and terminates in-flight compilations.
func (c *Client) KillSwitch(ctx context.Context) (*SafetyStatus, error) {
	var st SafetyStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/forge/kill-switch", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Capabilities lists every registered capability with its tier.
func (c *Client) Capabilities(ctx context.Context) ([]model.CapabilityDescriptor, error) {
	var out struct {
		Capabilities []model.CapabilityDescriptor `json:"capabilities"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/capabilities", nil, &out); err != nil {
		return nil, err
	}
	return out.Capabilities, nil
}

// Promote raises a generated capability to core tier. Permanent.
func (c *Client) Promote(ctx context.Context, name, warrantID string) (*model.CapabilityDescriptor, error) {
	req := map[string]string{"name": name, "warrant": warrantID}
	var desc model.CapabilityDescriptor
	if err := c.do(ctx, http.MethodPost, "/api/v1/capabilities/promote", req, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Invoke dispatches one capability call.
func (c *Client) Invoke(ctx context.Context, name string, payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	var out struct {
		Result any `json:"result"`
	}
	path := fmt.Sprintf("/api/v1/capabilities/%s/invoke", name)
	if err := c.do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Approvals lists pending and resolved synthesis requests.
func (c *Client) Approvals(ctx context.Context) ([]Approval, error) {
	var out struct {
		Approvals []Approval `json:"approvals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/approvals", nil, &out); err != nil {
		return nil, err
	}
	return out.Approvals, nil
}

// Approve authorizes a pending request. ttl zero means one-shot with no
// deadline.
func (c *Client) Approve(ctx context.Context, key string, ttl time.Duration) error {
	req := map[string]any{"key": key, "ttl_seconds": int(ttl.Seconds())}
	return c.do(ctx, http.MethodPost, "/api/v1/approvals/approve", req, nil)
}

// Deny refuses a pending request.
func (c *Client) Deny(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/approvals/deny", map[string]string{"key": key}, nil)
}

// IssueWarrant creates a single-use admin token. Reason is mandatory.
func (c *Client) IssueWarrant(ctx context.Context, reason string, duration time.Duration) (*Warrant, error) {
	req := map[string]any{"reason": reason, "duration_seconds": int(duration.Seconds())}
	var w Warrant
	if err := c.do(ctx, http.MethodPost, "/api/v1/warrants", req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ReloadStatus returns the hot-reload watcher state.
func (c *Client) ReloadStatus(ctx context.Context) (*ReloadStatus, error) {
	var st ReloadStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/forge/hot-reload/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetReload enables or disables event-driven reloading.
func (c *Client) SetReload(ctx context.Context, enabled bool) (*ReloadStatus, error) {
	path := "/api/v1/forge/hot-reload/disable"
	if enabled {
		path = "/api/v1/forge/hot-reload/enable"
	}
	var st ReloadStatus
	if err := c.do(ctx, http.MethodPost, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// TriggerReload forces an immediate registry rebuild.
func (c *Client) TriggerReload(ctx context.Context) (int, error) {
	var out struct {
		Reloaded int `json:"reloaded"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/forge/hot-reload/trigger", nil, &out); err != nil {
		return 0, err
	}
	return out.Reloaded, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("hearth: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("hearth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("hearth: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hearth: decode response: %w", err)
	}
	return nil
}
