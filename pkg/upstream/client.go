package upstream

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
)

const defaultRequestTimeout = 30 * time.Second

// ClientConfig configures the HTTP client for the upstream service.
type ClientConfig struct {
	BaseURL string
	APIKey  string

	// RequestTimeout bounds each individual HTTP call. The overall
	// exchange is bounded separately by ExchangeOptions.MaxWait.
	RequestTimeout time.Duration

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the upstream conversational-AI service over its
// JSON HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an upstream HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing upstream base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// CreateSession opens a new conversation session for the given agent.
func (c *Client) CreateSession(ctx context.Context, agentRef string) (string, error) {
	var resp struct {
		SessionHandle string `json:"session_handle"`
	}
	body := map[string]string{"agent_ref": agentRef}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", body, &resp); err != nil {
		return "", fmt.Errorf("creating upstream session: %w", err)
	}
	if resp.SessionHandle == "" {
		return "", fmt.Errorf("upstream returned an empty session handle")
	}
	return resp.SessionHandle, nil
}

// SendMessage submits text on a session and returns a call ID.
func (c *Client) SendMessage(ctx context.Context, sessionHandle, text string) (string, error) {
	var resp struct {
		CallID string `json:"call_id"`
	}
	path := "/v1/sessions/" + url.PathEscape(sessionHandle) + "/messages"
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("sending upstream message: %w", err)
	}
	return resp.CallID, nil
}

// AwaitCompletion reports the current state of a call.
func (c *Client) AwaitCompletion(ctx context.Context, sessionHandle, callID string) (*Completion, error) {
	var resp struct {
		Status       string `json:"status"`
		Answer       string `json:"answer,omitempty"`
		InputTokens  int    `json:"input_tokens,omitempty"`
		OutputTokens int    `json:"output_tokens,omitempty"`
	}
	path := "/v1/sessions/" + url.PathEscape(sessionHandle) + "/calls/" + url.PathEscape(callID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("checking upstream completion: %w", err)
	}
	return &Completion{
		Status:       Status(resp.Status),
		Answer:       resp.Answer,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// DescribeSession returns diagnostic information about a session.
func (c *Client) DescribeSession(ctx context.Context, sessionHandle string) (*SessionInfo, error) {
	var resp struct {
		DisplayName  string   `json:"display_name"`
		Capabilities []string `json:"capabilities"`
	}
	path := "/v1/sessions/" + url.PathEscape(sessionHandle)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("describing upstream session: %w", err)
	}
	return &SessionInfo{DisplayName: resp.DisplayName, Capabilities: resp.Capabilities}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream responded %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ Service = (*Client)(nil)
