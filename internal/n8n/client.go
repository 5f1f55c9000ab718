// Package n8n connects the dashboard to n8n workflow automation in both directions.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"restaurant-ops/internal/config"
)

var (
	ErrUnknownWorkflow = errors.New("n8n: unknown workflow")
	ErrNotConfigured   = errors.New("n8n: base url not configured")
)

// maxResponseBytes caps how much of a workflow response is kept.
const maxResponseBytes = 1 << 20

// Result is the workflow's HTTP answer.
type Result struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Client triggers workflows through their n8n webhook trigger nodes.
type Client struct {
	baseURL   string
	workflows map[string]string
	http      *http.Client
}

func NewClient(cfg config.N8NConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		workflows: cfg.Workflows,
		http:      &http.Client{Timeout: timeout},
	}
}

// Workflows lists the configured workflow names in order.
func (c *Client) Workflows() []string {
	out := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Client) Has(name string) bool {
	_, ok := c.workflows[name]
	return ok
}

// Trigger posts payload as JSON to the workflow's webhook. Non-2xx answers are errors.
func (c *Client) Trigger(ctx context.Context, name string, payload any) (Result, error) {
	path, ok := c.workflows[name]
	if !ok {
		return Result{}, ErrUnknownWorkflow
	}
	if c.baseURL == "" {
		return Result{}, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("n8n: encode payload: %w", err)
	}
	url := c.baseURL + "/webhook/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("n8n: trigger %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("n8n: read response: %w", err)
	}
	res := Result{Status: resp.StatusCode}
	if json.Valid(raw) {
		res.Body = raw
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("n8n: trigger %s: status %d", name, resp.StatusCode)
	}
	return res, nil
}
