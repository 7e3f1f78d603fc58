// Package nlu is the client for the external natural-language-understanding
// backend. The wire format is the Rasa REST webhook: one JSON envelope in,
// an array of reply fragments out. What the backend does with the message is
// entirely its business — this package only relays.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable wraps every transport failure and non-2xx response from the
// backend. The orchestrator maps it to an upstream error; it is never
// retried internally.
var ErrUnavailable = errors.New("nlu backend unavailable")

// Fragment is one unit of reply from the backend. Text may be absent — a
// fragment can carry only images, buttons or custom payloads, none of which
// this relay understands.
type Fragment struct {
	Text       string   `json:"text,omitempty"`
	Intent     *string  `json:"intent,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// envelope is the request body for the backend's webhook endpoint.
type envelope struct {
	Sender   string   `json:"sender"`
	Message  string   `json:"message"`
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	TenantID string `json:"tenant_id"`
}

// Client talks to one NLU backend over HTTP. The timeout is mandatory: the
// backend call is the one network wait in the whole exchange, and an
// unbounded one would pile up workers under load.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send relays one user message and returns the backend's reply fragments in
// the order received. The caller decides which fragments are worth keeping.
func (c *Client) Send(ctx context.Context, sender, message, tenantID string) ([]Fragment, error) {
	body, err := json.Marshal(envelope{
		Sender:   sender,
		Message:  message,
		Metadata: metadata{TenantID: tenantID},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal nlu request: %w", err)
	}

	url := c.baseURL + "/webhooks/rest/webhook"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build nlu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body content is
		// the backend's problem, not ours.
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var fragments []Fragment
	if err := json.NewDecoder(resp.Body).Decode(&fragments); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return fragments, nil
}

// Status probes the backend's status endpoint. It reports reachability only;
// the health handler degrades a flag on false, never the whole response.
func (c *Client) Status(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
