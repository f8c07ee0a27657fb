package resend

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

	"github.com/jmiseikis/site-api/pkg/circuitbreaker"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/httpclient"
	"github.com/jmiseikis/site-api/pkg/metrics"
)

// DefaultAPIURL is Resend's send-email endpoint
const DefaultAPIURL = "https://api.resend.com/emails"

const serviceName = "resend"

// maxErrorBody caps how much of a failed response is kept for logging
const maxErrorBody = 4 << 10

// ErrMissingAPIKey is returned without any outbound call when no key is configured
var ErrMissingAPIKey = apperrors.NotConfiguredError("RESEND_API_KEY")

// Email is the payload accepted by POST /emails
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendResponse is the body returned for an accepted email
type SendResponse struct {
	ID string `json:"id"`
}

// APIError carries a non-2xx answer from the provider. Body is for logs only.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resend returned status %d", e.StatusCode)
}

// Client sends transactional email through the Resend HTTP API
type Client struct {
	apiKey     string
	apiURL     string
	httpClient httpclient.Client
	breaker    *circuitbreaker.Breaker
}

// NewClient creates a Resend client. An empty apiURL selects DefaultAPIURL.
func NewClient(apiKey, apiURL string, httpClient httpclient.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		breaker:    circuitbreaker.New(serviceName, circuitbreaker.Options{Ignore: isRejection}),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// Send makes exactly one delivery attempt.
func (c *Client) Send(ctx context.Context, email *Email) (*SendResponse, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	return circuitbreaker.Call(c.breaker, func() (*SendResponse, error) {
		return c.send(ctx, email)
	})
}

// isRejection reports a 4xx answer: the provider is up but refused this email
func isRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func (c *Client) send(ctx context.Context, email *Email) (*SendResponse, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveExternalCall(serviceName, "send_email", "error", start)
		return nil, fmt.Errorf("failed to call resend: %w", err)
	}
	defer httpclient.Drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveExternalCall(serviceName, "send_email", "error", start)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// delivery was accepted; an unreadable body only loses the message id
		result = SendResponse{}
	}

	metrics.ObserveExternalCall(serviceName, "send_email", "success", start)
	return &result, nil
}
