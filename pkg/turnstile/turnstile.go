package turnstile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/httpclient"
	"github.com/jmiseikis/site-api/pkg/metrics"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const serviceName = "turnstile"

// ErrMissingSecret is returned without any outbound call when no secret is configured
var ErrMissingSecret = apperrors.NotConfiguredError("TURNSTILE_SECRET_KEY")

// Response represents the siteverify response body
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action"`
}

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
}

// Verifier checks Turnstile tokens against the siteverify API
type Verifier struct {
	secretKey  string
	verifyURL  string
	httpClient httpclient.Client
}

// NewVerifier creates a new Turnstile verifier. An empty verifyURL selects DefaultVerifyURL.
func NewVerifier(secretKey, verifyURL string, httpClient httpclient.Client) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Verifier{
		secretKey:  secretKey,
		verifyURL:  verifyURL,
		httpClient: httpClient,
	}
}

// Configured reports whether a secret is present
func (v *Verifier) Configured() bool {
	return strings.TrimSpace(v.secretKey) != ""
}

// Verify returns nil only when siteverify answered 2xx with success=true.
// Every other outcome, including a missing secret, is an error.
func (v *Verifier) Verify(ctx context.Context, token string) error {
	if !v.Configured() {
		return ErrMissingSecret
	}

	payload, err := json.Marshal(verifyRequest{Secret: v.secretKey, Response: token})
	if err != nil {
		return fmt.Errorf("failed to encode turnstile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := v.httpClient.Do(req)
	if err != nil {
		metrics.ObserveExternalCall(serviceName, "siteverify", "error", start)
		return fmt.Errorf("failed to verify turnstile token: %w", err)
	}
	defer httpclient.Drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveExternalCall(serviceName, "siteverify", "error", start)
		return fmt.Errorf("turnstile siteverify returned status %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.ObserveExternalCall(serviceName, "siteverify", "error", start)
		return fmt.Errorf("failed to decode turnstile response: %w", err)
	}

	if !result.Success {
		metrics.ObserveExternalCall(serviceName, "siteverify", "rejected", start)
		return fmt.Errorf("turnstile verification failed: %s", strings.Join(result.ErrorCodes, ","))
	}

	metrics.ObserveExternalCall(serviceName, "siteverify", "success", start)
	return nil
}
