package httpclient

import (
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultTimeout bounds every outbound call made through NewStandardClient.
const DefaultTimeout = 15 * time.Second

// UserAgent is sent on every outbound call unless the request sets its own
const UserAgent = "site-api/1.0 (+https://jmiseikis.com)"

// maxDrain caps how much of an unread body is discarded before closing
const maxDrain = 64 << 10

// Client is the part of *http.Client the provider packages use.
// Tests substitute their own implementation.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewStandardClient creates a client with DefaultTimeout
func NewStandardClient() Client {
	return NewClientWithTimeout(DefaultTimeout)
}

// NewClientWithTimeout creates a client whose calls give up after timeout
func NewClientWithTimeout(timeout time.Duration) Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &transport{base: http.DefaultTransport},
	}
}

// transport stamps outbound requests with the user agent and the caller's trace context
type transport struct {
	base http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", UserAgent)
	}
	otel.GetTextMapPropagator().Inject(out.Context(), propagation.HeaderCarrier(out.Header))
	return t.base.RoundTrip(out)
}

// Drain reads what is left of body (capped) and closes it so the connection can be reused
func Drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	_ = body.Close()
}
