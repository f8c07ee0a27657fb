package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/jmiseikis/site-api/pkg/circuitbreaker"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/httpclient"
	"github.com/jmiseikis/site-api/pkg/metrics"
)

// DefaultBaseURL is the public Google Sheets host
const DefaultBaseURL = "https://docs.google.com"

const serviceName = "google_sheets"

// maxFeedSize caps the feed body; the directories are a few hundred rows at most
const maxFeedSize = 8 << 20

var responseWrapper = regexp.MustCompile(`google\.visualization\.Query\.setResponse\(([\s\S]*)\);?\s*$`)

type gvizResponse struct {
	Status string `json:"status"`
	Table  struct {
		Rows []struct {
			C []*gvizCell `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

type gvizCell struct {
	V any `json:"v"`
}

// Client reads published spreadsheets through the gviz JSON endpoint
type Client struct {
	baseURL    string
	httpClient httpclient.Client
	breaker    *circuitbreaker.Breaker
}

// NewClient creates a sheets client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, httpClient httpclient.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    circuitbreaker.New(serviceName, circuitbreaker.Options{}),
	}
}

// FetchRows returns every row of the sheet as strings, header rows included.
func (c *Client) FetchRows(ctx context.Context, sheetID string) ([][]string, error) {
	if sheetID == "" {
		return nil, apperrors.NotConfiguredError("sheet id")
	}

	return circuitbreaker.Call(c.breaker, func() ([][]string, error) {
		return c.fetch(ctx, sheetID)
	})
}

func (c *Client) fetch(ctx context.Context, sheetID string) ([][]string, error) {
	feedURL := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:json", c.baseURL, url.PathEscape(sheetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheets request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveExternalCall(serviceName, "fetch_rows", "error", start)
		return nil, apperrors.UpstreamError(serviceName, err)
	}
	defer httpclient.Drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveExternalCall(serviceName, "fetch_rows", "error", start)
		return nil, apperrors.UpstreamError(serviceName, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		metrics.ObserveExternalCall(serviceName, "fetch_rows", "error", start)
		return nil, apperrors.UpstreamError(serviceName, err)
	}

	rows, err := ParseResponse(body)
	if err != nil {
		metrics.ObserveExternalCall(serviceName, "fetch_rows", "error", start)
		return nil, apperrors.UpstreamError(serviceName, err)
	}

	metrics.ObserveExternalCall(serviceName, "fetch_rows", "success", start)
	return rows, nil
}

// ParseResponse unwraps the setResponse(...) envelope and flattens cells to strings
func ParseResponse(body []byte) ([][]string, error) {
	match := responseWrapper.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("failed to parse Google Sheets response")
	}

	var parsed gvizResponse
	if err := json.Unmarshal(match[1], &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Google Sheets table: %w", err)
	}
	if parsed.Status == "error" {
		return nil, fmt.Errorf("google sheets query returned an error status")
	}

	rows := make([][]string, 0, len(parsed.Table.Rows))
	for _, row := range parsed.Table.Rows {
		cells := make([]string, len(row.C))
		for i, cell := range row.C {
			if cell != nil {
				cells[i] = cellString(cell.V)
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
