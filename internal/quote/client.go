package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	DefaultCallsPerWindow = 5
	DefaultWindow         = 60 * time.Second
)

var (
	ErrQuotaExceeded     = errors.New("quote: provider quota exceeded")
	ErrMalformedResponse = errors.New("quote: malformed response")
	ErrUnavailable       = errors.New("quote: unavailable")
)

// Client fetches latest trade prices from Alpha Vantage.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// globalQuoteResponse is the GLOBAL_QUOTE payload. Throttled responses carry
// Note or Information instead of the quote.
type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
}

// Price returns the latest trade price for symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrMalformedResponse)
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read quote %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch quote %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out globalQuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Note != "" || out.Information != "" {
		return 0, ErrQuotaExceeded
	}

	raw, ok := out.GlobalQuote["05. price"]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: no price for %s", ErrMalformedResponse, symbol)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, fmt.Errorf("%w: bad price %q for %s", ErrMalformedResponse, raw, symbol)
	}
	return price, nil
}
