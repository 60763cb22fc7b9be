package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func TestClientPrice_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{"Global Quote": {"01. symbol": "AAPL", "05. price": "189.2500"}}`))
	})

	price, err := client.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.25, price)
}

func TestClientPrice_Quota(t *testing.T) {
	for _, body := range []string{
		`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`,
		`{"Information": "The standard API rate limit is 25 requests per day."}`,
	} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := client.Price(context.Background(), "NVDA")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	}
}

func TestClientPrice_Malformed(t *testing.T) {
	cases := map[string]string{
		"missing price": `{"Global Quote": {}}`,
		"bad number":    `{"Global Quote": {"05. price": "n/a"}}`,
		"not json":      `<html>oops</html>`,
		"infinite":      `{"Global Quote": {"05. price": "Inf"}}`,
		"nan":           `{"Global Quote": {"05. price": "NaN"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := client.Price(context.Background(), "NOC")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestClientPrice_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Price(context.Background(), "JNJ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
