package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-withdrawal-engine/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.OracleConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, zerolog.Nop())
}

func TestClient_Quote_Success(t *testing.T) {
	var gotReq quoteRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(quoteResponse{
			Rate: decimal.NewFromFloat(1.5),
			Fee:  decimal.NewFromFloat(0.25),
		})
	})

	assetID := uuid.New()
	quote, err := client.Quote(context.Background(), assetID, decimal.NewFromInt(100), "USD")
	require.NoError(t, err)

	assert.True(t, quote.Rate.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, quote.Fee.Equal(decimal.NewFromFloat(0.25)))
	assert.Equal(t, assetID, gotReq.AssetID)
	assert.Equal(t, "USD", gotReq.Currency)
}

func TestClient_Quote_RetriesServerError(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(quoteResponse{
			Rate: decimal.NewFromInt(2),
			Fee:  decimal.Zero,
		})
	})

	quote, err := client.Quote(context.Background(), uuid.New(), decimal.NewFromInt(50), "EUR")
	require.NoError(t, err)
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 2, calls)
}

func TestClient_Quote_NoRetryOnClientError(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Quote(context.Background(), uuid.New(), decimal.NewFromInt(50), "EUR")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx answers should not retry")
}

func TestClient_Quote_RejectsNonPositiveRate(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(quoteResponse{
			Rate: decimal.Zero,
			Fee:  decimal.NewFromFloat(0.25),
		})
	})

	_, err := client.Quote(context.Background(), uuid.New(), decimal.NewFromInt(100), "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive rate")
	assert.Equal(t, 1, calls, "a malformed quote is not a transient failure")
}

func TestClient_Quote_RejectsNegativeFee(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(quoteResponse{
			Rate: decimal.NewFromInt(2),
			Fee:  decimal.NewFromInt(-1),
		})
	})

	_, err := client.Quote(context.Background(), uuid.New(), decimal.NewFromInt(100), "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative fee")
}

func TestClient_Quote_ExhaustsRetries(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Quote(context.Background(), uuid.New(), decimal.NewFromInt(50), "USD")
	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}
