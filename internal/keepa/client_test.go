package keepa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/asinwatch-project/backend/internal/apperrors"
	"github.com/asinwatch-project/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Keepa.APIKey = "test-key"
	cfg.Keepa.APIURL = srv.URL
	cfg.Keepa.Domain = 1

	return NewClient(cfg, rate.NewLimiter(rate.Inf, 1))
}

func writeJSON(w http.ResponseWriter, status int, payload ProductResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestFetchProductSuccess(t *testing.T) {
	var gotQuery atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, ProductResponse{
			TokensLeft: 50,
			Products: []RawProduct{{
				ASIN:       "B09DT48V16",
				Title:      "Wireless Earbuds",
				CSV:        [][]int64{{100, 1999}},
				LastUpdate: 100,
			}},
		})
	})

	snap, err := client.FetchProduct(context.Background(), "B09DT48V16")
	require.NoError(t, err)
	assert.Equal(t, "B09DT48V16", snap.ASIN)
	require.NotNil(t, snap.Price)
	assert.Equal(t, 19.99, *snap.Price)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "test-key", q.Get("key"))
	assert.Equal(t, "1", q.Get("domain"))
	assert.Equal(t, "B09DT48V16", q.Get("asin"))
	assert.Equal(t, "1", q.Get("stats"))
	assert.Equal(t, "1", q.Get("buybox"))
}

func TestFetchProductNotFound(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, ProductResponse{TokensLeft: 50})
	})

	_, err := client.FetchProduct(context.Background(), "B000000404")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "NotFound must not be retried")
}

func TestFetchProductRateLimitedThenSuccess(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, ProductResponse{TokensLeft: 0, RefillIn: 10})
			return
		}
		writeJSON(w, http.StatusOK, ProductResponse{
			TokensLeft: 50,
			Products:   []RawProduct{{ASIN: "B09DT48V16"}},
		})
	})

	snap, err := client.FetchProduct(context.Background(), "B09DT48V16")
	require.NoError(t, err)
	assert.Equal(t, "B09DT48V16", snap.ASIN)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchProductTokenExhaustionOn200(t *testing.T) {
	// Keepa answers 200 with an empty product list when the bucket is empty.
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, ProductResponse{TokensLeft: 0, RefillIn: 5})
	})

	_, err := client.FetchProduct(context.Background(), "B09DT48V16")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "rate limiting is retried up to the attempt bound")
}

func TestFetchProductTransientRetriesExhausted(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchProduct(context.Background(), "B09DT48V16")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchProductMalformedResponse(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products": [{"title": "no asin here"}], "tokensLeft": 50}`))
	})

	_, err := client.FetchProduct(context.Background(), "B09DT48V16")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformedResponse, apperrors.KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "malformed payloads must not be retried")
}

func TestFetchProductHTTP404(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchProduct(context.Background(), "B000000404")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestFetchProductCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ProductResponse{TokensLeft: 50, Products: []RawProduct{{ASIN: "B09DT48V16"}}})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchProduct(ctx, "B09DT48V16")
	require.Error(t, err)
}
