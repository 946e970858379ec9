/**
 * @description
 * HTTP Client for the Keepa product API.
 * Fetches one ASIN at a time and normalizes the payload into a Snapshot.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - golang.org/x/time/rate: shared request budget across all sync workers
 * - backend/internal/apperrors
 *
 * @notes
 * - The limiter is injected, never a package singleton, so the coordinator can
 *   share one budget across workers and tests can substitute a generous one.
 * - 429 / token exhaustion honors Keepa's refillIn hint before retrying.
 */

package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/asinwatch-project/backend/internal/apperrors"
	"github.com/asinwatch-project/backend/internal/config"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxAttempts bounds retries for RateLimited/Transient failures
	maxAttempts = 3
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	apiKey  string
	domain  int
	limiter *rate.Limiter
}

// NewClient builds a Keepa client sharing the given request-rate budget
func NewClient(cfg *config.Config, limiter *rate.Limiter) *Client {
	return &Client{
		BaseURL: cfg.Keepa.APIURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		apiKey:  cfg.Keepa.APIKey,
		domain:  cfg.Keepa.Domain,
		limiter: limiter,
	}
}

// FetchProduct retrieves and normalizes the current snapshot for one ASIN.
// NotFound and MalformedResponse surface immediately; RateLimited and
// Transient failures are retried with backoff up to maxAttempts.
func (c *Client) FetchProduct(ctx context.Context, asin string) (*Snapshot, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, apperrors.Wrap(apperrors.KindTransient, err)
			}
		}

		snap, retryIn, err := c.fetchOnce(ctx, asin)
		if err == nil {
			return snap, nil
		}

		kind := apperrors.KindOf(err)
		if !apperrors.Retryable(kind) || attempt == maxAttempts {
			return nil, err
		}
		lastErr = err

		delay := retryIn
		if delay <= 0 {
			delay = time.Duration(attempt*500+rand.Intn(250)) * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.KindTransient, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single request. The returned duration is the
// provider-supplied backoff hint for rate-limited responses, zero otherwise.
func (c *Client) fetchOnce(ctx context.Context, asin string) (*Snapshot, time.Duration, error) {
	u, err := url.Parse(fmt.Sprintf("%s/product", c.BaseURL))
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, err)
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("domain", strconv.Itoa(c.domain))
	q.Set("asin", asin)
	q.Set("stats", "1")
	q.Set("buybox", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, apperrors.New(apperrors.KindNotFound, "keepa: asin %s not found", asin)
	case resp.StatusCode == http.StatusTooManyRequests:
		var payload ProductResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return nil, refillDelay(&payload), apperrors.New(apperrors.KindRateLimited, "keepa: token quota exhausted")
	case resp.StatusCode >= 500:
		return nil, 0, apperrors.New(apperrors.KindTransient, "keepa api error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, 0, apperrors.New(apperrors.KindMalformedResponse, "keepa api error: status %d", resp.StatusCode)
	}

	var payload ProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindMalformedResponse, err)
	}

	if payload.Error != nil {
		return nil, 0, apperrors.New(apperrors.KindMalformedResponse, "keepa: %s: %s", payload.Error.Type, payload.Error.Message)
	}

	if len(payload.Products) == 0 {
		// Keepa answers 200 with an empty list both for unknown ASINs and for
		// an exhausted token bucket; tokensLeft disambiguates.
		if payload.TokensLeft <= 0 {
			return nil, refillDelay(&payload), apperrors.New(apperrors.KindRateLimited, "keepa: token quota exhausted")
		}
		return nil, 0, apperrors.New(apperrors.KindNotFound, "keepa: asin %s not found", asin)
	}

	snap, err := parseSnapshot(&payload.Products[0])
	if err != nil {
		return nil, 0, err
	}
	return snap, 0, nil
}

func refillDelay(payload *ProductResponse) time.Duration {
	if payload != nil && payload.RefillIn > 0 {
		return time.Duration(payload.RefillIn) * time.Millisecond
	}
	return 0
}
