package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const defaultMaxRetries = 3

// transport owns the resilience behavior shared by every endpoint:
// in-flight deduplication, short-TTL response caching, and retry with
// exponential backoff for retryable failures only.
type transport struct {
	http    *http.Client
	baseURL string
	token   string

	group   singleflight.Group
	cache   *gocache.Cache
	retries uint64
}

func newTransport(baseURL, token string, httpClient *http.Client) *transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &transport{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		cache:   gocache.New(gocache.NoExpiration, time.Minute),
		retries: defaultMaxRetries,
	}
}

// get runs a cacheable, deduplicated GET. Concurrent calls for the
// same path share one upstream request; a fresh cache entry skips the
// network entirely.
func (t *transport) get(ctx context.Context, path string, out any, ttl time.Duration) error {
	key := "GET " + path

	if ttl > 0 {
		if raw, ok := t.cache.Get(key); ok {
			return json.Unmarshal(raw.([]byte), out)
		}
	}

	raw, err, _ := t.group.Do(key, func() (any, error) {
		body, err := t.roundTrip(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			t.cache.Set(key, body, ttl)
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

func (t *transport) send(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return &APIError{Code: "ENCODING", Message: "Invalid request. Please check your input.", Err: err}
		}
	}

	body, err := t.roundTrip(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (t *transport) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body []byte

	operation := func() error {
		b, err := t.once(ctx, method, path, payload)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.retries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

func (t *transport) once(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, &APIError{Code: "ENCODING", Message: "Invalid request. Please check your input.", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		var ne interface{ Timeout() bool }
		if !timedOut && errors.As(err, &ne) {
			timedOut = ne.Timeout()
		}
		return nil, normalizeTransport(err, timedOut)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, normalizeTransport(err, false)
	}

	if resp.StatusCode >= 400 {
		var serverErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &serverErr)
		return nil, normalizeStatus(resp.StatusCode, serverErr.Code, serverErr.Message)
	}
	return body, nil
}

// invalidate drops every cached GET whose path starts with one of the
// given prefixes. Mutations call this so related reads refetch.
func (t *transport) invalidate(prefixes ...string) {
	for key := range t.cache.Items() {
		path := strings.TrimPrefix(key, "GET ")
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				t.cache.Delete(key)
				break
			}
		}
	}
}
