package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentIdenticalGETsShareOneUpstreamCall(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"positions":["Software Engineer"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	var wg sync.WaitGroup
	results := make([][]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Positions(context.Background())
			if assert.NoError(t, err) {
				results[i] = got
			}
		}(i)
	}

	// Let the in-flight calls pile up on the shared request.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, []string{"Software Engineer"}, r)
	}
}

func TestCachedGETSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","dbConnected":true,"uptime":42}`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	for i := 0; i < 5; i++ {
		h, err := c.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, h.DBConnected)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheExpiryRefetches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"positions":["A"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	// Force an immediate expiry for the test.
	_, err := c.Positions(context.Background())
	require.NoError(t, err)
	c.t.cache.Flush()

	_, err = c.Positions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMutationInvalidatesRelatedReads(t *testing.T) {
	var historyCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/user/history":
			atomic.AddInt32(&historyCalls, 1)
			w.Write([]byte(`{"sessions":[],"count":0,"total":0,"page":1,"totalPages":0}`))
		case r.URL.Path == "/api/interview/sessions" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"sessionId":"s-1","status":"in-progress"}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.History(ctx, 1, 10)
	require.NoError(t, err)
	_, err = c.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&historyCalls))

	_, err = c.CreateSession(ctx, CreateSessionParams{
		JobPosition: "Engineer", InterviewType: "technical", SkillLevel: "beginner",
	})
	require.NoError(t, err)

	_, err = c.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&historyCalls))
}

func TestNoRetryOnClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_ARGUMENT","message":"job position is required"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CreateSession(context.Background(), CreateSessionParams{})
	require.Error(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, IsRetryable(err))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, "job position is required", ae.Message)
}

func TestRetryOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"positions":["A"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Positions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		status    int
		wantMsg   string
		retryable bool
	}{
		{401, "Authentication required. Please sign in.", false},
		{403, "Access denied.", false},
		{404, "The requested resource was not found.", false},
		{429, "Too many requests. Please slow down.", true},
		{500, "Server error. Please try again later.", true},
		{503, "Server error. Please try again later.", true},
	}

	for _, tc := range tests {
		ae := normalizeStatus(tc.status, "", "")
		assert.Equal(t, tc.wantMsg, ae.Message, "status %d", tc.status)
		assert.Equal(t, tc.retryable, ae.Retryable, "status %d", tc.status)
	}
}

func TestErrorNormalizationPrefersServerValidationMessage(t *testing.T) {
	ae := normalizeStatus(400, "INVALID_ARGUMENT", "skill level is required")
	assert.Equal(t, "skill level is required", ae.Message)

	// Auth messages never leak server internals.
	ae = normalizeStatus(401, "UNAUTHORIZED", "token signature mismatch at kid 3")
	assert.Equal(t, "Authentication required. Please sign in.", ae.Message)
}

func TestTimeoutNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL,
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithMaxRetries(0))

	_, err := c.HealthCheck(context.Background())
	require.Error(t, err)

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Timeout())
	assert.True(t, ae.Retryable)
	assert.Equal(t, "Request timed out. The server is taking too long to respond.", ae.Message)
}

func TestNetworkErrorNormalization(t *testing.T) {
	c := New("http://127.0.0.1:1", WithMaxRetries(0))

	_, err := c.HealthCheck(context.Background())
	require.Error(t, err)

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 0, ae.Status)
	assert.Equal(t, "Network error. Please check your connection.", ae.Message)
}
