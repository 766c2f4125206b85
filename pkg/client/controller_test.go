package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntentStore(t *testing.T) *IntentStore {
	t.Helper()
	return NewIntentStore(filepath.Join(t.TempDir(), "intent.json"))
}

// interviewServer fakes the happy-path API for controller tests.
func interviewServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/interview/sessions" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"sessionId": "11111111-2222-3333-4444-555555555555",
				"status":    "in-progress",
				"startTime": time.Now().UTC(),
			})
		case r.URL.Path == "/api/interview/questions":
			json.NewEncoder(w).Encode(map[string]any{
				"source": "fallback",
				"questions": []map[string]any{
					{"question": "Q1", "expectedTopics": "T1"},
					{"question": "Q2", "expectedTopics": "T2"},
				},
			})
		case r.URL.Path == "/api/interview/response":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "question": map[string]any{"question": "Q1", "response": "R"}})
		case r.URL.Path == "/api/interview/evaluate":
			json.NewEncoder(w).Encode(map[string]any{"evaluation": map[string]any{"score": 7, "feedback": "good", "source": "llm"}})
		case strings.HasSuffix(r.URL.Path, "/feedback"):
			json.NewEncoder(w).Encode(map[string]any{"feedback": map[string]any{"overallScore": 8, "summary": "well done", "source": "llm"}})
		default:
			w.Write([]byte(`{}`))
		}
	}))
}

func TestControllerHappyPath(t *testing.T) {
	srv := interviewServer(t)
	defer srv.Close()

	store := testIntentStore(t)
	ctl := NewController(New(srv.URL), store, nil)
	ctx := context.Background()

	require.NoError(t, ctl.Initialize(ctx, SetupParams{
		JobPosition: "Engineer", InterviewType: "technical", SkillLevel: "beginner",
	}))
	assert.Equal(t, StateReady, ctl.State())
	assert.Equal(t, 2, ctl.Remaining())

	q := ctl.CurrentQuestion()
	require.NotNil(t, q)
	assert.Equal(t, "Q1", q.Question)

	ev, err := ctl.SubmitAndAdvance(ctx, "a solid answer")
	require.NoError(t, err)
	assert.Equal(t, 7, ev.Score)
	assert.Equal(t, StateReady, ctl.State())
	assert.Equal(t, 1, ctl.Remaining())

	// The online intent is saved for resume.
	in, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.False(t, in.IsOfflineSession)

	fb, err := ctl.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, fb.OverallScore)
	assert.Equal(t, StateCompleted, ctl.State())

	// Ending clears the intent.
	in, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, in)
}

func TestControllerDegradesWhenServerTooSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := testIntentStore(t)
	api := New(srv.URL,
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithMaxRetries(0))
	ctl := NewController(api, store, nil)

	err := ctl.Initialize(context.Background(), SetupParams{
		JobPosition: "Data Scientist", InterviewType: "mixed", SkillLevel: "intermediate",
	})
	require.NoError(t, err, "a slow server must degrade, not fail")
	assert.Equal(t, StateDegraded, ctl.State())

	sess := ctl.Session()
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "Data Scientist", sess.JobPosition)

	q := ctl.CurrentQuestion()
	require.NotNil(t, q)
	assert.True(t, strings.HasPrefix(q.Question, mockPrefix))

	in, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.True(t, in.IsOfflineSession)
}

func TestResumeDegradesWhenSessionFetchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := testIntentStore(t)
	require.NoError(t, store.Save(Intent{
		SessionID:     "11111111-2222-3333-4444-555555555555",
		JobPosition:   "Platform Engineer",
		InterviewType: "technical",
		SkillLevel:    "expert",
	}))

	api := New(srv.URL,
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithMaxRetries(0))
	ctl := NewController(api, store, nil)

	resumed, err := ctl.Resume(context.Background())
	require.NoError(t, err, "an unreachable server must degrade the resume, not fail it")
	assert.True(t, resumed)
	assert.Equal(t, StateDegraded, ctl.State())

	sess := ctl.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "Platform Engineer", sess.JobPosition)
	require.NotNil(t, ctl.CurrentQuestion())
}

func TestSubmitRetriesNeedsQuestionsOnlyOnce(t *testing.T) {
	var responseCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/interview/sessions" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"sessionId": "s-1", "status": "in-progress"})
		case r.URL.Path == "/api/interview/questions":
			json.NewEncoder(w).Encode(map[string]any{
				"source":    "fallback",
				"questions": []map[string]any{{"question": "Q1", "expectedTopics": "T1"}},
			})
		case r.URL.Path == "/api/interview/response":
			// Pathological server that never acknowledges questions.
			atomic.AddInt32(&responseCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{"needsQuestions": true})
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	ctl := NewController(New(srv.URL), testIntentStore(t), nil)
	ctx := context.Background()

	require.NoError(t, ctl.Initialize(ctx, SetupParams{
		JobPosition: "Engineer", InterviewType: "technical", SkillLevel: "beginner",
	}))

	_, err := ctl.SubmitAndAdvance(ctx, "an answer")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&responseCalls))
	assert.Equal(t, StateReady, ctl.State())
}

func TestControllerDegradedModeWorksOffline(t *testing.T) {
	ctl := NewController(New("http://127.0.0.1:1", WithMaxRetries(0)), testIntentStore(t), nil)
	ctx := context.Background()

	require.NoError(t, ctl.Initialize(ctx, SetupParams{
		JobPosition: "Engineer", InterviewType: "behavioral", SkillLevel: "beginner",
	}))
	require.Equal(t, StateDegraded, ctl.State())

	total := ctl.Remaining()
	require.Greater(t, total, 0)

	for i := 0; i < total; i++ {
		ev, err := ctl.SubmitAndAdvance(ctx, "answering while offline with a reasonable amount of detail in the response")
		require.NoError(t, err)
		assert.Equal(t, "fallback", ev.Source)
	}
	assert.Equal(t, 0, ctl.Remaining())

	fb, err := ctl.End(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fb.Summary, mockPrefix))
	assert.Equal(t, StateCompleted, ctl.State())
}

func TestControllerFailsFastOnRejectedSetup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_ARGUMENT","message":"job position is required"}`))
	}))
	defer srv.Close()

	ctl := NewController(New(srv.URL), testIntentStore(t), nil)
	err := ctl.Initialize(context.Background(), SetupParams{})
	require.Error(t, err)
	assert.Equal(t, StateFailed, ctl.State())
}

func TestControllerRejectsSubmitAfterCompletion(t *testing.T) {
	srv := interviewServer(t)
	defer srv.Close()

	ctl := NewController(New(srv.URL), testIntentStore(t), nil)
	ctx := context.Background()

	require.NoError(t, ctl.Initialize(ctx, SetupParams{
		JobPosition: "Engineer", InterviewType: "technical", SkillLevel: "beginner",
	}))
	_, err := ctl.End(ctx)
	require.NoError(t, err)

	_, err = ctl.SubmitAndAdvance(ctx, "too late")
	require.Error(t, err)
}

func TestIntentStoreRoundTrip(t *testing.T) {
	store := testIntentStore(t)

	// Empty store.
	in, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, in)

	saved := Intent{
		SessionID:     "abc",
		JobPosition:   "Engineer",
		InterviewType: "technical",
		SkillLevel:    "expert",
	}
	require.NoError(t, store.Save(saved))

	in, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, "abc", in.SessionID)
	assert.False(t, in.Timestamp.IsZero())

	require.NoError(t, store.Clear())
	in, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, in)
}

func TestIntentStoreExpiresOldEntries(t *testing.T) {
	store := testIntentStore(t)

	require.NoError(t, store.Save(Intent{
		SessionID: "old",
		Timestamp: time.Now().Add(-25 * time.Hour),
	}))

	in, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, in)
}
