package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/services"
)

// Cache lifetimes per endpoint family. Session reads stay short so an
// in-progress interview never serves stale questions for long.
const (
	ttlSessions   = 15 * time.Second
	ttlHistory    = 2 * time.Minute
	ttlStatistics = 2 * time.Minute
	ttlProfile    = 5 * time.Minute
	ttlResumes    = 5 * time.Minute
	ttlPositions  = 10 * time.Minute
	ttlHealth     = 30 * time.Second
)

// Client is the typed API surface over the interview service. All
// calls share one resilience layer; see transport.
type Client struct {
	t *transport
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.t.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.t.token = token }
}

func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.t.retries = n }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{t: newTransport(baseURL, "", nil)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CreateSessionParams struct {
	JobPosition   string `json:"jobPosition"`
	InterviewType string `json:"interviewType"`
	SkillLevel    string `json:"skillLevel"`
	ResumeID      string `json:"resumeId,omitempty"`
}

func (c *Client) CreateSession(ctx context.Context, p CreateSessionParams) (*models.InterviewSession, error) {
	var out models.InterviewSession
	if err := c.t.send(ctx, http.MethodPost, "/api/interview/sessions", p, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/interview/sessions", "/api/user/history", "/api/user/statistics")
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var out models.InterviewSession
	path := "/api/interview/sessions/" + url.PathEscape(sessionID)
	if err := c.t.get(ctx, path, &out, ttlSessions); err != nil {
		return nil, err
	}
	return &out, nil
}

type QuestionsResult struct {
	Questions []models.QuestionRecord `json:"questions"`
	Source    string                  `json:"source"`
}

func (c *Client) GenerateQuestions(ctx context.Context, sessionID string, previousQuestions []string) (*QuestionsResult, error) {
	req := map[string]any{
		"sessionId":         sessionID,
		"previousQuestions": previousQuestions,
	}
	var out QuestionsResult
	if err := c.t.send(ctx, http.MethodPost, "/api/interview/questions", req, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/interview/sessions/" + url.PathEscape(sessionID))
	return &out, nil
}

type SubmitResult struct {
	Success        bool                   `json:"success"`
	NeedsQuestions bool                   `json:"needsQuestions"`
	Question       *models.QuestionRecord `json:"question"`
}

func (c *Client) SubmitResponse(ctx context.Context, sessionID string, questionIndex int, response string) (*SubmitResult, error) {
	req := map[string]any{
		"sessionId":     sessionID,
		"questionIndex": questionIndex,
		"response":      response,
	}
	var out SubmitResult
	if err := c.t.send(ctx, http.MethodPost, "/api/interview/response", req, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/interview/sessions/" + url.PathEscape(sessionID))
	return &out, nil
}

func (c *Client) EvaluateResponse(ctx context.Context, sessionID string, questionIndex int) (*models.Evaluation, error) {
	req := map[string]any{
		"sessionId":     sessionID,
		"questionIndex": questionIndex,
	}
	var out struct {
		Evaluation models.Evaluation `json:"evaluation"`
	}
	if err := c.t.send(ctx, http.MethodPost, "/api/interview/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out.Evaluation, nil
}

func (c *Client) FinalizeSession(ctx context.Context, sessionID string) (*models.OverallFeedback, error) {
	var out struct {
		Feedback models.OverallFeedback `json:"feedback"`
	}
	path := fmt.Sprintf("/api/interview/sessions/%s/feedback", url.PathEscape(sessionID))
	if err := c.t.send(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/interview/sessions", "/api/user/history", "/api/user/statistics")
	return &out.Feedback, nil
}

func (c *Client) SetSessionStatus(ctx context.Context, sessionID, status string) (*models.InterviewSession, error) {
	var out models.InterviewSession
	path := fmt.Sprintf("/api/interview/sessions/%s/status", url.PathEscape(sessionID))
	if err := c.t.send(ctx, http.MethodPatch, path, map[string]string{"status": status}, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/interview/sessions", "/api/user/history", "/api/user/statistics")
	return &out, nil
}

func (c *Client) Positions(ctx context.Context) ([]string, error) {
	var out struct {
		Positions []string `json:"positions"`
	}
	if err := c.t.get(ctx, "/api/interview/positions", &out, ttlPositions); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.t.get(ctx, "/api/user/profile", &out, ttlProfile); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update services.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.t.send(ctx, http.MethodPatch, "/api/user/profile", update, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/user")
	return &out, nil
}

func (c *Client) UpdatePreferences(ctx context.Context, prefs services.Preferences) (*models.User, error) {
	var out models.User
	if err := c.t.send(ctx, http.MethodPatch, "/api/user/preferences", prefs, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/user")
	return &out, nil
}

func (c *Client) History(ctx context.Context, page, limit int) (*services.SessionPage, error) {
	var out services.SessionPage
	path := fmt.Sprintf("/api/user/history?page=%d&limit=%d", page, limit)
	if err := c.t.get(ctx, path, &out, ttlHistory); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Statistics(ctx context.Context) (*services.Statistics, error) {
	var out services.Statistics
	if err := c.t.get(ctx, "/api/user/statistics", &out, ttlStatistics); err != nil {
		return nil, err
	}
	return &out, nil
}

type ResumeList struct {
	Resumes []models.Resume `json:"resumes"`
	Count   int             `json:"count"`
}

func (c *Client) Resumes(ctx context.Context) (*ResumeList, error) {
	var out ResumeList
	if err := c.t.get(ctx, "/api/resume", &out, ttlResumes); err != nil {
		return nil, err
	}
	return &out, nil
}

type UploadResumeParams struct {
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileType string `json:"fileType"`
	Content  string `json:"content"`
}

func (c *Client) UploadResume(ctx context.Context, p UploadResumeParams) (*models.Resume, error) {
	var out models.Resume
	if err := c.t.send(ctx, http.MethodPost, "/api/resume", p, &out); err != nil {
		return nil, err
	}
	c.t.invalidate("/api/resume")
	return &out, nil
}

func (c *Client) DeleteResume(ctx context.Context, resumeID string) error {
	if err := c.t.send(ctx, http.MethodDelete, "/api/resume/"+url.PathEscape(resumeID), nil, nil); err != nil {
		return err
	}
	c.t.invalidate("/api/resume")
	return nil
}

type Health struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"dbConnected"`
	Uptime      int64  `json:"uptime"`
}

func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.t.get(ctx, "/api/health", &out, ttlHealth); err != nil {
		return nil, err
	}
	return &out, nil
}
