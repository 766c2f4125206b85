package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deepinterview/deepinterview/internal/cache"
	"github.com/deepinterview/deepinterview/internal/generator"
	"github.com/deepinterview/deepinterview/internal/models"
	mongorepo "github.com/deepinterview/deepinterview/internal/repositories/mongo"
	pgrepo "github.com/deepinterview/deepinterview/internal/repositories/postgres"
	"github.com/deepinterview/deepinterview/internal/utils"
)

// Statistics aggregates an owner's completed sessions.
type Statistics struct {
	TotalInterviews        int            `json:"totalInterviews"`
	TotalQuestions         int            `json:"totalQuestions"`
	AverageScore           float64        `json:"averageScore"`
	AverageDurationMinutes float64        `json:"averageDurationMinutes"`
	InterviewTypes         map[string]int `json:"interviewTypes"`
	SkillLevels            map[string]int `json:"skillLevels"`
	JobPositions           map[string]int `json:"jobPositions"`
}

type SessionPage struct {
	Sessions   []models.InterviewSession `json:"sessions"`
	Count      int                       `json:"count"`
	Total      int64                     `json:"total"`
	Page       int                       `json:"page"`
	TotalPages int                       `json:"totalPages"`
}

type SessionService interface {
	Create(ctx context.Context, ownerID, jobPosition, interviewType, skillLevel, resumeID string) (*models.InterviewSession, error)
	Get(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	GenerateNextQuestions(ctx context.Context, sessionID string, previousQuestions []string) ([]models.QuestionRecord, string, error)
	SubmitResponse(ctx context.Context, sessionID string, questionIndex int, response string) (*models.QuestionRecord, bool, error)
	EvaluateResponse(ctx context.Context, sessionID string, questionIndex int) (*models.Evaluation, error)
	Finalize(ctx context.Context, sessionID string) (*models.OverallFeedback, error)
	SetStatus(ctx context.Context, sessionID string, status models.SessionStatus) (*models.InterviewSession, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) (*SessionPage, error)
	Statistics(ctx context.Context, ownerID string) (*Statistics, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
	users    pgrepo.UserRepository // optional, best-effort side effects only
	gen      *generator.Generator
	cache    cache.Cache // optional
	log      *logrus.Logger
}

func NewSessionService(sessions mongorepo.SessionRepository, users pgrepo.UserRepository, gen *generator.Generator, c cache.Cache, log *logrus.Logger) SessionService {
	if log == nil {
		log = logrus.New()
	}
	return &sessionService{sessions: sessions, users: users, gen: gen, cache: c, log: log}
}

func (s *sessionService) Create(ctx context.Context, ownerID, jobPosition, interviewType, skillLevel, resumeID string) (*models.InterviewSession, error) {
	const op = "SessionService.Create"

	if jobPosition == "" || interviewType == "" || skillLevel == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "job position, interview type, and skill level are required", nil)
	}

	session := &models.InterviewSession{
		SessionID:     uuid.NewString(),
		OwnerID:       ownerID,
		JobPosition:   jobPosition,
		InterviewType: generator.NormalizeInterviewType(interviewType),
		SkillLevel:    generator.NormalizeSkillLevel(skillLevel),
		ResumeID:      resumeID,
		Questions:     []models.QuestionRecord{},
		Status:        models.StatusInProgress,
		StartTime:     time.Now().UTC(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	// Owner bookkeeping is best-effort; an anonymous or unknown owner
	// never blocks session creation.
	if ownerID != "" && s.users != nil {
		if err := s.users.TouchActivity(ctx, ownerID, session.StartTime); err != nil {
			s.log.WithError(err).WithField("owner_id", ownerID).Warn("failed to update owner history")
		}
	}

	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}

	// A dangling but well-formed id gets a synthetic recovery session so
	// a client holding it can still practice. Never persisted.
	if uuid.Validate(sessionID) == nil {
		s.log.WithField("session_id", sessionID).Info("returning recovery session for unknown id")
		return recoverySession(sessionID), nil
	}

	return nil, utils.E(utils.CodeNotFound, op, "interview session not found", err)
}

func recoverySession(sessionID string) *models.InterviewSession {
	return &models.InterviewSession{
		SessionID:     sessionID,
		JobPosition:   "Interview Position",
		InterviewType: models.InterviewTechnical,
		SkillLevel:    models.SkillIntermediate,
		Questions:     []models.QuestionRecord{},
		Status:        models.StatusInProgress,
		StartTime:     time.Now().UTC(),
		IsRecovery:    true,
	}
}

func (s *sessionService) GenerateNextQuestions(ctx context.Context, sessionID string, previousQuestions []string) ([]models.QuestionRecord, string, error) {
	const op = "SessionService.GenerateNextQuestions"

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if session.Status.Terminal() {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "session is no longer in progress", nil)
	}

	set := s.gen.GenerateQuestions(ctx, session.JobPosition, session.SkillLevel, session.InterviewType, previousQuestions)

	now := time.Now().UTC()
	records := make([]models.QuestionRecord, len(set.Questions))
	for i, q := range set.Questions {
		records[i] = models.QuestionRecord{
			Question:       q.Question,
			ExpectedTopics: q.ExpectedTopics,
			Timestamp:      now,
		}
	}

	// Recovery sessions are read-only; the questions are still returned
	// so the interview can continue client-side.
	if !session.IsRecovery {
		if err := s.sessions.AppendQuestions(ctx, sessionID, records); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to persist generated questions")
		}
	}

	return records, set.Source, nil
}

func (s *sessionService) SubmitResponse(ctx context.Context, sessionID string, questionIndex int, response string) (*models.QuestionRecord, bool, error) {
	const op = "SessionService.SubmitResponse"

	if response == "" {
		return nil, false, utils.E(utils.CodeInvalidArgument, op, "response is required", nil)
	}
	if questionIndex < 0 {
		return nil, false, utils.E(utils.CodeOutOfRange, op, "invalid question index", nil)
	}

	session, err := s.strictGet(ctx, op, sessionID)
	if err != nil {
		return nil, false, err
	}

	if questionIndex >= len(session.Questions) {
		// An empty question list is a distinct signal: the caller needs
		// to request generation first, it is not a hard error.
		if len(session.Questions) == 0 {
			return nil, true, nil
		}
		return nil, false, utils.E(utils.CodeOutOfRange, op, "invalid question index", nil)
	}

	now := time.Now().UTC()
	if err := s.sessions.SetResponse(ctx, sessionID, questionIndex, response, now); err != nil {
		return nil, false, utils.E(utils.CodeInternal, op, "failed to save response", err)
	}

	record := session.Questions[questionIndex]
	record.Response = response
	record.Timestamp = now
	return &record, false, nil
}

func (s *sessionService) EvaluateResponse(ctx context.Context, sessionID string, questionIndex int) (*models.Evaluation, error) {
	const op = "SessionService.EvaluateResponse"

	session, err := s.strictGet(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}

	if questionIndex < 0 || questionIndex >= len(session.Questions) {
		return nil, utils.E(utils.CodeOutOfRange, op, "invalid question index", nil)
	}

	record := session.Questions[questionIndex]
	if record.Response == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no response to evaluate", nil)
	}

	ev := s.gen.EvaluateResponse(ctx, record.Question, record.Response, record.ExpectedTopics, session.JobPosition)

	if err := s.sessions.SetEvaluation(ctx, sessionID, questionIndex, ev, time.Now().UTC()); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save evaluation", err)
	}
	return &ev, nil
}

func (s *sessionService) Finalize(ctx context.Context, sessionID string) (*models.OverallFeedback, error) {
	const op = "SessionService.Finalize"

	session, err := s.strictGet(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session already ended", nil)
	}

	var transcript []generator.TranscriptEntry
	for _, q := range session.Questions {
		if q.Evaluated() {
			transcript = append(transcript, generator.TranscriptEntry{
				Question:   q.Question,
				Response:   q.Response,
				Evaluation: *q.Evaluation,
			})
		}
	}
	if len(transcript) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no evaluated responses found", nil)
	}

	fb := s.gen.GenerateOverallFeedback(ctx, transcript, session.JobPosition)

	now := time.Now().UTC()
	duration := durationSeconds(session.StartTime, now)
	if err := s.sessions.SetFeedback(ctx, sessionID, fb, now, duration); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save feedback", err)
	}

	s.invalidateStats(ctx, session.OwnerID)
	return &fb, nil
}

func (s *sessionService) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus) (*models.InterviewSession, error) {
	const op = "SessionService.SetStatus"

	if status != models.StatusCompleted && status != models.StatusAbandoned {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status value", nil)
	}

	session, err := s.strictGet(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session already ended", nil)
	}

	var endedAt *time.Time
	var duration int64
	if status == models.StatusCompleted {
		now := time.Now().UTC()
		endedAt = &now
		duration = durationSeconds(session.StartTime, now)
	}

	if err := s.sessions.SetStatus(ctx, sessionID, status, endedAt, duration); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to set status", err)
	}

	session.Status = status
	session.EndTime = endedAt
	session.Duration = duration
	s.invalidateStats(ctx, session.OwnerID)
	return session, nil
}

func (s *sessionService) ListByOwner(ctx context.Context, ownerID string, page, limit int) (*SessionPage, error) {
	const op = "SessionService.ListByOwner"

	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner id is required", nil)
	}
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}

	sessions, total, err := s.sessions.ListByOwner(ctx, ownerID, page, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	if sessions == nil {
		sessions = []models.InterviewSession{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &SessionPage{
		Sessions:   sessions,
		Count:      len(sessions),
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

func (s *sessionService) Statistics(ctx context.Context, ownerID string) (*Statistics, error) {
	const op = "SessionService.Statistics"

	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner id is required", nil)
	}

	if s.cache != nil {
		var cached Statistics
		if hit, _ := s.cache.GetJSON(ctx, statsKey(ownerID), &cached); hit {
			return &cached, nil
		}
	}

	sessions, err := s.sessions.ListCompletedByOwner(ctx, ownerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load sessions", err)
	}

	stats := &Statistics{
		InterviewTypes: map[string]int{},
		SkillLevels:    map[string]int{},
		JobPositions:   map[string]int{},
	}
	var totalDuration int64
	var totalScore, scoredSessions int

	for _, sess := range sessions {
		stats.TotalInterviews++
		stats.TotalQuestions += len(sess.Questions)
		totalDuration += sess.Duration
		if sess.Feedback != nil && sess.Feedback.OverallScore > 0 {
			totalScore += sess.Feedback.OverallScore
			scoredSessions++
		}
		stats.InterviewTypes[string(sess.InterviewType)]++
		stats.SkillLevels[string(sess.SkillLevel)]++
		stats.JobPositions[sess.JobPosition]++
	}

	if scoredSessions > 0 {
		stats.AverageScore = float64(totalScore) / float64(scoredSessions)
	}
	if stats.TotalInterviews > 0 {
		stats.AverageDurationMinutes = float64(totalDuration) / float64(stats.TotalInterviews) / 60
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, statsKey(ownerID), stats, 2*time.Minute)
	}
	return stats, nil
}

// strictGet is for mutating operations: recovery sessions are
// read-only, so a dangling id is a hard not-found here.
func (s *sessionService) strictGet(ctx context.Context, op, sessionID string) (*models.InterviewSession, error) {
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	session, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return session, nil
}

func (s *sessionService) invalidateStats(ctx context.Context, ownerID string) {
	if s.cache == nil || ownerID == "" {
		return
	}
	if err := s.cache.Del(ctx, statsKey(ownerID)); err != nil {
		s.log.WithError(err).Debug("failed to invalidate statistics cache")
	}
}

func statsKey(ownerID string) string { return "stats:" + ownerID }

func durationSeconds(start, end time.Time) int64 {
	d := int64(end.Sub(start).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// PopularPositions backs the setup page autocomplete.
func PopularPositions() []string {
	return []string{
		"Software Engineer",
		"Frontend Developer",
		"Backend Developer",
		"Full Stack Developer",
		"Data Scientist",
		"Machine Learning Engineer",
		"DevOps Engineer",
		"Product Manager",
		"UX Designer",
		"UI Designer",
		"QA Engineer",
		"Mobile Developer",
		"Android Developer",
		"iOS Developer",
		"Project Manager",
		"Scrum Master",
		"Business Analyst",
		"Data Analyst",
	}
}
