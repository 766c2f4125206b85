package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deepinterview/deepinterview/internal/models"
)

// State tags the controller lifecycle. Transitions only move forward
// except Degraded, which Ready can fall into after repeated failures.
type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateSubmitting   State = "submitting"
	StateDegraded     State = "degraded"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// initializeBudget bounds interview startup end to end. When the
// server cannot deliver a session and questions inside it, the
// controller synthesizes an offline session instead of blocking the
// user.
const initializeBudget = 10 * time.Second

// Controller drives one interview from setup to feedback on behalf of
// a UI. It owns the degraded-mode fallback: every operation keeps
// working locally when the server is unreachable.
type Controller struct {
	api     *Client
	intents *IntentStore
	log     *logrus.Logger

	mu        sync.Mutex
	state     State
	session   *models.InterviewSession
	questions []models.QuestionRecord
	index     int
	responses map[int]string
}

func NewController(api *Client, intents *IntentStore, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		api:       api,
		intents:   intents,
		log:       log,
		state:     StateInitializing,
		responses: map[int]string{},
	}
}

func (ctl *Controller) State() State {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.state
}

func (ctl *Controller) Session() *models.InterviewSession {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.session
}

// CurrentQuestion returns the active question, or nil when none remain.
func (ctl *Controller) CurrentQuestion() *models.QuestionRecord {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.index < 0 || ctl.index >= len(ctl.questions) {
		return nil
	}
	q := ctl.questions[ctl.index]
	return &q
}

type SetupParams struct {
	JobPosition   string
	InterviewType string
	SkillLevel    string
	ResumeID      string
}

// Initialize creates the session and fetches the opening questions
// within one deadline. A slow or failing server degrades to an offline
// session with mock questions rather than surfacing an error.
func (ctl *Controller) Initialize(ctx context.Context, p SetupParams) error {
	ctx, cancel := context.WithTimeout(ctx, initializeBudget)
	defer cancel()

	ctl.mu.Lock()
	ctl.state = StateInitializing
	ctl.mu.Unlock()

	sess, err := ctl.api.CreateSession(ctx, CreateSessionParams{
		JobPosition:   p.JobPosition,
		InterviewType: p.InterviewType,
		SkillLevel:    p.SkillLevel,
		ResumeID:      p.ResumeID,
	})
	if err != nil {
		if !IsRetryable(err) {
			ctl.setState(StateFailed)
			return err
		}
		ctl.log.WithError(err).Warn("session creation failed, entering degraded mode")
		ctl.degrade(p)
		return nil
	}

	qs, err := ctl.api.GenerateQuestions(ctx, sess.SessionID, nil)
	if err != nil || len(qs.Questions) == 0 {
		if err != nil && !IsRetryable(err) {
			ctl.setState(StateFailed)
			return err
		}
		ctl.log.WithError(err).Warn("question fetch failed, entering degraded mode")
		ctl.degrade(p)
		return nil
	}

	ctl.mu.Lock()
	ctl.session = sess
	ctl.questions = qs.Questions
	ctl.index = 0
	ctl.state = StateReady
	ctl.mu.Unlock()

	ctl.saveIntent(sess.SessionID, p, false)
	return nil
}

// Resume restores a previous interview from the local intent store.
// Returns false when there is nothing to resume.
func (ctl *Controller) Resume(ctx context.Context) (bool, error) {
	if ctl.intents == nil {
		return false, nil
	}
	in, err := ctl.intents.Load()
	if err != nil || in == nil {
		return false, err
	}

	if in.IsOfflineSession {
		ctl.degrade(SetupParams{
			JobPosition:   in.JobPosition,
			InterviewType: in.InterviewType,
			SkillLevel:    in.SkillLevel,
		})
		return true, nil
	}

	sess, err := ctl.api.GetSession(ctx, in.SessionID)
	if err != nil {
		if !IsRetryable(err) {
			return false, err
		}
		// The intent is enough to keep practicing locally when the
		// server cannot return the session in time.
		ctl.log.WithError(err).Warn("session fetch failed, resuming in degraded mode")
		ctl.degrade(SetupParams{
			JobPosition:   in.JobPosition,
			InterviewType: in.InterviewType,
			SkillLevel:    in.SkillLevel,
		})
		return true, nil
	}

	ctl.mu.Lock()
	ctl.session = sess
	ctl.questions = sess.Questions
	ctl.index = nextUnanswered(sess.Questions)
	ctl.state = StateReady
	ctl.mu.Unlock()
	return true, nil
}

// SubmitAndAdvance records the response to the current question, asks
// for its evaluation, and moves to the next question. In degraded mode
// everything stays local.
func (ctl *Controller) SubmitAndAdvance(ctx context.Context, response string) (*models.Evaluation, error) {
	ctl.mu.Lock()
	switch ctl.state {
	case StateReady, StateDegraded:
	default:
		state := ctl.state
		ctl.mu.Unlock()
		return nil, fmt.Errorf("cannot submit in state %q", state)
	}
	if ctl.index >= len(ctl.questions) {
		ctl.mu.Unlock()
		return nil, fmt.Errorf("no active question")
	}
	degraded := ctl.state == StateDegraded
	sessionID := ""
	if ctl.session != nil {
		sessionID = ctl.session.SessionID
	}
	idx := ctl.index
	if !degraded {
		ctl.state = StateSubmitting
	}
	ctl.mu.Unlock()

	if degraded {
		ctl.mu.Lock()
		ctl.responses[idx] = response
		ctl.questions[idx].Response = response
		ctl.index++
		ctl.mu.Unlock()
		ev := localEvaluation(response)
		return &ev, nil
	}

	res, err := ctl.api.SubmitResponse(ctx, sessionID, idx, response)
	if err != nil {
		ctl.setState(StateReady)
		return nil, err
	}
	if res.NeedsQuestions {
		// The server lost the question list; regenerate and retry the
		// submit exactly once.
		qs, qerr := ctl.api.GenerateQuestions(ctx, sessionID, nil)
		if qerr != nil || len(qs.Questions) == 0 {
			ctl.setState(StateReady)
			return nil, fmt.Errorf("session has no questions")
		}
		ctl.mu.Lock()
		ctl.questions = qs.Questions
		ctl.index = 0
		ctl.mu.Unlock()
		idx = 0

		res, err = ctl.api.SubmitResponse(ctx, sessionID, idx, response)
		if err != nil {
			ctl.setState(StateReady)
			return nil, err
		}
		if res.NeedsQuestions {
			ctl.setState(StateReady)
			return nil, fmt.Errorf("session has no questions")
		}
	}

	ev, err := ctl.api.EvaluateResponse(ctx, sessionID, idx)
	if err != nil {
		// The response is saved server-side; a failed evaluation keeps
		// the interview moving with a local placeholder.
		ctl.log.WithError(err).Warn("evaluation failed, using local fallback")
		local := localEvaluation(response)
		ev = &local
	}

	ctl.mu.Lock()
	ctl.responses[idx] = response
	ctl.questions[idx].Response = response
	ctl.questions[idx].Evaluation = ev
	ctl.index++
	ctl.state = StateReady
	ctl.mu.Unlock()
	return ev, nil
}

// Remaining reports how many questions are left.
func (ctl *Controller) Remaining() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	n := len(ctl.questions) - ctl.index
	if n < 0 {
		return 0
	}
	return n
}

// End finalizes the interview and clears the saved intent. Degraded
// sessions produce a locally synthesized summary.
func (ctl *Controller) End(ctx context.Context) (*models.OverallFeedback, error) {
	ctl.mu.Lock()
	degraded := ctl.state == StateDegraded
	sessionID := ""
	if ctl.session != nil {
		sessionID = ctl.session.SessionID
	}
	answered := len(ctl.responses)
	ctl.mu.Unlock()

	var fb *models.OverallFeedback
	if degraded {
		fb = localFeedback(answered)
	} else {
		remote, err := ctl.api.FinalizeSession(ctx, sessionID)
		if err != nil {
			if !IsRetryable(err) {
				return nil, err
			}
			ctl.log.WithError(err).Warn("finalize failed, using local summary")
			fb = localFeedback(answered)
		} else {
			fb = remote
		}
	}

	ctl.mu.Lock()
	ctl.state = StateCompleted
	ctl.mu.Unlock()

	if ctl.intents != nil {
		_ = ctl.intents.Clear()
	}
	return fb, nil
}

func (ctl *Controller) setState(s State) {
	ctl.mu.Lock()
	ctl.state = s
	ctl.mu.Unlock()
}

func (ctl *Controller) degrade(p SetupParams) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	ctl.mu.Lock()
	ctl.session = &models.InterviewSession{
		SessionID:     sessionID,
		JobPosition:   p.JobPosition,
		InterviewType: models.InterviewType(p.InterviewType),
		SkillLevel:    models.SkillLevel(p.SkillLevel),
		Status:        models.StatusInProgress,
		StartTime:     now,
	}
	ctl.questions = offlineQuestions(p.JobPosition)
	ctl.index = 0
	ctl.state = StateDegraded
	ctl.mu.Unlock()

	ctl.saveIntent(sessionID, p, true)
}

func (ctl *Controller) saveIntent(sessionID string, p SetupParams, offline bool) {
	if ctl.intents == nil {
		return
	}
	err := ctl.intents.Save(Intent{
		SessionID:        sessionID,
		JobPosition:      p.JobPosition,
		InterviewType:    p.InterviewType,
		SkillLevel:       p.SkillLevel,
		Timestamp:        time.Now().UTC(),
		IsOfflineSession: offline,
	})
	if err != nil {
		ctl.log.WithError(err).Warn("failed to save interview intent")
	}
}

func nextUnanswered(questions []models.QuestionRecord) int {
	for i, q := range questions {
		if q.Response == "" {
			return i
		}
	}
	return len(questions)
}

const mockPrefix = "[MOCK] "

func offlineQuestions(jobPosition string) []models.QuestionRecord {
	now := time.Now().UTC()
	qs := []models.QuestionRecord{
		{
			Question:       mockPrefix + fmt.Sprintf("Tell me about your background and what draws you to the %s role.", jobPosition),
			ExpectedTopics: "Career progression, relevant experience, motivation",
		},
		{
			Question:       mockPrefix + "Describe a challenging problem you solved recently. What was your approach?",
			ExpectedTopics: "Problem-solving methodology, technical depth, outcome",
		},
		{
			Question:       mockPrefix + "How do you handle disagreements with teammates about technical decisions?",
			ExpectedTopics: "Communication, collaboration, conflict resolution",
		},
	}
	for i := range qs {
		qs[i].Timestamp = now
	}
	return qs
}

func localEvaluation(response string) models.Evaluation {
	words := len(strings.Fields(response))
	score := 5
	switch {
	case words < 10:
		score = 3
	case words < 30:
		score = 5
	case words < 50:
		score = 6
	case words < 100:
		score = 7
	default:
		score = 8
	}
	return models.Evaluation{
		Score:        score,
		Feedback:     mockPrefix + "Thanks for your answer. Detailed evaluation is unavailable right now.",
		Strengths:    []string{"Attempted the question"},
		Improvements: []string{"Full evaluation requires a server connection"},
		Source:       "fallback",
	}
}

func localFeedback(answered int) *models.OverallFeedback {
	return &models.OverallFeedback{
		OverallScore: 7,
		Summary:      mockPrefix + fmt.Sprintf("You completed %d questions in offline practice mode.", answered),
		Strengths:    []string{"Completed the practice session"},
		AreasForImprovement: []string{
			"Reconnect to receive a full evaluated interview",
		},
		Recommendations: []string{"Run another session once the service is reachable"},
		Source:          "fallback",
	}
}
