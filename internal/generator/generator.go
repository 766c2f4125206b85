package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/providers/llm"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"

	maxQuestions      = 5
	maxQuestionLen    = 1000
	maxTopicsLen      = 500
	maxResponseLen    = 2000
	maxAvoidQuestions = 10

	questionTimeout = 25 * time.Second
	scoreTimeout    = 20 * time.Second
)

type Question struct {
	Question       string `json:"question"`
	ExpectedTopics string `json:"expectedTopics"`
}

type QuestionSet struct {
	Questions []Question `json:"questions"`
	Source    string     `json:"source"`
}

// TranscriptEntry is one answered-and-scored question, the input unit
// for overall feedback.
type TranscriptEntry struct {
	Question   string            `json:"question"`
	Response   string            `json:"response"`
	Evaluation models.Evaluation `json:"evaluation"`
}

type ResumeAnalysis struct {
	Summary               string   `json:"summary"`
	Skills                []string `json:"skills"`
	Strengths             []string `json:"strengths"`
	Weaknesses            []string `json:"weaknesses"`
	SuggestedPositions    []string `json:"suggestedPositions"`
	PersonalizedQuestions []string `json:"personalizedQuestions"`
	Source                string   `json:"source"`
}

// Generator produces questions, evaluations, and feedback. Every call
// sits on the critical path of a live interview, so each one is
// time-boxed and degrades to a deterministic result instead of
// returning an error. A nil provider means fallback-only operation.
type Generator struct {
	provider llm.Provider
	log      *logrus.Logger
}

func New(provider llm.Provider, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.New()
	}
	return &Generator{provider: provider, log: log}
}

func (g *Generator) GenerateQuestions(ctx context.Context, jobPosition string, skillLevel models.SkillLevel, interviewType models.InterviewType, previousQuestions []string) QuestionSet {
	position := sanitize(jobPosition, "Software Engineer", maxTopicsLen)
	level := NormalizeSkillLevel(string(skillLevel))
	typ := NormalizeInterviewType(string(interviewType))

	if g.provider == nil {
		return fallbackQuestions(position, typ)
	}

	system := fmt.Sprintf(`You are an expert technical interviewer. Generate %d %s interview questions for a %s level %s position.

Requirements:
- Questions should be appropriate for %s level
- Focus on %s aspects
- Each question should be realistic and achievable

Return a JSON object: {"questions":[{"question":"...","expectedTopics":"..."}]}`,
		maxQuestions, typ, level, position, level, typ)

	user := fmt.Sprintf("Generate %d diverse %s questions for the %s role.", maxQuestions, typ, position)
	if len(previousQuestions) > 0 {
		avoid := previousQuestions
		if len(avoid) > maxAvoidQuestions {
			avoid = avoid[:maxAvoidQuestions]
		}
		user += " Avoid repeating these previously asked questions: " + strings.Join(avoid, ", ")
	}

	raw, err := g.complete(ctx, questionTimeout, system, user)
	if err != nil {
		g.log.WithError(err).Warn("question generation failed, using fallback")
		return fallbackQuestions(position, typ)
	}

	var parsed struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		g.log.WithError(err).Warn("question generation returned malformed JSON, using fallback")
		return fallbackQuestions(position, typ)
	}

	out := make([]Question, 0, maxQuestions)
	for _, q := range parsed.Questions {
		if q.Question == "" || q.ExpectedTopics == "" {
			continue
		}
		out = append(out, Question{
			Question:       sanitize(q.Question, "", maxQuestionLen),
			ExpectedTopics: sanitize(q.ExpectedTopics, "", maxTopicsLen),
		})
		if len(out) == maxQuestions {
			break
		}
	}
	if len(out) == 0 {
		g.log.Warn("question generation returned no usable questions, using fallback")
		return fallbackQuestions(position, typ)
	}

	return QuestionSet{Questions: out, Source: SourceLLM}
}

func (g *Generator) EvaluateResponse(ctx context.Context, question, response, expectedTopics, jobPosition string) models.Evaluation {
	safeResponse := sanitize(response, "No response provided", maxResponseLen)

	if g.provider == nil {
		return fallbackEvaluation(safeResponse)
	}

	system := fmt.Sprintf(`You are an expert interviewer evaluating responses for %s positions.

Provide a fair and constructive evaluation with:
- A score from 1-10 (1=poor, 5=average, 10=excellent)
- Constructive feedback (2-3 sentences)
- 2-3 specific strengths
- 2-3 areas for improvement

Return JSON: {"score":7,"feedback":"...","strengths":["..."],"improvements":["..."]}`,
		sanitize(jobPosition, "Professional", maxTopicsLen))

	user := fmt.Sprintf("Question: %q\n\nExpected topics to cover: %s\n\nCandidate's response: %q\n\nPlease evaluate this response constructively.",
		sanitize(question, "No question provided", maxQuestionLen),
		sanitize(expectedTopics, "General relevance", maxTopicsLen),
		safeResponse)

	raw, err := g.complete(ctx, scoreTimeout, system, user)
	if err != nil {
		g.log.WithError(err).Warn("evaluation failed, using fallback")
		return fallbackEvaluation(safeResponse)
	}

	var parsed struct {
		Score        json.Number `json:"score"`
		Feedback     string      `json:"feedback"`
		Strengths    []string    `json:"strengths"`
		Improvements []string    `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.Feedback == "" {
		g.log.Warn("evaluation returned malformed JSON, using fallback")
		return fallbackEvaluation(safeResponse)
	}

	score, _ := parsed.Score.Float64()
	return models.Evaluation{
		Score:        ClampScore(int(score)),
		Feedback:     sanitize(parsed.Feedback, "", maxQuestionLen),
		Strengths:    capList(parsed.Strengths, 5),
		Improvements: capList(parsed.Improvements, 5),
		Source:       SourceLLM,
	}
}

func (g *Generator) GenerateOverallFeedback(ctx context.Context, transcript []TranscriptEntry, jobPosition string) models.OverallFeedback {
	if g.provider == nil {
		return fallbackFeedback()
	}

	system := fmt.Sprintf(`You are an expert hiring manager for %s positions. Generate comprehensive feedback for an interview based on the candidate's responses.

Return JSON: {"overallScore":7,"summary":"...","strengths":["..."],"areasForImprovement":["..."],"recommendations":["..."]}`,
		sanitize(jobPosition, "Professional", maxTopicsLen))

	payload, err := json.Marshal(transcript)
	if err != nil {
		return fallbackFeedback()
	}
	user := fmt.Sprintf("Interview responses:\n%s\n\nPlease generate overall interview feedback.", payload)

	raw, err := g.complete(ctx, scoreTimeout, system, user)
	if err != nil {
		g.log.WithError(err).Warn("overall feedback failed, using fallback")
		return fallbackFeedback()
	}

	var parsed struct {
		OverallScore        json.Number `json:"overallScore"`
		Summary             string      `json:"summary"`
		Strengths           []string    `json:"strengths"`
		AreasForImprovement []string    `json:"areasForImprovement"`
		Recommendations     []string    `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.Summary == "" {
		g.log.Warn("overall feedback returned malformed JSON, using fallback")
		return fallbackFeedback()
	}

	score, _ := parsed.OverallScore.Float64()
	return models.OverallFeedback{
		OverallScore:        ClampScore(int(score)),
		Summary:             sanitize(parsed.Summary, "", maxResponseLen),
		Strengths:           capList(parsed.Strengths, 5),
		AreasForImprovement: capList(parsed.AreasForImprovement, 5),
		Recommendations:     capList(parsed.Recommendations, 5),
		Source:              SourceLLM,
	}
}

func (g *Generator) AnalyzeResume(ctx context.Context, resumeText, jobPosition string) ResumeAnalysis {
	if g.provider == nil {
		return fallbackResumeAnalysis()
	}

	system := fmt.Sprintf(`You are an expert hiring manager for %s positions. Analyze the provided resume and generate personalized interview questions based on the candidate's background.

Return JSON: {"summary":"...","skills":["..."],"strengths":["..."],"weaknesses":["..."],"suggestedPositions":["..."],"personalizedQuestions":["..."]}`,
		sanitize(jobPosition, "Professional", maxTopicsLen))

	user := fmt.Sprintf("Job position: %s\n\nResume:\n%s\n\nPlease analyze this resume.",
		sanitize(jobPosition, "Professional", maxTopicsLen), resumeText)

	raw, err := g.complete(ctx, questionTimeout, system, user)
	if err != nil {
		g.log.WithError(err).Warn("resume analysis failed, using fallback")
		return fallbackResumeAnalysis()
	}

	var parsed ResumeAnalysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.Summary == "" {
		g.log.Warn("resume analysis returned malformed JSON, using fallback")
		return fallbackResumeAnalysis()
	}

	parsed.Skills = capList(parsed.Skills, 20)
	parsed.Strengths = capList(parsed.Strengths, 10)
	parsed.Weaknesses = capList(parsed.Weaknesses, 10)
	parsed.SuggestedPositions = capList(parsed.SuggestedPositions, 10)
	parsed.PersonalizedQuestions = capList(parsed.PersonalizedQuestions, 10)
	parsed.Source = SourceLLM
	return parsed
}

func (g *Generator) complete(ctx context.Context, timeout time.Duration, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.provider.Generate(ctx, system, user)
}

// NormalizeSkillLevel coerces free-form input into the fixed enum,
// defaulting to intermediate.
func NormalizeSkillLevel(level string) models.SkillLevel {
	switch models.SkillLevel(strings.ToLower(strings.TrimSpace(level))) {
	case models.SkillBeginner:
		return models.SkillBeginner
	case models.SkillExpert:
		return models.SkillExpert
	default:
		return models.SkillIntermediate
	}
}

// NormalizeInterviewType coerces free-form input into the fixed enum,
// defaulting to mixed.
func NormalizeInterviewType(typ string) models.InterviewType {
	switch models.InterviewType(strings.ToLower(strings.TrimSpace(typ))) {
	case models.InterviewTechnical:
		return models.InterviewTechnical
	case models.InterviewBehavioral:
		return models.InterviewBehavioral
	case models.InterviewCustom:
		return models.InterviewCustom
	case models.InterviewSystemDesign:
		return models.InterviewSystemDesign
	default:
		return models.InterviewMixed
	}
}

func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func sanitize(s, fallback string, maxLen int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

func capList(in []string, max int) []string {
	out := make([]string, 0, max)
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, sanitize(s, "", maxTopicsLen))
		if len(out) == max {
			break
		}
	}
	return out
}

// stripFences removes a markdown code fence wrapper some models put
// around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
