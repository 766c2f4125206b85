package generator

import (
	"fmt"
	"strings"

	"github.com/deepinterview/deepinterview/internal/models"
)

// mockPrefix marks synthetic content so the UI can tell the candidate
// the question did not come from the live model.
const mockPrefix = "[MOCK] "

func fallbackQuestions(jobPosition string, typ models.InterviewType) QuestionSet {
	pool := questionPool(jobPosition, typ)
	if len(pool) > maxQuestions {
		pool = pool[:maxQuestions]
	}
	out := make([]Question, len(pool))
	for i, q := range pool {
		out[i] = Question{
			Question:       mockPrefix + q.Question,
			ExpectedTopics: q.ExpectedTopics,
		}
	}
	return QuestionSet{Questions: out, Source: SourceFallback}
}

func questionPool(jobPosition string, typ models.InterviewType) []Question {
	switch typ {
	case models.InterviewTechnical:
		return []Question{
			{
				Question:       fmt.Sprintf("How would you approach solving a complex scalability issue in a %s role?", jobPosition),
				ExpectedTopics: "System design, performance optimization, scalability patterns, monitoring",
			},
			{
				Question:       "Explain a challenging technical problem you've solved and your approach to debugging it.",
				ExpectedTopics: "Problem-solving methodology, debugging techniques, root cause analysis",
			},
			{
				Question:       fmt.Sprintf("How do you stay updated with the latest technologies relevant to %s?", jobPosition),
				ExpectedTopics: "Continuous learning, technology trends, professional development",
			},
			{
				Question:       "Describe your experience with testing strategies and quality assurance practices.",
				ExpectedTopics: "Testing methodologies, automation, code quality, best practices",
			},
			{
				Question:       "What considerations do you make when designing a system for high availability?",
				ExpectedTopics: "System reliability, fault tolerance, monitoring, disaster recovery",
			},
		}
	case models.InterviewBehavioral:
		return []Question{
			{
				Question:       "Tell me about a time you had to work under pressure to meet a tight deadline.",
				ExpectedTopics: "Time management, stress handling, prioritization, communication",
			},
			{
				Question:       "Describe a situation where you had to collaborate with difficult team members.",
				ExpectedTopics: "Teamwork, conflict resolution, communication, leadership",
			},
			{
				Question:       "Give an example of when you had to learn something completely new for a project.",
				ExpectedTopics: "Learning agility, adaptability, growth mindset, problem-solving",
			},
			{
				Question:       "Tell me about a mistake you made and how you handled it.",
				ExpectedTopics: "Accountability, learning from failure, communication, improvement",
			},
			{
				Question:       "Describe a time when you had to convince others to adopt your idea or approach.",
				ExpectedTopics: "Influence, communication, persuasion, leadership",
			},
		}
	case models.InterviewSystemDesign:
		return []Question{
			{
				Question:       fmt.Sprintf("Design a service a %s team would own: walk me through your high-level architecture.", jobPosition),
				ExpectedTopics: "Requirements gathering, component boundaries, data flow, trade-offs",
			},
			{
				Question:       "How would you design the data model and storage layer for a system with heavy read traffic?",
				ExpectedTopics: "Data modeling, caching, replication, read/write separation",
			},
			{
				Question:       "How do you handle failure of a downstream dependency in a distributed system?",
				ExpectedTopics: "Timeouts, retries, circuit breakers, graceful degradation",
			},
			{
				Question:       "Walk me through how you would scale a system from a thousand to a million users.",
				ExpectedTopics: "Horizontal scaling, bottleneck analysis, load balancing, capacity planning",
			},
		}
	default: // mixed and custom share the general pool
		return []Question{
			{
				Question:       fmt.Sprintf("Walk me through your background and how it relates to this %s position.", jobPosition),
				ExpectedTopics: "Career progression, relevant experience, skills alignment, motivation",
			},
			{
				Question:       fmt.Sprintf("What interests you most about working as a %s at our company?", jobPosition),
				ExpectedTopics: "Company knowledge, role understanding, career goals, enthusiasm",
			},
			{
				Question:       "How do you approach learning new technologies or methodologies?",
				ExpectedTopics: "Learning strategy, adaptability, curiosity, self-development",
			},
			{
				Question:       "Describe your ideal working environment and team dynamics.",
				ExpectedTopics: "Work preferences, collaboration style, team fit, culture alignment",
			},
		}
	}
}

// fallbackEvaluation scores on response length alone. The bands are
// deliberately coarse: the point is a plausible number, not assessment.
func fallbackEvaluation(response string) models.Evaluation {
	return models.Evaluation{
		Score:    lengthScore(response),
		Feedback: mockPrefix + "Your response demonstrates good understanding. You covered relevant points and showed clear thinking. Consider adding more specific examples and technical details to strengthen your answer.",
		Strengths: []string{
			"Clear communication",
			"Relevant content",
			"Good structure",
		},
		Improvements: []string{
			"Add more specific examples",
			"Include technical details",
			"Consider edge cases",
		},
		Source: SourceFallback,
	}
}

func lengthScore(response string) int {
	words := len(strings.Fields(response))
	switch {
	case words < 10:
		return 3
	case words < 30:
		return 5
	case words < 50:
		return 6
	case words < 100:
		return 7
	default:
		return 8
	}
}

func fallbackFeedback() models.OverallFeedback {
	return models.OverallFeedback{
		OverallScore: 7,
		Summary:      mockPrefix + "The candidate performed well overall, demonstrating good technical knowledge and communication skills.",
		Strengths: []string{
			"Technical expertise",
			"Problem-solving approach",
			"Clear communication",
		},
		AreasForImprovement: []string{
			"Could provide more specific examples",
			"Consider discussing alternative approaches",
		},
		Recommendations: []string{
			"Practice more scenario-based questions",
			"Prepare more concrete examples",
		},
		Source: SourceFallback,
	}
}

func fallbackResumeAnalysis() ResumeAnalysis {
	return ResumeAnalysis{
		Summary:            mockPrefix + "The candidate has a relevant background for this position.",
		Skills:             []string{"Unable to determine"},
		Strengths:          []string{"Technical skills", "Project experience"},
		Weaknesses:         []string{"Unable to determine"},
		SuggestedPositions: []string{"General experience"},
		PersonalizedQuestions: []string{
			"Could you walk me through your professional experience?",
			"What are your key skills relevant to this position?",
		},
		Source: SourceFallback,
	}
}
