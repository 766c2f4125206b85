package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InterviewType string

const (
	InterviewTechnical    InterviewType = "technical"
	InterviewBehavioral   InterviewType = "behavioral"
	InterviewMixed        InterviewType = "mixed"
	InterviewCustom       InterviewType = "custom"
	InterviewSystemDesign InterviewType = "system-design"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillExpert       SkillLevel = "expert"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// InterviewSession is one practice attempt. SessionID is the correlation
// key across REST and WebSocket; the Mongo _id is never exposed.
type InterviewSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"sessionId"` // uuid v4
	OwnerID   string             `bson:"owner_id,omitempty" json:"ownerId,omitempty"`

	JobPosition   string        `bson:"job_position" json:"jobPosition"`
	InterviewType InterviewType `bson:"interview_type" json:"interviewType"`
	SkillLevel    SkillLevel    `bson:"skill_level" json:"skillLevel"`
	ResumeID      string        `bson:"resume_id,omitempty" json:"resumeId,omitempty"`

	Questions []QuestionRecord `bson:"questions" json:"questions"`
	Feedback  *OverallFeedback `bson:"feedback,omitempty" json:"feedback,omitempty"`

	Status    SessionStatus `bson:"status" json:"status"`
	StartTime time.Time     `bson:"start_time" json:"startTime"`
	EndTime   *time.Time    `bson:"end_time,omitempty" json:"endTime,omitempty"`

	// Duration in seconds, stamped whenever status becomes completed.
	Duration int64 `bson:"duration,omitempty" json:"duration,omitempty"`

	// IsRecovery marks a synthetic session returned for a dangling but
	// syntactically valid session id. Never persisted as true.
	IsRecovery bool `bson:"-" json:"isRecoverySession,omitempty"`
}

// QuestionRecord is one question/response/evaluation unit embedded in a
// session. Evaluation stays nil until the response has been scored.
type QuestionRecord struct {
	Question       string      `bson:"question" json:"question"`
	ExpectedTopics string      `bson:"expected_topics" json:"expectedTopics"`
	Response       string      `bson:"response" json:"response"`
	Evaluation     *Evaluation `bson:"evaluation,omitempty" json:"evaluation,omitempty"`
	Timestamp      time.Time   `bson:"timestamp" json:"timestamp"`
}

func (q QuestionRecord) Evaluated() bool {
	return q.Response != "" && q.Evaluation != nil
}

type Evaluation struct {
	Score        int      `bson:"score" json:"score"` // clamped to [1,10]
	Feedback     string   `bson:"feedback" json:"feedback"`
	Strengths    []string `bson:"strengths" json:"strengths"`
	Improvements []string `bson:"improvements" json:"improvements"`
	Source       string   `bson:"source,omitempty" json:"source,omitempty"` // llm|fallback
}

type OverallFeedback struct {
	OverallScore        int      `bson:"overall_score" json:"overallScore"`
	Summary             string   `bson:"summary" json:"summary"`
	Strengths           []string `bson:"strengths" json:"strengths"`
	AreasForImprovement []string `bson:"areas_for_improvement" json:"areasForImprovement"`
	Recommendations     []string `bson:"recommendations" json:"recommendations"`
	Source              string   `bson:"source,omitempty" json:"source,omitempty"`
}
