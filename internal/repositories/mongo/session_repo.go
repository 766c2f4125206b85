package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/utils"
)

// SessionRepository owns persisted interview sessions. Mutations are
// targeted $set/$push updates against the document keyed by session_id;
// concurrent writers race with last-write-wins semantics.
type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	AppendQuestions(ctx context.Context, sessionID string, questions []models.QuestionRecord) error
	SetResponse(ctx context.Context, sessionID string, index int, response string, at time.Time) error
	SetEvaluation(ctx context.Context, sessionID string, index int, ev models.Evaluation, at time.Time) error
	SetFeedback(ctx context.Context, sessionID string, fb models.OverallFeedback, endedAt time.Time, duration int64) error
	SetStatus(ctx context.Context, sessionID string, status models.SessionStatus, endedAt *time.Time, duration int64) error
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]models.InterviewSession, int64, error)
	ListCompletedByOwner(ctx context.Context, ownerID string) ([]models.InterviewSession, error)
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("interview_sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	if s.StartTime.IsZero() {
		s.StartTime = time.Now().UTC()
	}
	if s.Questions == nil {
		s.Questions = []models.QuestionRecord{}
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) AppendQuestions(ctx context.Context, sessionID string, questions []models.QuestionRecord) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"questions": bson.M{"$each": questions}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) SetResponse(ctx context.Context, sessionID string, index int, response string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			fmt.Sprintf("questions.%d.response", index):  response,
			fmt.Sprintf("questions.%d.timestamp", index): at.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) SetEvaluation(ctx context.Context, sessionID string, index int, ev models.Evaluation, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			fmt.Sprintf("questions.%d.evaluation", index): ev,
			fmt.Sprintf("questions.%d.timestamp", index):  at.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) SetFeedback(ctx context.Context, sessionID string, fb models.OverallFeedback, endedAt time.Time, duration int64) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"feedback": fb,
			"status":   models.StatusCompleted,
			"end_time": endedAt.UTC(),
			"duration": duration,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus, endedAt *time.Time, duration int64) error {
	set := bson.M{"status": status}
	if endedAt != nil {
		set["end_time"] = endedAt.UTC()
		set["duration"] = duration
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]models.InterviewSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	filter := bson.M{"owner_id": ownerID}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	// responses and evaluations are stripped for list views
	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetSkip(int64((page-1)*limit)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"questions.response":   0,
			"questions.evaluation": 0,
		}),
	)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.InterviewSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *sessionRepo) ListCompletedByOwner(ctx context.Context, ownerID string) ([]models.InterviewSession, error) {
	cur, err := r.col.Find(ctx, bson.M{
		"owner_id": ownerID,
		"status":   models.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.InterviewSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
