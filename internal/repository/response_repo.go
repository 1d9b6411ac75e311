package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveypulse/internal/model"
)

const responsesCollection = "responses"

// ResponseRepo handles MongoDB operations for survey submissions
type ResponseRepo interface {
	Create(ctx context.Context, response *model.SurveyResponse) error
	GetByID(ctx context.Context, id string) (*model.SurveyResponse, error)
	GetBySurveyID(ctx context.Context, surveyID string, limit int64) ([]*model.SurveyResponse, error)
	AttachOutcome(ctx context.Context, id string, evaluation *model.EvaluationResult, redirect *model.RedirectOutcome) error
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection(responsesCollection),
	}
}

func (r *responseRepo) Create(ctx context.Context, response *model.SurveyResponse) error {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, response)
	if err != nil {
		return err
	}
	response.ID = insertedID(result)
	return nil
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.SurveyResponse, error) {
	var response model.SurveyResponse
	err := r.collection.FindOne(ctx, idFilter(id)).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepo) GetBySurveyID(ctx context.Context, surveyID string, limit int64) ([]*model.SurveyResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var responses []*model.SurveyResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepo) AttachOutcome(ctx context.Context, id string, evaluation *model.EvaluationResult, redirect *model.RedirectOutcome) error {
	update := bson.M{"$set": bson.M{"evaluation": evaluation, "redirect": redirect}}
	_, err := r.collection.UpdateOne(ctx, idFilter(id), update)
	return err
}
