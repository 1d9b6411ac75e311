package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveypulse/internal/model"
)

const auditCollection = "postback_logs"

// AuditFilter narrows an audit listing. Zero values match everything.
type AuditFilter struct {
	Type     model.AuditType
	SurveyID string
	ShareID  string
	Status   model.AuditStatus
	Limit    int64
}

// AuditRepo handles MongoDB operations for the append-only postback log
type AuditRepo interface {
	InsertMany(ctx context.Context, entries []model.AuditLogEntry) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, error)
}

type auditRepo struct {
	collection *mongo.Collection
}

// NewAuditRepo creates a new audit log repository
func NewAuditRepo(db *mongo.Database) AuditRepo {
	return &auditRepo{
		collection: db.Collection(auditCollection),
	}
}

func (r *auditRepo) InsertMany(ctx context.Context, entries []model.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func (r *auditRepo) List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.SurveyID != "" {
		query["survey_id"] = filter.SurveyID
	}
	if filter.ShareID != "" {
		query["share_id"] = filter.ShareID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []model.AuditLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
