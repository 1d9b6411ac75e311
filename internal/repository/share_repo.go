package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveypulse/internal/model"
)

const sharesCollection = "postback_shares"

// ShareRepo handles MongoDB operations for inbound postback shares
type ShareRepo interface {
	Create(ctx context.Context, share *model.PostbackShare) (string, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*model.PostbackShare, error)
	List(ctx context.Context) ([]*model.PostbackShare, error)
	SetStatus(ctx context.Context, uniqueID, status string) (*model.PostbackShare, error)
	RecordUsage(ctx context.Context, uniqueID string, payload map[string]string, at time.Time) (*model.PostbackShare, error)
}

type shareRepo struct {
	collection *mongo.Collection
}

// NewShareRepo creates a new share repository
func NewShareRepo(db *mongo.Database) ShareRepo {
	return &shareRepo{
		collection: db.Collection(sharesCollection),
	}
}

func (r *shareRepo) Create(ctx context.Context, share *model.PostbackShare) (string, error) {
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	result, err := r.collection.InsertOne(ctx, share)
	if err != nil {
		return "", err
	}
	share.ID = insertedID(result)
	return share.ID, nil
}

func (r *shareRepo) GetByUniqueID(ctx context.Context, uniqueID string) (*model.PostbackShare, error) {
	var share model.PostbackShare
	err := r.collection.FindOne(ctx, bson.M{"unique_postback_id": uniqueID}).Decode(&share)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *shareRepo) List(ctx context.Context) ([]*model.PostbackShare, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var shares []*model.PostbackShare
	if err := cursor.All(ctx, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *shareRepo) SetStatus(ctx context.Context, uniqueID, status string) (*model.PostbackShare, error) {
	update := bson.M{"$set": bson.M{"status": status}}
	return r.findAndUpdate(ctx, uniqueID, update)
}

// RecordUsage uses a single $inc so concurrent callbacks never lose a count.
func (r *shareRepo) RecordUsage(ctx context.Context, uniqueID string, payload map[string]string, at time.Time) (*model.PostbackShare, error) {
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"last_used": at, "last_payload": payload},
	}
	return r.findAndUpdate(ctx, uniqueID, update)
}

func (r *shareRepo) findAndUpdate(ctx context.Context, uniqueID string, update bson.M) (*model.PostbackShare, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var share model.PostbackShare
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"unique_postback_id": uniqueID}, update, opts).Decode(&share)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}
