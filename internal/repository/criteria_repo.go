package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveypulse/internal/model"
)

const criteriaCollection = "criteria_sets"

// CriteriaRepo handles MongoDB operations for criteria sets
type CriteriaRepo interface {
	Create(ctx context.Context, set *model.CriteriaSet) (string, error)
	GetByID(ctx context.Context, id string) (*model.CriteriaSet, error)
	GetByName(ctx context.Context, name string) (*model.CriteriaSet, error)
	List(ctx context.Context) ([]*model.CriteriaSet, error)
	Update(ctx context.Context, set *model.CriteriaSet) error
}

type criteriaRepo struct {
	collection *mongo.Collection
}

// NewCriteriaRepo creates a new criteria set repository
func NewCriteriaRepo(db *mongo.Database) CriteriaRepo {
	return &criteriaRepo{
		collection: db.Collection(criteriaCollection),
	}
}

func (r *criteriaRepo) Create(ctx context.Context, set *model.CriteriaSet) (string, error) {
	set.IsDynamic = false
	result, err := r.collection.InsertOne(ctx, set)
	if err != nil {
		return "", err
	}
	set.ID = insertedID(result)
	return set.ID, nil
}

func (r *criteriaRepo) GetByID(ctx context.Context, id string) (*model.CriteriaSet, error) {
	return r.findOne(ctx, idFilter(id))
}

// GetByName prefers an active set when several share a name.
func (r *criteriaRepo) GetByName(ctx context.Context, name string) (*model.CriteriaSet, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "isActive", Value: -1}})
	return r.findOne(ctx, bson.M{"name": name}, opts)
}

func (r *criteriaRepo) List(ctx context.Context) ([]*model.CriteriaSet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sets []*model.CriteriaSet
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *criteriaRepo) Update(ctx context.Context, set *model.CriteriaSet) error {
	doc := *set
	doc.ID = "" // _id is immutable; omitted from the replacement
	_, err := r.collection.ReplaceOne(ctx, idFilter(set.ID), doc)
	return err
}

func (r *criteriaRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.CriteriaSet, error) {
	var set model.CriteriaSet
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&set)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}
