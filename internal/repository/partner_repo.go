package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveypulse/internal/model"
)

const (
	partnersCollection = "partners"
	mappingsCollection = "survey_partner_mappings"
)

// PartnerRepo handles MongoDB operations for legacy partners
type PartnerRepo interface {
	Create(ctx context.Context, partner *model.LegacyPartner) (string, error)
	GetByID(ctx context.Context, id string) (*model.LegacyPartner, error)
	ListActive(ctx context.Context) ([]model.LegacyPartner, error)
}

type partnerRepo struct {
	collection *mongo.Collection
}

// NewPartnerRepo creates a new partner repository
func NewPartnerRepo(db *mongo.Database) PartnerRepo {
	return &partnerRepo{
		collection: db.Collection(partnersCollection),
	}
}

func (r *partnerRepo) Create(ctx context.Context, partner *model.LegacyPartner) (string, error) {
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = time.Now()
	}
	if partner.Status == "" {
		partner.Status = model.StatusActive
	}
	result, err := r.collection.InsertOne(ctx, partner)
	if err != nil {
		return "", err
	}
	partner.ID = insertedID(result)
	return partner.ID, nil
}

func (r *partnerRepo) GetByID(ctx context.Context, id string) (*model.LegacyPartner, error) {
	var partner model.LegacyPartner
	err := r.collection.FindOne(ctx, idFilter(id)).Decode(&partner)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *partnerRepo) ListActive(ctx context.Context) ([]model.LegacyPartner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": model.StatusActive}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var partners []model.LegacyPartner
	if err := cursor.All(ctx, &partners); err != nil {
		return nil, err
	}
	return partners, nil
}

// MappingRepo handles MongoDB operations for survey-partner mappings
type MappingRepo interface {
	Create(ctx context.Context, mapping *model.PartnerMapping) (string, error)
	ListActiveBySurvey(ctx context.Context, surveyID string) ([]model.PartnerMapping, error)
}

type mappingRepo struct {
	collection *mongo.Collection
}

// NewMappingRepo creates a new mapping repository
func NewMappingRepo(db *mongo.Database) MappingRepo {
	return &mappingRepo{
		collection: db.Collection(mappingsCollection),
	}
}

func (r *mappingRepo) Create(ctx context.Context, mapping *model.PartnerMapping) (string, error) {
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now()
	}
	if mapping.Status == "" {
		mapping.Status = model.StatusActive
	}
	result, err := r.collection.InsertOne(ctx, mapping)
	if err != nil {
		return "", err
	}
	mapping.ID = insertedID(result)
	return mapping.ID, nil
}

func (r *mappingRepo) ListActiveBySurvey(ctx context.Context, surveyID string) ([]model.PartnerMapping, error) {
	filter := bson.M{"survey_id": surveyID, "status": model.StatusActive}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []model.PartnerMapping
	if err := cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}
