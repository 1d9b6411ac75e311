package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"surveypulse/internal/model"
)

const offersCollection = "offers"

// OfferRepo handles MongoDB operations for partner offers
type OfferRepo interface {
	Create(ctx context.Context, offer *model.Offer) (string, error)
	GetByID(ctx context.Context, id string) (*model.Offer, error)
}

type offerRepo struct {
	collection *mongo.Collection
}

// NewOfferRepo creates a new offer repository
func NewOfferRepo(db *mongo.Database) OfferRepo {
	return &offerRepo{
		collection: db.Collection(offersCollection),
	}
}

func (r *offerRepo) Create(ctx context.Context, offer *model.Offer) (string, error) {
	if offer.Status == "" {
		offer.Status = model.StatusActive
	}
	result, err := r.collection.InsertOne(ctx, offer)
	if err != nil {
		return "", err
	}
	offer.ID = insertedID(result)
	return offer.ID, nil
}

func (r *offerRepo) GetByID(ctx context.Context, id string) (*model.Offer, error) {
	var offer model.Offer
	err := r.collection.FindOne(ctx, idFilter(id)).Decode(&offer)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}
