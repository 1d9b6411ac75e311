package repository

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"surveypulse/internal/model"
)

const usersCollection = "users"

// UserRepo handles MongoDB operations for survey creator accounts
type UserRepo interface {
	Create(ctx context.Context, user *model.User) (string, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePostbackSettings(ctx context.Context, user *model.User) error
}

type userRepo struct {
	collection *mongo.Collection
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *mongo.Database) UserRepo {
	return &userRepo{
		collection: db.Collection(usersCollection),
	}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) (string, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	user.ID = insertedID(result)
	return user.ID, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, idFilter(id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepo) UpdatePostbackSettings(ctx context.Context, user *model.User) error {
	update := bson.M{"$set": bson.M{
		"postbackUrl":       user.PostbackURL,
		"parameterMappings": user.ParameterMappings,
		"postbackMethod":    user.PostbackMethod.Normalize(),
		"includeResponses":  user.IncludeResponses,
	}}
	_, err := r.collection.UpdateOne(ctx, idFilter(user.ID), update)
	return err
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
