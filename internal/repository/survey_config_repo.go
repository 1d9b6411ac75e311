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
	surveyConfigsCollection = "survey_configs"
	settingsCollection      = "system_settings"
	globalSettingsID        = "global"
)

// SurveyConfigRepo handles MongoDB operations for per-survey configuration
type SurveyConfigRepo interface {
	GetBySurveyID(ctx context.Context, surveyID string) (*model.SurveyConfig, error)
	Upsert(ctx context.Context, cfg *model.SurveyConfig) error
}

type surveyConfigRepo struct {
	collection *mongo.Collection
}

// NewSurveyConfigRepo creates a new survey config repository
func NewSurveyConfigRepo(db *mongo.Database) SurveyConfigRepo {
	return &surveyConfigRepo{
		collection: db.Collection(surveyConfigsCollection),
	}
}

func (r *surveyConfigRepo) GetBySurveyID(ctx context.Context, surveyID string) (*model.SurveyConfig, error) {
	var cfg model.SurveyConfig
	err := r.collection.FindOne(ctx, bson.M{"survey_id": surveyID}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *surveyConfigRepo) Upsert(ctx context.Context, cfg *model.SurveyConfig) error {
	cfg.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"survey_id": cfg.SurveyID}, cfg, opts)
	return err
}

// SettingsRepo reads and writes the process-wide settings document
type SettingsRepo interface {
	// Snapshot reads the settings once; callers thread the value through a request.
	Snapshot(ctx context.Context) (model.SystemConfig, error)
	SetMergeEnabled(ctx context.Context, enabled bool) error
}

type settingsRepo struct {
	collection          *mongo.Collection
	defaultMergeEnabled bool
}

// NewSettingsRepo creates a new settings repository. defaultMergeEnabled
// applies until an admin writes the settings document.
func NewSettingsRepo(db *mongo.Database, defaultMergeEnabled bool) SettingsRepo {
	return &settingsRepo{
		collection:          db.Collection(settingsCollection),
		defaultMergeEnabled: defaultMergeEnabled,
	}
}

func (r *settingsRepo) Snapshot(ctx context.Context) (model.SystemConfig, error) {
	var settings model.SystemSettings
	err := r.collection.FindOne(ctx, bson.M{"_id": globalSettingsID}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return model.SystemConfig{MergeEnabled: r.defaultMergeEnabled}, nil
	}
	if err != nil {
		return model.SystemConfig{}, err
	}
	return model.SystemConfig{MergeEnabled: settings.MergeEnabled}, nil
}

func (r *settingsRepo) SetMergeEnabled(ctx context.Context, enabled bool) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"merge_enabled": enabled, "updated_at": time.Now()}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": globalSettingsID}, update, opts)
	return err
}
