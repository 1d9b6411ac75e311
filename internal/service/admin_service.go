package service

import (
	"context"
	"log/slog"

	"surveypulse/internal/cache"
	"surveypulse/internal/model"
	"surveypulse/internal/repository"
)

const defaultTopFailing = 10

// StatsView is the delivery dashboard for one scope
type StatsView struct {
	*cache.DeliveryStats
	TopFailing []cache.RecipientFailures `json:"topFailing"`
}

// AdminService exposes the system switches and the postback audit trail
type AdminService struct {
	settings repository.SettingsRepo
	audit    repository.AuditRepo
	stats    cache.DeliveryStatsCache
	logger   *slog.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(settings repository.SettingsRepo, audit repository.AuditRepo, stats cache.DeliveryStatsCache, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{settings: settings, audit: audit, stats: stats, logger: logger}
}

// Settings returns the current system settings
func (s *AdminService) Settings(ctx context.Context) (model.SystemConfig, error) {
	return s.settings.Snapshot(ctx)
}

// SetMergeEnabled flips the global partner-offer redirect switch
func (s *AdminService) SetMergeEnabled(ctx context.Context, enabled bool) (model.SystemConfig, error) {
	if err := s.settings.SetMergeEnabled(ctx, enabled); err != nil {
		return model.SystemConfig{}, err
	}
	s.logger.Info("merge switch changed", "merge_enabled", enabled)
	return s.settings.Snapshot(ctx)
}

// AuditLog lists audit entries, newest first
func (s *AdminService) AuditLog(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLogEntry, error) {
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.AuditLogEntry{}
	}
	return entries, nil
}

// Stats returns the rolling delivery counters for a survey or share
func (s *AdminService) Stats(ctx context.Context, surveyID, shareID string) (*StatsView, error) {
	scope := cache.StatsScope(model.AuditLogEntry{SurveyID: surveyID, ShareID: shareID})
	stats, err := s.stats.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	top, err := s.stats.TopFailing(ctx, scope, defaultTopFailing)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []cache.RecipientFailures{}
	}
	return &StatsView{DeliveryStats: stats, TopFailing: top}, nil
}
