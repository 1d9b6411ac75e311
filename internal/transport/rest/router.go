package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surveypulse/internal/config"
	"surveypulse/internal/postback"
	"surveypulse/internal/service"
	"surveypulse/internal/transport/rest/handler"
	"surveypulse/internal/transport/rest/middleware"
	"surveypulse/internal/transport/ws"
)

const healthTimeout = 2 * time.Second

// HealthCheck pings one backing dependency
type HealthCheck func(ctx context.Context) error

// Container holds all dependencies for the router
type Container struct {
	Server            config.ServerConfig
	Logger            *slog.Logger
	AuthService       *service.AuthService
	SurveyService     *service.SurveyService
	SubmissionService *service.SubmissionService
	ShareService      *service.ShareService
	AdminService      *service.AdminService
	Receiver          *postback.Receiver
	WSHub             *ws.Hub
	HealthChecks      map[string]HealthCheck
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService)
	submissionHandler := handler.NewSubmissionHandler(c.SubmissionService)
	shareHandler := handler.NewShareHandler(c.ShareService)
	adminHandler := handler.NewAdminHandler(c.AdminService)
	postbackHandler := handler.NewPostbackHandler(c.Receiver)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Server.AllowedOrigins, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS first so preflights never reach auth
	r.Use(middleware.CORS(c.Server))
	r.Use(middleware.RequestLogger(c.Logger))
	r.Use(middleware.Metrics)

	// Operational endpoints
	r.HandleFunc("/health", healthHandler(c.HealthChecks)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Inbound partner callbacks
	r.HandleFunc("/postback/{uniqueId}", postbackHandler.Receive).Methods("GET", "POST")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/surveys/{surveyId}/responses", submissionHandler.Submit).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/postbacks", wsHandler.AllFeed).Methods("GET")
	v1.HandleFunc("/ws/surveys/{surveyId}/postbacks", wsHandler.SurveyFeed).Methods("GET")
	v1.HandleFunc("/ws/shares/{shareId}/postbacks", wsHandler.ShareFeed).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/surveys", surveyHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/surveys/{surveyId}/config", surveyHandler.GetConfig).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/surveys/{surveyId}/config", surveyHandler.PutConfig).Methods("PUT", "OPTIONS")

	hostRoutes.HandleFunc("/criteria-sets", surveyHandler.ListCriteria).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/criteria-sets", surveyHandler.CreateCriteria).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/criteria-sets/{criteriaSetId}", surveyHandler.UpdateCriteria).Methods("PUT", "OPTIONS")

	hostRoutes.HandleFunc("/shares", shareHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/shares", shareHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/shares/{uniqueId}", shareHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/shares/{uniqueId}/revoke", shareHandler.Revoke).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/shares/{uniqueId}/activate", shareHandler.Activate).Methods("POST", "OPTIONS")

	hostRoutes.HandleFunc("/postbacks/logs", adminHandler.AuditLog).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/postbacks/stats", adminHandler.Stats).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/settings", adminHandler.GetSettings).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/settings", adminHandler.UpdateSettings).Methods("PUT", "OPTIONS")

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": overall, "dependencies": deps})
	}
}
