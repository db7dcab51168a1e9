// Package handler exposes the survey service over HTTP
package handler

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

type (
	SurveyService interface {
		CreateSurvey(ctx context.Context, sess session.Session, in entity.SurveyInput) (*entity.Survey, error)
		GetSurvey(ctx context.Context, sess session.Session, id string) (*entity.Survey, error)
		ListSurveys(ctx context.Context, sess session.Session) ([]entity.Survey, error)
		UpdateSurvey(ctx context.Context, sess session.Session, id string, in entity.SurveyInput) (*entity.Survey, error)
		DeleteSurvey(ctx context.Context, sess session.Session, id string) error
		AddCollaborator(ctx context.Context, sess session.Session, id, userID string) (*entity.Survey, error)
		MoveQuestion(ctx context.Context, sess session.Session, id, questionID string, newIndex int) (*entity.Survey, error)

		VisibleQuestions(ctx context.Context, sess session.Session, id string, answers branch.Answers) ([]entity.Question, error)
		SubmitResponse(ctx context.Context, sess session.Session, id string, in entity.SubmissionInput) (*entity.SubmitReceipt, error)
		Results(ctx context.Context, sess session.Session, id string) (*entity.Results, error)
		Analytics(ctx context.Context, sess session.Session, id string) (*entity.SurveyAnalytics, error)

		ListTemplates(ctx context.Context, category string) ([]entity.Template, error)
		UseTemplate(ctx context.Context, sess session.Session, templateID string) (*entity.Survey, error)
		CreateTemplate(ctx context.Context, sess session.Session, template *entity.Template) (*entity.Template, error)
	}

	// TokenParser turns a bearer token into a session
	TokenParser interface {
		Parse(token string) (session.Session, error)
	}

	Handler struct {
		service SurveyService
		tokens  TokenParser
		logger  *logger.Logger
		proxies []netip.Prefix
	}
)

func Init(service SurveyService, tokens TokenParser, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}
}

// Routes builds the /api/v1 router with CORS, rate limiting and session
// middleware in front of it
func (h *Handler) Routes(cfg *config.Config) http.Handler {
	h.proxies = trustedProxies(cfg.HTTP.TrustedProxies)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "The API endpoint you are trying to reach does not exist")
	})

	limit := rate.Inf
	if cfg.HTTP.RatePerSecond > 0 {
		limit = rate.Limit(cfg.HTTP.RatePerSecond)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.logRequests)
	api.Use(rateLimit(rate.NewLimiter(limit, cfg.HTTP.RateBurst)))
	api.Use(h.authenticate)

	api.HandleFunc("/surveys", h.ListSurveys).Methods(http.MethodGet)
	api.HandleFunc("/surveys", h.CreateSurvey).Methods(http.MethodPost)
	api.HandleFunc("/surveys/{id}", h.GetSurvey).Methods(http.MethodGet)
	api.HandleFunc("/surveys/{id}", h.UpdateSurvey).Methods(http.MethodPut)
	api.HandleFunc("/surveys/{id}", h.DeleteSurvey).Methods(http.MethodDelete)
	api.HandleFunc("/surveys/{id}/questions/{questionId}/move", h.MoveQuestion).Methods(http.MethodPost)
	api.HandleFunc("/surveys/{id}/collaborators", h.AddCollaborator).Methods(http.MethodPost)

	api.HandleFunc("/surveys/{id}/visible", h.VisibleQuestions).Methods(http.MethodPost)
	api.HandleFunc("/surveys/{id}/respond", h.SubmitResponse).Methods(http.MethodPost)
	api.HandleFunc("/surveys/{id}/results", h.Results).Methods(http.MethodGet)
	api.HandleFunc("/surveys/{id}/analytics", h.Analytics).Methods(http.MethodGet)

	api.HandleFunc("/templates", h.ListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", h.CreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}/use", h.UseTemplate).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)
}
