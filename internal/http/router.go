package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fundbridge-gpt/internal/handlers"
	"fundbridge-gpt/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	SummarizeService service.SummarizeService
	ChatService      service.ChatService
	DocumentService  service.DocumentService
	Sessions         service.SessionManager

	// HealthChecks are run by GET /api/health.
	HealthChecks []handlers.HealthCheck

	// DefaultModel is used for sessions created without a model.
	DefaultModel string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	homeHandler := handlers.NewHomeHandler()
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks...)
	catalogHandler := handlers.NewCatalogHandler(deps.DefaultModel)
	summarizeHandler := handlers.NewSummarizeHandler(deps.SummarizeService)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.DefaultModel)
	chatHandler := handlers.NewChatHandler(deps.ChatService, deps.Sessions)
	documentHandler := handlers.NewDocumentHandler(deps.DocumentService, deps.Sessions)

	r.Method(http.MethodGet, "/", homeHandler)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/models", catalogHandler.Models)
			r.Get("/prompts", catalogHandler.Prompts)
			r.Method(http.MethodPost, "/summarize", summarizeHandler)

			r.Post("/sessions", sessionHandler.Create)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Use(SessionLogger)

				r.Get("/", sessionHandler.Get)
				r.Patch("/", sessionHandler.Update)
				r.Delete("/", sessionHandler.Delete)

				r.Post("/documents", documentHandler.Attach)
				r.Post("/doc-chat", documentHandler.ChatWithDoc)
				r.Post("/ask", documentHandler.Ask)
				r.Method(http.MethodPost, "/chat", chatHandler)
			})
		})
	})

	return r
}
