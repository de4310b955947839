package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchify/searchify/pkg/health"
	"github.com/searchify/searchify/pkg/httputil"
	"github.com/searchify/searchify/pkg/middleware"
)

// NewRouter wires the book endpoints, health endpoints, and the metrics
// endpoint behind the standard middleware chain.
func NewRouter(handler *BookHandler, healthHandler *health.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("searchify"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/search", handler.Search)
		r.Get("/suggestion", handler.Suggest)
		r.Get("/categories", handler.Categories)
		r.Get("/publishers", handler.Publishers)
		r.Get("/TopBook", handler.TopBooks)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/", handler.Create)
			r.Put("/{isbn}", handler.Update)
		})

		r.Get("/{isbn}", handler.GetByISBN)
		r.Delete("/{isbn}", handler.Delete)
	})

	return r
}

// ContentTypeJSON rejects write requests whose body is not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
