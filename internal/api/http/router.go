// Package http exposes the management API and the redirect endpoint itself.
package http

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redirectd/redirectd/internal/models"
	"github.com/redirectd/redirectd/pkg/middleware/recoverer"
)

// RedirectService defines the interface for the core redirect business logic.
type RedirectService interface {
	// CreateRedirect builds and stores a new redirect rule.
	CreateRedirect(ctx context.Context, params models.RedirectParams) (*models.Redirect, error)

	// GetRedirect retrieves a redirect rule by its identifier.
	GetRedirect(ctx context.Context, id int64) (*models.Redirect, error)

	// UpdateRedirectTarget changes the target path and status code of an existing rule,
	// based on the version the caller last read.
	UpdateRedirectTarget(ctx context.Context, id int64, targetURIPath string, statusCode int, version int64) (*models.Redirect, error)

	// DeleteRedirect removes a redirect rule.
	DeleteRedirect(ctx context.Context, id int64) error

	// ListRedirectsByTarget retrieves the rules pointing at a target path.
	ListRedirectsByTarget(ctx context.Context, targetURIPath, host string) ([]*models.Redirect, error)

	// ResolveRedirect matches a request path and host against the stored rules,
	// recording the hit on a match.
	ResolveRedirect(ctx context.Context, host, uriPath string) (*models.Redirect, error)
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
// The management API lives under /api/v1; every other GET falls through to the
// redirect endpoint.
func NewRouter(logger *httplog.Logger, redirectSvc RedirectService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/redirects", func(r chi.Router) {
			r.Post("/", handleCreateRedirect(redirectSvc, validate))
			r.Get("/", handleListRedirectsByTarget(redirectSvc))

			r.Route("/{redirectID}", func(r chi.Router) {
				r.Get("/", handleGetRedirect(redirectSvc))
				r.Put("/", handleUpdateRedirect(redirectSvc, validate))
				r.Delete("/", handleDeleteRedirect(redirectSvc))
			})
		})
	})

	r.Get("/*", handleRedirect(redirectSvc))

	return r
}
