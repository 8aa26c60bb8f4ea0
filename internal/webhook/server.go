// Package webhook implements the conversion and validation HTTP endpoints
// a Rollout's CustomResourceDefinition points the API server at: POST
// /convert (spec.md §4.14, apiextensions.k8s.io/v1 ConversionReview) and
// POST /validate (spec.md §4.1, admission.k8s.io/v1 AdmissionReview). Both
// are plain chi handlers rather than controller-runtime's built-in webhook
// server, so they share one HTTP idiom with internal/healthz.
package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/internal/validation"
)

// Server bundles the conversion and validation handlers behind one chi
// router; the optional schema validator is used by /validate only.
type Server struct {
	Router *chi.Mux

	ValidationPolicy validation.Policy
	Schema           *SchemaValidator
	Log              *logrus.Entry
}

// NewServer wires the router. corsOrigins mirrors the teacher's
// CORS_ALLOWED_ORIGINS convention (a comma-separated allow-list, "*" for
// any origin); schema may be nil to skip OpenAPI body validation.
func NewServer(policy validation.Policy, schema *SchemaValidator, corsOrigins []string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.New().WithField("component", "webhook")
	}
	s := &Server{ValidationPolicy: policy, Schema: schema, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Post("/validate", s.handleValidate)
	r.Post("/convert", s.handleConvert)
	s.Router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
