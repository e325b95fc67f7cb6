package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

// RouterDeps holds everything the HTTP surface is built from.
type RouterDeps struct {
	Auth           *AuthHandler
	Registration   *RegistrationHandler
	Requests       *RequestHandler
	Donations      *DonationHandler
	Donors         *DonorHandler
	Health         *HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(d.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, domain.NewError(domain.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed"})
	})

	// Health endpoints (OpenShift compatible)
	r.Get("/health", d.Health.Health)
	r.Get("/health/ready", d.Health.Ready)
	r.Get("/health/live", d.Health.Live)

	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	auth := d.AuthMiddleware
	donorOnly := auth.RequireRole(domain.RoleDonor)
	clientOnly := auth.RequireRole(domain.RoleClient)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", d.Registration.Register)
		r.Post("/login", d.Auth.Login)
		r.With(auth.Authenticate).Post("/logout", d.Auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/blood-requests", func(r chi.Router) {
			r.With(clientOnly).Post("/", d.Requests.Create)
			r.With(auth.RequireRole(domain.RoleClient, domain.RoleDonor)).Get("/", d.Requests.List)
			r.Get("/{id}", d.Requests.Get)
			r.With(donorOnly).Post("/{id}/accept", d.Requests.Accept)
			r.With(donorOnly).Post("/{id}/arrived", d.Requests.Arrived)
			r.With(clientOnly).Put("/{id}/cancel", d.Requests.Cancel)
		})

		r.Route("/donations", func(r chi.Router) {
			r.Use(donorOnly)
			r.Post("/complete/{requestId}", d.Donations.Complete)
			r.Get("/rewards", d.Donations.Rewards)
		})

		r.Route("/users/donor-details", func(r chi.Router) {
			r.Use(donorOnly)
			r.Get("/", d.Donors.Details)
			r.Put("/", d.Donors.UpdateDetails)
		})
	})

	return r
}
