package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries everything NewRouter needs.
type RouterConfig struct {
	Logger      *zap.Logger
	JWTSecret   []byte
	Experiences *ExperienceHandler
	Bookings    *BookingHandler
}

// NewRouter builds the API router. Everything except the health endpoints
// requires a bearer token.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Get("/ping", Ping)

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(cfg.JWTSecret, cfg.Logger))

		r.Route("/experiences", func(r chi.Router) {
			r.Post("/", cfg.Experiences.CreateExperience)
			r.Get("/", cfg.Experiences.ListExperiences)
			r.Get("/{id}", cfg.Experiences.GetExperience)
			r.Put("/{id}/activate", cfg.Experiences.ActivateExperience)
			r.Post("/{id}/request-delete", cfg.Experiences.RequestDeletion)
			r.Delete("/{id}", cfg.Experiences.DeleteExperience)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", cfg.Bookings.CreateBooking)
			r.Get("/my", cfg.Bookings.ListMyBookings)
			r.Get("/{id}", cfg.Bookings.GetBooking)
			r.Get("/{id}/tickets", cfg.Bookings.DownloadTickets)
			r.Put("/{id}/cancel", cfg.Bookings.CancelBooking)
		})

		r.Route("/chefs/{id}", func(r chi.Router) {
			r.Get("/experiences", cfg.Experiences.ListChefExperiences)
			r.Get("/bookings", cfg.Bookings.ListChefBookings)
		})
	})

	return r
}
