package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frioserv/maintenance-service/internal/api/handlers"
	"github.com/frioserv/maintenance-service/internal/service"
)

// NewRouter builds the HTTP router for the maintenance-service.
func NewRouter(svc *service.BookingService) http.Handler {
	r := chi.NewRouter()

	booking := handlers.NewBookingHandler(svc)

	// Booking endpoints
	r.Route("/orders", func(r chi.Router) {
		r.Post("/quote", booking.Quote)
		r.Post("/", booking.Book)
		r.Post("/redeem", booking.Redeem)
		r.Post("/{orderID}/confirm", booking.Confirm)
		r.Post("/{orderID}/complete", booking.Complete)
		r.Post("/{orderID}/void", booking.Void)
	})

	// Dashboard endpoints
	r.Get("/clients/{clientID}/unit-status", booking.UnitStatuses)

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Post("/blackouts", booking.CreateBlackout)
		r.Get("/blackouts", booking.ListBlackouts)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
