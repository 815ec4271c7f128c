package handler

import (
	"net/http"

	custommiddleware "github.com/bbqsrc/collectiva/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса collectiva.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/members", func(r chi.Router) {
		r.Post("/", h.RegisterMember)
		r.Put("/", h.UpdateMember)
		r.Get("/verify/{hash}", h.VerifyMember)
		r.Get("/renew/{hash}", h.MemberForRenewal)
		r.Post("/renew", h.RenewMember)
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/update", h.PayForInvoice)
		r.Post("/paypal-ipn", h.PayPalIPN)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/payments/unconfirmed", h.UnconfirmedPayments)
			r.Post("/payments/{reference}/accept", h.AcceptPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
