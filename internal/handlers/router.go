package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"coreledger/internal/middleware"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/auth/token", h.IssueToken)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/accounts", h.OpenAccount)
		r.Get("/accounts/{number}", h.GetAccount)
		r.Post("/accounts/{number}/status", h.SetAccountStatus)
		r.Get("/accounts/{number}/transactions", h.ListAccountTransactions)
		r.Get("/customers/{id}/accounts", h.ListCustomerAccounts)
		r.Post("/transactions/deposit", h.Deposit)
		r.Post("/transactions/withdraw", h.Withdraw)
		r.Post("/transactions/transfer", h.Transfer)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Post("/identifiers/validate", h.ValidateIdentifier)
		r.Get("/audit", h.ListAuditEvents)
	})

	router.Get("/ws/audit", h.WSAudit)
	return router
}
