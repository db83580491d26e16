package api

import (
	"net/http"
	"time"

	"github.com/cybernetisk/okotools/pkg/emulator/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the emulator routes. The API lives under /v2.
func NewRouter(st *store.Store) http.Handler {
	sessionHandler := NewSessionHandler(st)
	ledgerHandler := NewLedgerHandler(st)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v2", func(r chi.Router) {
		// Session endpoint (no authentication required).
		r.Put("/token/session/*", sessionHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(st))

			r.Get("/department", ledgerHandler.ListDepartments)
			r.Get("/project", ledgerHandler.ListProjects)

			r.Route("/ledger", func(r chi.Router) {
				r.Get("/account", ledgerHandler.ListAccounts)
				r.Get("/posting", ledgerHandler.ListPostings)

				r.Route("/voucher", func(r chi.Router) {
					r.Get("/", ledgerHandler.ListVouchers)
					r.Post("/", ledgerHandler.CreateVoucher)
					r.Post("/importGbat10", ledgerHandler.ImportGBAT10)
				})
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
