/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/households/*      Household, member, summary, settlement, rule, policy, budget
  /api/transactions/*    Single-transaction reads and patches
  /api/splits/*          Split recomputation
  /api/budgets/*         Budget limit updates and deletion
  /api/categories/*      Category listing and custom categories
  /api/rules/*           Rule deletion and bulk re-apply
  /api/webhooks/*        Bank feed ingestion
  /api/scenarios/*       Demo scenarios
  /api/admin/*           Admin operations (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/households", func(r chi.Router) {
			r.Get("/", h.ListHouseholds)
			r.Post("/", h.CreateHousehold)
			r.Get("/{id}", h.GetHousehold)
			r.Get("/{id}/members", h.ListMembers)
			r.Post("/{id}/members", h.CreateMember)
			r.Get("/{id}/transactions", h.ListTransactions)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/settlements", h.ListSettlements)
			r.Post("/{id}/settlements", h.CreateSettlement)
			r.Get("/{id}/rules", h.ListRules)
			r.Post("/{id}/rules", h.CreateRule)
			r.Get("/{id}/policy", h.GetHouseholdPolicy)
			r.Put("/{id}/policy", h.PutHouseholdPolicy)
			r.Get("/{id}/budgets", h.ListBudgets)
			r.Post("/{id}/budgets", h.CreateBudget)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{id}", h.GetTransaction)
			r.Patch("/{id}", h.PatchTransaction)
		})

		r.Route("/splits", func(r chi.Router) {
			r.Post("/recompute", h.RecomputeSplits)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Patch("/{id}", h.PatchBudget)
			r.Delete("/{id}", h.DeleteBudget)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/apply", h.ApplyRules)
			r.Delete("/{id}", h.DeleteRule)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/transactions", h.IngestWebhook)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
