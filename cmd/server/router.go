package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	apimiddleware "github.com/provix/provix-api/internal/api/middleware"
	"github.com/provix/provix-api/internal/telemetry"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	if len(app.config.Server.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   app.config.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", app.authHandler.Register)
		r.Post("/auth/login", app.authHandler.Login)
		r.Post("/auth/refresh", app.authHandler.RefreshToken)

		// Payment provider notifications (public, signature-verified)
		r.Post("/webhooks/payments", app.webhookHandler.HandlePaymentNotification)

		// Plan catalog is public so pricing can render before login.
		r.Get("/credits/plans", app.creditHandler.ListPlans)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(app.authMiddleware.Authenticate)

			r.Get("/credits/balance", app.creditHandler.GetBalance)

			r.Post("/transactions", app.transactionHandler.CreateTransaction)
			r.Get("/transactions", app.transactionHandler.ListTransactions)
			r.Get("/transactions/{id}", app.transactionHandler.GetTransaction)

			r.Post("/tasks", app.taskHandler.CreateTask)
			r.Get("/tasks", app.taskHandler.ListTasks)
			r.Get("/tasks/{id}", app.taskHandler.GetTask)
			r.Post("/tasks/{id}/cancel", app.taskHandler.CancelTask)
		})
	})

	// Operational endpoints
	r.Handle("/metrics", telemetry.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
