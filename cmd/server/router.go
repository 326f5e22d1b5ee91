package main

import (
	"net/http"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api"
	apiMiddleware "github.com/AtlasTheChosen/lockn-sub001/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	progressHandler := api.NewProgressHandler(app.progress, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", progressHandler.RegisterUser)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Put("/timezone", progressHandler.SetTimezone)
			r.Post("/stacks", progressHandler.CreateStack)
			r.Get("/streak", progressHandler.GetStreakStatus)
			r.Get("/weekly", progressHandler.GetWeeklyStats)
		})

		r.Post("/ratings", progressHandler.SubmitRating)
		r.Post("/checks/{id}/outcome", progressHandler.RecordCheckOutcome)
		r.Get("/stacks/{id}", progressHandler.GetStackStatus)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
