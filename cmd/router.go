package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"MoodLab/api"
)

func SetupRouter(dispatcher *api.Dispatcher, oauth *api.OAuthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealthCheck)

	r.Post("/slack", dispatcher.HandleSlackRequest)
	r.Get("/redirect", oauth.HandleSlackInstall)
	r.Get("/callback", oauth.HandleSlackOAuthCallback)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404, not found!"))
	})

	return r
}

func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
