package handler

import (
	"net/http"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/web"
)

// HomeHandler serves the upload form at / and 404 for anything else the mux routes here.
func HomeHandler(sessions *auth.Service, renderer *web.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		renderPage(w, r, renderer, sessions, logger, "home", nil)
	}
}

// FeedPageHandler serves the live feed page.
func FeedPageHandler(sessions *auth.Service, renderer *web.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, renderer, sessions, logger, "feed", nil)
	}
}
