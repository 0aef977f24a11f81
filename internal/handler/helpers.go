package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/web"
)

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// wantsJSON reports whether the caller asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// renderPage renders name with the current user and pending flashes.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *web.Renderer, sessions *auth.Service,
	logger *logger.Logger, name string, data any) {
	page := web.Page{
		Flashes: sessions.PopFlashes(w, r),
		Data:    data,
	}
	if session, ok := middleware.SessionFrom(r); ok {
		page.Username = session.Username
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Render(w, name, page); err != nil {
		logger.Error("Error rendering %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
