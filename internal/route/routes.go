package route

import (
	"net/http"

	"peoplecounter/internal/config"
	"peoplecounter/internal/handler"
	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/web"
)

var logFiles = []struct{ level, name string }{
	{"info", logger.InfoFile},
	{"warning", logger.WarningFile},
	{"error", logger.ErrorFile},
}

// SetupRoutes registers pages, uploads, API and log endpoints, and wraps the
// mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, sessions *auth.Service, renderer *web.Renderer,
	cfg *config.Config, logger *logger.Logger, db handler.Pinger) http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("/", handler.HomeHandler(sessions, renderer, logger))
	mux.HandleFunc("/feed", handler.FeedPageHandler(sessions, renderer, logger))

	// Auth endpoints
	mux.HandleFunc("/signup", handler.SignupHandler(sessions, renderer, logger))
	mux.HandleFunc("/login", handler.LoginHandler(sessions, renderer, logger))
	mux.HandleFunc("/logout", handler.LogoutHandler(sessions))

	// Uploads
	mux.HandleFunc("/upload", handler.UploadHandler(manager, sessions, renderer, cfg, logger))
	mux.HandleFunc("/uploads/", handler.UploadedFileHandler(manager, logger))

	// API endpoints
	mux.HandleFunc("/api/history", handler.HistoryHandler(manager, logger))
	mux.HandleFunc("/api/uploads/", handler.UploadDetailHandler(manager, logger))
	mux.HandleFunc("/api/feed", handler.FeedWebsocketHandler(manager, logger))
	mux.HandleFunc("/health", handler.HealthHandler(cfg.ScorerBackend, db, logger))

	// Log endpoints
	for _, file := range logFiles {
		mux.HandleFunc("/logs/"+file.level, handler.ShowLogsHandler(logger, file.name))
		mux.HandleFunc("/logs/"+file.level+"/rotate", handler.RotateLogsHandler(logger, file.name))
	}

	// Apply middleware
	return middleware.AuthMiddleware(sessions, mux)
}
