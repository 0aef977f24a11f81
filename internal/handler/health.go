package handler

import (
	"net/http"

	"peoplecounter/internal/logger"
)

// Pinger is anything whose availability can be probed, such as the database.
type Pinger interface {
	Ping() error
}

// HealthHandler reports the scorer backend in use and whether the database answers.
func HealthHandler(backend string, db Pinger, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"status":   "ok",
			"scorer":   backend,
			"database": "ok",
		}
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			logger.Error("Health check: database unavailable: %v", err)
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status, logger)
	}
}
