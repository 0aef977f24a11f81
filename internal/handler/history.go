package handler

import (
	"net/http"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service"
)

// HistoryHandler returns the current user's uploads as JSON, paginated by ?page and ?limit.
func HistoryHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		session, ok := middleware.SessionFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		page, err := manager.History(session.UserID,
			atoiDefault(q.Get("page"), 1),
			atoiDefault(q.Get("limit"), service.DefaultHistoryLimit))
		if err != nil {
			logger.Error("Error loading history for %s: %v", session.Username, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, page, logger)
	}
}
