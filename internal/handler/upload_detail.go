package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service"
)

// UploadDetailHandler serves /api/uploads/<id>: one of the current user's
// uploads with its person boxes.
func UploadDetailHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
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

		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/uploads/"), 10, 64)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}

		detail, err := manager.Upload(session.UserID, id)
		if errors.Is(err, service.ErrUploadNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logger.Error("Error loading upload %d for %s: %v", id, session.Username, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, detail, logger)
	}
}
