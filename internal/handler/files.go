package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service"
)

// UploadedFileHandler serves /uploads/<name> when name belongs to the current user.
func UploadedFileHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.SessionFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/uploads/")
		if name == "" || name != filepath.Base(name) {
			http.NotFound(w, r)
			return
		}

		owns, err := manager.OwnsFile(session.UserID, name)
		if err != nil {
			logger.Error("Error checking owner of %s: %v", name, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !owns {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filepath.Join(manager.GetUploadStore().Dir(), name))
	}
}
