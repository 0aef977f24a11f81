package handler

import (
	"errors"
	"io"
	"net/http"

	"peoplecounter/internal/config"
	"peoplecounter/internal/logger"
	"peoplecounter/internal/middleware"
	"peoplecounter/internal/service"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/service/detection"
	"peoplecounter/internal/web"
)

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// UploadHandler handles POST /upload with a multipart "file" field. Browsers get
// the result page or a flash and a redirect home; JSON callers get a JSON body.
func UploadHandler(manager *service.Manager, sessions *auth.Service, renderer *web.Renderer,
	cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		session, ok := middleware.SessionFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		fail := func(status int, message string) {
			if wantsJSON(r) {
				writeJSON(w, status, map[string]string{"error": message}, logger)
				return
			}
			sessions.Flash(w, r, message)
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSizeMB<<20)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				fail(http.StatusRequestEntityTooLarge, "File is too large")
				return
			}
			fail(http.StatusBadRequest, "No file part")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			// browsers send the part without a filename when nothing was chosen,
			// which multipart parsing files under values
			if _, empty := r.MultipartForm.Value["file"]; empty {
				fail(http.StatusBadRequest, "No selected file")
				return
			}
			fail(http.StatusBadRequest, "No file part")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			fail(http.StatusBadRequest, "No selected file")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			logger.Error("Failed to read upload %s: %v", header.Filename, err)
			fail(http.StatusBadRequest, "No file part")
			return
		}

		result, err := manager.ProcessUpload(session.UserID, session.Username, header.Filename, data)
		var inputErr *detection.InputError
		switch {
		case errors.Is(err, service.ErrInvalidFileType):
			fail(http.StatusBadRequest, "Invalid file type")
			return
		case errors.As(err, &inputErr):
			logger.Warning("Rejected upload %s from %s: %v", header.Filename, session.Username, err)
			fail(http.StatusBadRequest, "Could not read image: "+inputErr.Reason)
			return
		case err != nil:
			logger.Error("Failed to process upload %s: %v", header.Filename, err)
			fail(http.StatusInternalServerError, "Failed to process image")
			return
		}

		logger.Info("User %s uploaded %s: %d people", session.Username, result.Filename, result.PeopleCount)
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, result, logger)
			return
		}
		renderPage(w, r, renderer, sessions, logger, "result", result)
	}
}
