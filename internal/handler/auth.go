package handler

import (
	"errors"
	"net/http"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/web"
)

// SignupHandler shows the signup form on GET and registers the user on POST.
func SignupHandler(sessions *auth.Service, renderer *web.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			renderPage(w, r, renderer, sessions, logger, "signup", nil)
		case http.MethodPost:
			_, err := sessions.Signup(r.FormValue("username"), r.FormValue("password"))
			switch {
			case errors.Is(err, auth.ErrUserExists):
				sessions.Flash(w, r, "Username already exists")
				http.Redirect(w, r, "/signup", http.StatusSeeOther)
			case errors.Is(err, auth.ErrMissingFields):
				sessions.Flash(w, r, "Username and password are required")
				http.Redirect(w, r, "/signup", http.StatusSeeOther)
			case err != nil:
				logger.Error("Signup failed: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			default:
				sessions.Flash(w, r, "Successfully registered! Please login.")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// LoginHandler shows the login form on GET and issues the session cookie on POST.
func LoginHandler(sessions *auth.Service, renderer *web.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			renderPage(w, r, renderer, sessions, logger, "login", nil)
		case http.MethodPost:
			user, err := sessions.Login(r.FormValue("username"), r.FormValue("password"))
			if errors.Is(err, auth.ErrInvalidCredentials) {
				logger.Warning("Failed login for %q from %s", r.FormValue("username"), r.RemoteAddr)
				sessions.Flash(w, r, "Invalid username or password")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if err != nil {
				logger.Error("Login failed: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if err := sessions.StartSession(w, user); err != nil {
				logger.Error("Failed to start session: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// LogoutHandler clears the session cookie and redirects to the login page.
func LogoutHandler(sessions *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.EndSession(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
