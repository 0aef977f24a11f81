package middleware

import (
	"context"
	"net/http"
	"strings"

	"peoplecounter/internal/service/auth"
)

type contextKey struct{}

// AuthMiddleware checks for a valid session cookie and stores the session in
// the request context. Login, signup, health and static assets stay public.
func AuthMiddleware(sessions *auth.Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" ||
			r.URL.Path == "/signup" ||
			r.URL.Path == "/health" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		session, ok := sessions.CurrentSession(r)
		if !ok {
			// AJAX and API callers get a 401 instead of the login page
			if r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" ||
				strings.HasPrefix(r.URL.Path, "/api/") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// SessionFrom returns the session AuthMiddleware attached to r.
func SessionFrom(r *http.Request) (*auth.Session, bool) {
	session, ok := r.Context().Value(contextKey{}).(*auth.Session)
	return session, ok && session != nil
}

// WithSession attaches session to ctx the way AuthMiddleware does.
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}
