// Package auth handles signup, login and the signed session and flash cookies.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/model"
	"peoplecounter/internal/repository"
)

const (
	// SessionCookie carries the signed session.
	SessionCookie = "session"
	// FlashCookie carries pending flash messages.
	FlashCookie = "flash"

	sessionMaxAge     = 30 * 24 * time.Hour
	maxUsernameLength = 80
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingFields      = errors.New("username and password are required")
)

// Session is the payload stored in the session cookie.
type Session struct {
	UserID   int64
	Username string
}

// Service authenticates users against the user repository.
type Service struct {
	users   repository.UserRepository
	cookies *securecookie.SecureCookie
	cost    int
	logger  *logger.Logger
}

// NewService creates the auth service. An empty secret gets a random key, which
// logs everyone out on restart.
func NewService(users repository.UserRepository, secret string, cost int, logger *logger.Logger) *Service {
	hashKey := []byte(secret)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warning("SECRET_KEY not set, sessions will not survive a restart")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	cookies := securecookie.New(hashKey, nil)
	cookies.MaxAge(int(sessionMaxAge.Seconds()))

	return &Service{
		users:   users,
		cookies: cookies,
		cost:    cost,
		logger:  logger,
	}
}

// Signup registers a new user with a bcrypt password hash.
func (s *Service) Signup(username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(username) > maxUsernameLength {
		return nil, fmt.Errorf("username longer than %d characters", maxUsernameLength)
	}

	existing, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: string(hash)}
	id, err := s.users.Insert(user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}
	user.ID = id

	s.logger.Info("Registered user %s", username)
	return user, nil
}

// Login verifies credentials and returns the matching user.
func (s *Service) Login(username, password string) (*model.User, error) {
	user, err := s.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// StartSession issues the signed session cookie for user.
func (s *Service) StartSession(w http.ResponseWriter, user *model.User) error {
	encoded, err := s.cookies.Encode(SessionCookie, Session{UserID: user.ID, Username: user.Username})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// CurrentSession returns the session carried by r, if it is present, valid and
// its user still exists.
func (s *Service) CurrentSession(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}

	var session Session
	if err := s.cookies.Decode(SessionCookie, cookie.Value, &session); err != nil {
		return nil, false
	}

	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		s.logger.Error("Failed to load session user %d: %v", session.UserID, err)
		return nil, false
	}
	if user == nil || user.Username != session.Username {
		return nil, false
	}
	return &session, true
}

// EndSession deletes the session cookie.
func (s *Service) EndSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Flash queues a message for the next rendered page.
func (s *Service) Flash(w http.ResponseWriter, r *http.Request, message string) {
	messages := s.readFlashes(r)
	messages = append(messages, message)

	encoded, err := s.cookies.Encode(FlashCookie, messages)
	if err != nil {
		s.logger.Error("Failed to encode flash message: %v", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
	})
}

// PopFlashes returns pending flash messages and clears them.
func (s *Service) PopFlashes(w http.ResponseWriter, r *http.Request) []string {
	messages := s.readFlashes(r)
	if len(messages) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:   FlashCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	return messages
}

func (s *Service) readFlashes(r *http.Request) []string {
	cookie, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}

	var messages []string
	if err := s.cookies.Decode(FlashCookie, cookie.Value, &messages); err != nil {
		return nil
	}
	return messages
}
