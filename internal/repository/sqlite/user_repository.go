package sqlite

import (
	"database/sql"
	"fmt"

	"peoplecounter/internal/model"
)

// UserRepository implements repository.UserRepository for SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Insert adds a new user. A taken username yields repository.ErrDuplicate.
func (r *UserRepository) Insert(user *model.User) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`, user.Username, user.PasswordHash)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", translateError(err))
	}

	return result.LastInsertId()
}

// GetByID retrieves a user by ID, nil if absent.
func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return scanUser(r.db.Conn().QueryRow(`
		SELECT id, username, password_hash, created_at
		FROM users WHERE id = ?
	`, id))
}

// GetByUsername retrieves a user by username, nil if absent.
func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return scanUser(r.db.Conn().QueryRow(`
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
