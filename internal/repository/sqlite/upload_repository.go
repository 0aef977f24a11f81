package sqlite

import (
	"database/sql"
	"fmt"

	"peoplecounter/internal/model"
)

// UploadRepository implements repository.UploadRepository for SQLite.
type UploadRepository struct {
	db *DB
}

// NewUploadRepository creates a new SQLite upload repository.
func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Insert adds a new upload record to the database.
func (r *UploadRepository) Insert(upload *model.Upload) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO uploads (user_id, filename, annotated_filename, people_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, upload.UserID, upload.Filename, upload.AnnotatedFilename, upload.PeopleCount, upload.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", translateError(err))
	}

	return result.LastInsertId()
}

// GetByID retrieves an upload by its ID.
func (r *UploadRepository) GetByID(id int64) (*model.Upload, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var up model.Upload
	err := r.db.Conn().QueryRow(`
		SELECT id, user_id, filename, annotated_filename, people_count, created_at
		FROM uploads WHERE id = ?
	`, id).Scan(&up.ID, &up.UserID, &up.Filename, &up.AnnotatedFilename, &up.PeopleCount, &up.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &up, nil
}

// GetByUserID returns a user's uploads, newest first.
func (r *UploadRepository) GetByUserID(userID int64, limit, offset int) ([]model.Upload, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, user_id, filename, annotated_filename, people_count, created_at
		FROM uploads WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := []model.Upload{}
	for rows.Next() {
		var up model.Upload
		if err := rows.Scan(&up.ID, &up.UserID, &up.Filename, &up.AnnotatedFilename, &up.PeopleCount, &up.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, up)
	}

	return uploads, rows.Err()
}

// CountByUserID returns how many uploads a user has.
func (r *UploadRepository) CountByUserID(userID int64) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM uploads WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return count, nil
}

// OwnsFile reports whether name is the original or annotated file of one of the user's uploads.
func (r *UploadRepository) OwnsFile(userID int64, name string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*) FROM uploads
		WHERE user_id = ? AND (filename = ? OR annotated_filename = ?)
	`, userID, name, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check file owner: %w", err)
	}
	return count > 0, nil
}
