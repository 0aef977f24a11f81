package repository

import (
	"errors"

	"peoplecounter/internal/model"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("record already exists")

// UserRepository defines the interface for user account storage.
type UserRepository interface {
	// Create operations
	Insert(user *model.User) (int64, error)

	// Read operations
	GetByID(id int64) (*model.User, error)
	GetByUsername(username string) (*model.User, error)
}

// UploadRepository defines the interface for processed upload records.
type UploadRepository interface {
	// Create operations
	Insert(upload *model.Upload) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Upload, error)
	GetByUserID(userID int64, limit, offset int) ([]model.Upload, error)
	CountByUserID(userID int64) (int, error)
	OwnsFile(userID int64, name string) (bool, error)
}

// DetectionRepository defines the interface for detections kept per upload.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByUploadID(uploadID int64) ([]model.Detection, error)
}
